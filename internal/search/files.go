package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mfeldheim/hindsight/internal/models"
)

// FileMatch is one (conversation, file) pair found by file search. When the
// same file appears in several relation tables for one conversation, the
// highest role score wins.
type FileMatch struct {
	ConversationID string  `json:"conversation_id"`
	FilePath       string  `json:"file_path"`
	Role           string  `json:"role"`
	Score          float64 `json:"score"`
}

type fileRow struct {
	conversationID string
	filePath       string
	role           string
}

// SearchByFilePath scans all three file relation tables for paths containing
// pattern (case-insensitive) and returns deduplicated matches ordered by
// role score.
func (e *Engine) SearchByFilePath(ctx context.Context, pattern string, limit int) ([]FileMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	matches, err := e.scanFileTables(ctx, pattern, nil)
	if err != nil {
		return nil, err
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetFileMatchesForConversations restricts the file scan to the given
// conversation ids, keyed by conversation id in the result.
func (e *Engine) GetFileMatchesForConversations(ctx context.Context, conversationIDs []string, pattern string) (map[string][]FileMatch, error) {
	if len(conversationIDs) == 0 {
		return map[string][]FileMatch{}, nil
	}
	wanted := make(map[string]bool, len(conversationIDs))
	for _, id := range conversationIDs {
		wanted[id] = true
	}
	matches, err := e.scanFileTables(ctx, pattern, wanted)
	if err != nil {
		return nil, err
	}
	byConv := make(map[string][]FileMatch, len(conversationIDs))
	for _, m := range matches {
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m)
	}
	return byConv, nil
}

// scanFileTables loads the three relation tables in parallel and reduces
// the rows to deduplicated matches.
func (e *Engine) scanFileTables(ctx context.Context, pattern string, wanted map[string]bool) ([]FileMatch, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		rows []fileRow
		errs []error
	)
	collect := func(load func(context.Context) ([]fileRow, error)) {
		defer wg.Done()
		got, err := load(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		rows = append(rows, got...)
	}

	wg.Add(3)
	go collect(func(ctx context.Context) ([]fileRow, error) {
		all, err := e.convFiles.All(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]fileRow, 0, len(all))
		for _, f := range all {
			out = append(out, fileRow{models.IDString(f.Conversation), f.FilePath, f.Role})
		}
		return out, nil
	})
	go collect(func(ctx context.Context) ([]fileRow, error) {
		all, err := e.msgFiles.All(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]fileRow, 0, len(all))
		for _, f := range all {
			out = append(out, fileRow{models.IDString(f.Conversation), f.FilePath, f.Role})
		}
		return out, nil
	})
	go collect(func(ctx context.Context) ([]fileRow, error) {
		all, err := e.fileEdits.All(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]fileRow, 0, len(all))
		for _, f := range all {
			out = append(out, fileRow{models.IDString(f.Conversation), f.FilePath, models.FileRoleEdited})
		}
		return out, nil
	})
	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return reduceFileMatches(rows, pattern, wanted), nil
}

// reduceFileMatches filters rows by pattern and the optional conversation
// set, collapses duplicate (conversation, path) pairs keeping the maximum
// role score, and orders by score descending.
func reduceFileMatches(rows []fileRow, pattern string, wanted map[string]bool) []FileMatch {
	needle := strings.ToLower(strings.TrimSpace(pattern))

	best := make(map[string]FileMatch)
	for _, r := range rows {
		if r.conversationID == "" || r.filePath == "" {
			continue
		}
		if wanted != nil && !wanted[r.conversationID] {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.filePath), needle) {
			continue
		}
		score := models.FileRoleScore(r.role)
		key := r.conversationID + "\x00" + r.filePath
		if prev, ok := best[key]; !ok || score > prev.Score {
			best[key] = FileMatch{
				ConversationID: r.conversationID,
				FilePath:       r.filePath,
				Role:           r.role,
				Score:          score,
			}
		}
	}

	matches := make([]FileMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ConversationID != matches[j].ConversationID {
			return matches[i].ConversationID < matches[j].ConversationID
		}
		return matches[i].FilePath < matches[j].FilePath
	})
	return matches
}
