package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// childTables are deleted en masse whenever a parent conversation is deleted
// or re-synced.
var childTables = []string{"message", "tool_call", "conversation_file", "message_file", "file_edit"}

// Conversations is the conversation repository.
type Conversations struct {
	c   *store.Client
	log *slog.Logger
}

// NewConversations creates the conversation repository.
func NewConversations(c *store.Client, log *slog.Logger) *Conversations {
	return &Conversations{c: c, log: log}
}

// Exists reports whether a conversation with the given id is stored.
func (r *Conversations) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: empty conversation id", store.ErrInvalidArgument)
	}
	return store.WithRetry(ctx, r.log, r.c, "conversation.exists", func(ctx context.Context) (bool, error) {
		rows, err := query[struct {
			C int `json:"c"`
		}](ctx, r.c, `SELECT count() AS c FROM type::record("conversation", $id) GROUP ALL`, map[string]any{"id": id})
		if err != nil {
			return false, fmt.Errorf("exists: %w", err)
		}
		return len(rows) > 0 && rows[0].C > 0, nil
	})
}

// Upsert stores a conversation as delete-then-insert. Conversations are
// immutable snapshots; re-sync replaces the row and its children as a unit.
// Children are inserted separately by the importer after this returns.
func (r *Conversations) Upsert(ctx context.Context, conv models.Conversation) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "conversation.upsert", func(ctx context.Context) error {
		if err := r.deleteWithChildren(ctx, []string{conv.RowID()}); err != nil {
			return err
		}
		if err := exec(ctx, r.c, `CREATE $id CONTENT $data`, map[string]any{
			"id":   conv.ID,
			"data": conv,
		}); err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}
		return nil
	})
}

// BulkUpsert stores many conversations with one existing-id scan, a batched
// delete of the ones being replaced, and a single bulk insert. Safe to call
// repeatedly with the same input; stored state converges.
func (r *Conversations) BulkUpsert(ctx context.Context, convs []models.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.RowID()
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, "conversation.bulkUpsert", func(ctx context.Context) error {
		existing, err := idSet(ctx, r.c, "conversation", ids)
		if err != nil {
			return err
		}
		var stale []string
		for _, id := range ids {
			if existing[id] {
				stale = append(stale, id)
			}
		}
		if err := r.deleteWithChildren(ctx, stale); err != nil {
			return err
		}
		if err := exec(ctx, r.c, `INSERT INTO conversation $docs`, map[string]any{"docs": convs}); err != nil {
			return fmt.Errorf("bulk insert conversations: %w", err)
		}
		return nil
	})
}

// GetExistingIDs returns which of the candidate ids are already stored.
func (r *Conversations) GetExistingIDs(ctx context.Context, candidateIDs []string) (map[string]bool, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.getExistingIds", func(ctx context.Context) (map[string]bool, error) {
		return idSet(ctx, r.c, "conversation", candidateIDs)
	})
}

// GetExistingConversationMetadata returns message count and updatedAt per
// already-stored candidate id, letting a sync collaborator detect
// "conversation already indexed but has grown" without re-parsing content.
func (r *Conversations) GetExistingConversationMetadata(ctx context.Context, candidateIDs []string) (map[string]models.ConversationMeta, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.getExistingMetadata", func(ctx context.Context) (map[string]models.ConversationMeta, error) {
		metas := make(map[string]models.ConversationMeta, len(candidateIDs))
		for _, group := range chunk(candidateIDs, deleteChunk) {
			rows, err := query[models.ConversationMeta](ctx, r.c,
				`SELECT id, message_count, updated_at FROM conversation WHERE id IN $ids`,
				map[string]any{"ids": recordIDs("conversation", group)})
			if err != nil {
				return nil, fmt.Errorf("existing metadata: %w", err)
			}
			for _, m := range rows {
				metas[models.IDString(m.ID)] = m
			}
		}
		return metas, nil
	})
}

// GetTimestampsBySource returns updatedAt per stored conversation id for one
// source, for cheap staleness checks.
func (r *Conversations) GetTimestampsBySource(ctx context.Context, source string) (map[string]string, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.timestampsBySource", func(ctx context.Context) (map[string]string, error) {
		rows, err := query[models.ConversationMeta](ctx, r.c,
			`SELECT id, message_count, updated_at FROM conversation WHERE source = $source`,
			map[string]any{"source": source})
		if err != nil {
			return nil, fmt.Errorf("timestamps by source: %w", err)
		}
		out := make(map[string]string, len(rows))
		for _, m := range rows {
			out[models.IDString(m.ID)] = m.UpdatedAt
		}
		return out, nil
	})
}

// FindByID returns the conversation or nil when absent.
func (r *Conversations) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty conversation id", store.ErrInvalidArgument)
	}
	return store.WithRetry(ctx, r.log, r.c, "conversation.findById", func(ctx context.Context) (*models.Conversation, error) {
		rows, err := query[models.Conversation](ctx, r.c,
			`SELECT * FROM type::record("conversation", $id)`, map[string]any{"id": id})
		if err != nil {
			return nil, fmt.Errorf("find conversation: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return &rows[0], nil
	})
}

// ListFilters narrow a conversation listing. Text filters are
// case-insensitive substring matches; the date range is inclusive with a
// one-day pad on the upper bound so "to 2026-03-01" includes that whole day.
type ListFilters struct {
	Source   string
	Model    string
	Project  string
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// ListResult carries one page plus the pre-pagination total.
type ListResult struct {
	Conversations []models.Conversation
	Total         int
}

// List fetches all conversations, applies filters in memory, sorts by
// updatedAt descending (lexical ISO-8601 comparison), then paginates.
func (r *Conversations) List(ctx context.Context, f ListFilters) (ListResult, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.list", func(ctx context.Context) (ListResult, error) {
		rows, err := query[models.Conversation](ctx, r.c, `SELECT * FROM conversation`, nil)
		if err != nil {
			return ListResult{}, fmt.Errorf("list conversations: %w", err)
		}
		filtered := FilterConversations(rows, f)
		SortByUpdatedAtDesc(filtered)
		total := len(filtered)
		return ListResult{Conversations: Paginate(filtered, f.Offset, f.Limit), Total: total}, nil
	})
}

// FindByFilters is List without pagination.
func (r *Conversations) FindByFilters(ctx context.Context, f ListFilters) ([]models.Conversation, error) {
	f.Limit = 0
	f.Offset = 0
	res, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return res.Conversations, nil
}

// FindByGitBranch returns conversations recorded on the given branch,
// newest first. Same scan-then-filter shape as List.
func (r *Conversations) FindByGitBranch(ctx context.Context, branch string) ([]models.Conversation, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.findByGitBranch", func(ctx context.Context) ([]models.Conversation, error) {
		rows, err := query[models.Conversation](ctx, r.c, `SELECT * FROM conversation`, nil)
		if err != nil {
			return nil, fmt.Errorf("find by branch: %w", err)
		}
		var out []models.Conversation
		for _, c := range rows {
			if strings.EqualFold(c.GitBranch, branch) {
				out = append(out, c)
			}
		}
		SortByUpdatedAtDesc(out)
		return out, nil
	})
}

// FindUntitled returns conversations with an empty title, for an external
// summarizer to name.
func (r *Conversations) FindUntitled(ctx context.Context, limit int) ([]models.Conversation, error) {
	return r.findUntitled(ctx, "", limit)
}

// FindUntitledBySource is FindUntitled restricted to one source.
func (r *Conversations) FindUntitledBySource(ctx context.Context, source string, limit int) ([]models.Conversation, error) {
	return r.findUntitled(ctx, source, limit)
}

func (r *Conversations) findUntitled(ctx context.Context, source string, limit int) ([]models.Conversation, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.findUntitled", func(ctx context.Context) ([]models.Conversation, error) {
		rows, err := query[models.Conversation](ctx, r.c, `SELECT * FROM conversation WHERE title = ''`, nil)
		if err != nil {
			return nil, fmt.Errorf("find untitled: %w", err)
		}
		var out []models.Conversation
		for _, c := range rows {
			if source != "" && c.Source != source {
				continue
			}
			out = append(out, c)
		}
		SortByUpdatedAtDesc(out)
		return Paginate(out, 0, limit), nil
	})
}

// UpdateTitle sets the title on an already-stored conversation. Titles are
// derived data, so this is the one field patched in place rather than
// replacing the snapshot.
func (r *Conversations) UpdateTitle(ctx context.Context, id, title string) error {
	if id == "" {
		return fmt.Errorf("%w: empty conversation id", store.ErrInvalidArgument)
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, "conversation.updateTitle", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `UPDATE type::record("conversation", $id) SET title = $title`, map[string]any{
			"id":    id,
			"title": title,
		}); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored conversations.
func (r *Conversations) Count(ctx context.Context) (int, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.count", func(ctx context.Context) (int, error) {
		return countTable(ctx, r.c, "conversation")
	})
}

// Delete removes conversations and all their children.
func (r *Conversations) Delete(ctx context.Context, ids ...string) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "conversation.delete", func(ctx context.Context) error {
		return r.deleteWithChildren(ctx, ids)
	})
}

// DeleteBySource removes every conversation from one source, children included.
func (r *Conversations) DeleteBySource(ctx context.Context, source string) (int, error) {
	return store.WithRetry(ctx, r.log, r.c, "conversation.deleteBySource", func(ctx context.Context) (int, error) {
		rows, err := query[models.ConversationMeta](ctx, r.c,
			`SELECT id, message_count, updated_at FROM conversation WHERE source = $source`,
			map[string]any{"source": source})
		if err != nil {
			return 0, fmt.Errorf("delete by source: %w", err)
		}
		ids := make([]string, 0, len(rows))
		for _, m := range rows {
			ids = append(ids, models.IDString(m.ID))
		}
		if err := r.deleteWithChildren(ctx, ids); err != nil {
			return 0, err
		}
		return len(ids), nil
	})
}

// deleteWithChildren deletes conversations and their child rows, batching
// ids into bounded disjunctions to respect predicate-length limits.
func (r *Conversations) deleteWithChildren(ctx context.Context, ids []string) error {
	for _, group := range chunk(ids, deleteChunk) {
		convIDs := recordIDs("conversation", group)
		for _, table := range childTables {
			if err := exec(ctx, r.c,
				fmt.Sprintf("DELETE %s WHERE conversation IN $ids", table),
				map[string]any{"ids": convIDs}); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		if err := exec(ctx, r.c, `DELETE conversation WHERE id IN $ids`, map[string]any{"ids": convIDs}); err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
	}
	return nil
}

// FilterConversations applies the in-memory filter pass.
func FilterConversations(rows []models.Conversation, f ListFilters) []models.Conversation {
	var out []models.Conversation
	toDate := f.ToDate
	if toDate != "" {
		// Inclusive upper bound: pad by one day so a bare date covers the
		// whole day's timestamps.
		toDate = addDays(toDate, 1)
	}
	for _, c := range rows {
		if f.Source != "" && !containsFold(c.Source, f.Source) {
			continue
		}
		if f.Model != "" && !containsFold(c.Model, f.Model) {
			continue
		}
		if f.Project != "" && !containsFold(c.WorkspacePath, f.Project) {
			continue
		}
		if f.FromDate != "" && c.UpdatedAt < f.FromDate {
			continue
		}
		if toDate != "" && c.UpdatedAt > toDate {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortByUpdatedAtDesc sorts newest first by lexical ISO-8601 comparison.
// The sort is stable so equal timestamps keep their scan order.
func SortByUpdatedAtDesc(rows []models.Conversation) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].UpdatedAt > rows[j].UpdatedAt
	})
}

// Paginate slices by offset and limit, recording nothing; callers capture
// the pre-pagination total themselves.
func Paginate(rows []models.Conversation, offset, limit int) []models.Conversation {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
