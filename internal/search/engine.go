package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/mfeldheim/hindsight/internal/metrics"
	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/repo"
)

// Match is one message hit enriched for display.
type Match struct {
	MessageID       string      `json:"message_id"`
	Role            string      `json:"role"`
	MessageIndex    int         `json:"message_index"`
	Timestamp       string      `json:"timestamp"`
	Score           float64     `json:"score"`
	Snippet         string      `json:"snippet"`
	Highlights      []Highlight `json:"highlights,omitempty"`
	AdjacentContext string      `json:"adjacent_context,omitempty"`
}

// ConversationResult groups one conversation's matches.
type ConversationResult struct {
	Conversation models.Conversation `json:"conversation"`
	Matches      []Match             `json:"matches"`

	// BestScore is the undecayed display score; RankScore is the
	// recency-decayed value the result order is defined by.
	BestScore float64 `json:"best_score"`
	RankScore float64 `json:"rank_score"`
}

// Response is the ranked answer to one query.
type Response struct {
	Results            []ConversationResult `json:"results"`
	TotalConversations int                  `json:"total_conversations"`
	TotalMessages      int                  `json:"total_messages"`
	Mode               repo.SearchMode      `json:"mode"`
	Elapsed            time.Duration        `json:"elapsed"`
}

// Engine composes the repositories into the top-level search operations.
type Engine struct {
	conversations *repo.Conversations
	messages      *repo.Messages
	convFiles     *repo.Children[models.ConversationFile]
	msgFiles      *repo.Children[models.MessageFile]
	fileEdits     *repo.Children[models.FileEdit]
	log           *slog.Logger
	collector     *metrics.Collector

	// now is injectable for deterministic recency tests.
	now func() time.Time
}

// NewEngine creates the search engine. collector may be nil.
func NewEngine(
	conversations *repo.Conversations,
	messages *repo.Messages,
	convFiles *repo.Children[models.ConversationFile],
	msgFiles *repo.Children[models.MessageFile],
	fileEdits *repo.Children[models.FileEdit],
	log *slog.Logger,
	collector *metrics.Collector,
) *Engine {
	return &Engine{
		conversations: conversations,
		messages:      messages,
		convFiles:     convFiles,
		msgFiles:      msgFiles,
		fileEdits:     fileEdits,
		log:           log,
		collector:     collector,
		now:           time.Now,
	}
}

// Search runs message search, groups hits by conversation, enriches each
// group with snippets and adjacent context, and orders groups by the
// recency-decayed rank score.
func (e *Engine) Search(ctx context.Context, query string, limit int) (Response, error) {
	started := time.Now()

	matches, mode, err := e.messages.Search(ctx, query, limit)
	if err != nil {
		return Response{}, err
	}

	groups := make(map[string][]repo.MessageMatch)
	order := make([]string, 0)
	for _, m := range matches {
		convID := models.IDString(m.Message.Conversation)
		if convID == "" {
			continue
		}
		if _, ok := groups[convID]; !ok {
			order = append(order, convID)
		}
		groups[convID] = append(groups[convID], m)
	}

	now := e.now()
	results := make([]ConversationResult, 0, len(order))
	for _, convID := range order {
		conv, err := e.conversations.FindByID(ctx, convID)
		if err != nil {
			return Response{}, err
		}
		if conv == nil {
			// A match into a conversation deleted mid-query; skip, don't fail.
			e.log.Warn("search hit orphaned message", "conversation", convID)
			continue
		}

		byIndex, err := e.messagesByIndex(ctx, convID)
		if err != nil {
			return Response{}, err
		}

		group := groups[convID]
		result := ConversationResult{Conversation: *conv, Matches: make([]Match, 0, len(group))}
		for _, m := range group {
			snippet, highlights := BuildSnippet(m.Message.Content, query, ContextChars)
			result.Matches = append(result.Matches, Match{
				MessageID:       m.Message.RowID(),
				Role:            m.Message.Role,
				MessageIndex:    m.Message.MessageIndex,
				Timestamp:       m.Message.Timestamp,
				Score:           m.Score,
				Snippet:         snippet,
				Highlights:      highlights,
				AdjacentContext: AdjacentContext(m.Message, byIndex),
			})
			if m.Score > result.BestScore {
				result.BestScore = m.Score
			}
		}
		result.RankScore = RankScore(result.BestScore, conv.UpdatedAt, now)
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RankScore > results[j].RankScore
	})

	elapsed := time.Since(started)
	if e.collector != nil {
		e.collector.Record(metrics.OpSearch, elapsed)
	}
	e.log.Info("search completed",
		"mode", mode, "conversations", len(results), "messages", len(matches),
		"elapsed_ms", elapsed.Milliseconds())

	return Response{
		Results:            results,
		TotalConversations: len(results),
		TotalMessages:      len(matches),
		Mode:               mode,
		Elapsed:            elapsed,
	}, nil
}

func (e *Engine) messagesByIndex(ctx context.Context, conversationID string) (map[int]models.Message, error) {
	msgs, err := e.messages.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]models.Message, len(msgs))
	for _, m := range msgs {
		byIndex[m.MessageIndex] = m
	}
	return byIndex, nil
}
