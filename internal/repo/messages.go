package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// SearchMode identifies which tier of the fallback chain served a query.
type SearchMode string

const (
	// ModeHybrid fuses vector similarity and full-text rankings.
	ModeHybrid SearchMode = "hybrid"
	// ModeFTS is keyword-only search, used when the hybrid path fails
	// (typically an unavailable embedding backend).
	ModeFTS SearchMode = "fts"
	// ModeBasic is a bounded substring scan, the last resort when the
	// full-text index itself fails.
	ModeBasic SearchMode = "basic"
)

// EmbedFunc turns query text into the same vector space as indexed messages.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// SearchConfig tunes the message search pipeline.
type SearchConfig struct {
	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int
	// BasicScanLimit bounds how many rows the substring fallback scans.
	BasicScanLimit int
}

// DefaultSearchConfig returns the standard tuning.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{RRFK: DefaultRRFK, BasicScanLimit: 2000}
}

// MessageMatch is one ranked message hit.
type MessageMatch struct {
	Message models.Message
	Score   float64
}

// Messages is the message repository.
type Messages struct {
	c     *store.Client
	log   *slog.Logger
	embed EmbedFunc
	cfg   SearchConfig
}

// NewMessages creates the message repository. embed may be nil, in which
// case every search starts at the FTS tier.
func NewMessages(c *store.Client, log *slog.Logger, embed EmbedFunc, cfg SearchConfig) *Messages {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.BasicScanLimit <= 0 {
		cfg.BasicScanLimit = 2000
	}
	return &Messages{c: c, log: log, embed: embed, cfg: cfg}
}

// Count returns the number of stored messages.
func (r *Messages) Count(ctx context.Context) (int, error) {
	return store.WithRetry(ctx, r.log, r.c, "message.count", func(ctx context.Context) (int, error) {
		return countTable(ctx, r.c, "message")
	})
}

// GetExistingIDs returns which of the candidate message ids are stored.
func (r *Messages) GetExistingIDs(ctx context.Context, candidateIDs []string) (map[string]bool, error) {
	return store.WithRetry(ctx, r.log, r.c, "message.getExistingIds", func(ctx context.Context) (map[string]bool, error) {
		return idSet(ctx, r.c, "message", candidateIDs)
	})
}

// GetExistingIDsByConversation returns the stored message ids of one conversation.
func (r *Messages) GetExistingIDsByConversation(ctx context.Context, conversationID string) (map[string]bool, error) {
	return store.WithRetry(ctx, r.log, r.c, "message.existingIdsByConversation", func(ctx context.Context) (map[string]bool, error) {
		rows, err := query[struct {
			ID surrealmodels.RecordID `json:"id"`
		}](ctx, r.c,
			`SELECT id FROM message WHERE conversation = $conv`,
			map[string]any{"conv": models.RID("conversation", conversationID)})
		if err != nil {
			return nil, fmt.Errorf("existing message ids: %w", err)
		}
		out := make(map[string]bool, len(rows))
		for _, m := range rows {
			out[models.IDString(m.ID)] = true
		}
		return out, nil
	})
}

// BulkInsert inserts messages in one batch. All-or-nothing per call.
func (r *Messages) BulkInsert(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, "message.bulkInsert", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `INSERT INTO message $docs`, map[string]any{"docs": msgs}); err != nil {
			return fmt.Errorf("bulk insert messages: %w", err)
		}
		return nil
	})
}

// BulkInsertNew filters out already-present ids, inserts the remainder, and
// returns the count inserted. Idempotent by construction.
func (r *Messages) BulkInsertNew(ctx context.Context, msgs []models.Message, existingIDs map[string]bool) (int, error) {
	fresh := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !existingIDs[m.RowID()] {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.BulkInsert(ctx, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// UpdateVector writes a backfilled embedding onto a message.
func (r *Messages) UpdateVector(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("%w: empty message id", store.ErrInvalidArgument)
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, "message.updateVector", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `UPDATE type::record("message", $id) SET embedding = $vec`, map[string]any{
			"id":  id,
			"vec": vec,
		}); err != nil {
			return fmt.Errorf("update vector: %w", err)
		}
		return nil
	})
}

// FindByConversation returns a conversation's messages ordered by
// messageIndex, the canonical ordering key. Physical row order is ignored.
func (r *Messages) FindByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	return store.WithRetry(ctx, r.log, r.c, "message.findByConversation", func(ctx context.Context) ([]models.Message, error) {
		rows, err := query[models.Message](ctx, r.c,
			`SELECT * FROM message WHERE conversation = $conv`,
			map[string]any{"conv": models.RID("conversation", conversationID)})
		if err != nil {
			return nil, fmt.Errorf("find messages: %w", err)
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].MessageIndex < rows[j].MessageIndex
		})
		return rows, nil
	})
}

// FindMissingEmbeddings returns messages whose vector column is still the
// zero-filled placeholder, up to limit. The backfill job drains this.
func (r *Messages) FindMissingEmbeddings(ctx context.Context, dim, limit int) ([]models.Message, error) {
	return store.WithRetry(ctx, r.log, r.c, "message.findMissingEmbeddings", func(ctx context.Context) ([]models.Message, error) {
		rows, err := query[models.Message](ctx, r.c,
			`SELECT * FROM message WHERE embedding = $zero AND indexed_content != '' LIMIT $limit`,
			map[string]any{"zero": make([]float32, dim), "limit": limit})
		if err != nil {
			return nil, fmt.Errorf("find missing embeddings: %w", err)
		}
		return rows, nil
	})
}

// DeleteByConversationIDs removes all messages of the given conversations,
// batching ids into bounded disjunctions.
func (r *Messages) DeleteByConversationIDs(ctx context.Context, conversationIDs ...string) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "message.deleteByConversation", func(ctx context.Context) error {
		for _, group := range chunk(conversationIDs, deleteChunk) {
			if err := exec(ctx, r.c, `DELETE message WHERE conversation IN $ids`,
				map[string]any{"ids": recordIDs("conversation", group)}); err != nil {
				return fmt.Errorf("delete messages: %w", err)
			}
		}
		return nil
	})
}

// Search runs the three-tier pipeline: hybrid, then keyword-only, then a
// bounded substring scan. Each step down is logged, never surfaced. Errors
// reach the caller from the last tier, or from the hybrid tier when the
// failure is transient exhaustion or index corruption (see degradable).
func (r *Messages) Search(ctx context.Context, queryText string, limit int) ([]MessageMatch, SearchMode, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, "", fmt.Errorf("%w: empty query", store.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 10
	}

	matches, err := r.searchHybrid(ctx, queryText, limit)
	if err == nil {
		return matches, ModeHybrid, nil
	}
	if !degradable(err) {
		return nil, "", err
	}
	r.log.Warn("hybrid search failed, falling back to fts", "error", err)

	matches, err = r.searchFTS(ctx, queryText, limit)
	if err == nil {
		return matches, ModeFTS, nil
	}
	r.log.Warn("fts search failed, falling back to substring scan", "error", err)

	matches, err = r.searchBasic(ctx, queryText, limit)
	if err != nil {
		return nil, "", fmt.Errorf("substring search: %w", err)
	}
	return matches, ModeBasic, nil
}

// degradable reports whether a hybrid failure may step down to the keyword
// tier. Transient exhaustion and index corruption already went through the
// retry layer, which tags them with the store sentinels; those propagate.
// Stepping down is for failures outside the store, an unreachable embedding
// backend being the usual one. Sentinel checks only: embedding errors never
// pass through the store classifier, so a backend's "connection refused"
// must not be mistaken for a storage problem.
func degradable(err error) bool {
	return !errors.Is(err, store.ErrTransient) && !errors.Is(err, store.ErrIndexCorruption)
}

// scoredMessage carries the store's native relevance score alongside the row.
type scoredMessage struct {
	models.Message
	Score float64 `json:"relevance"`
}

// searchHybrid embeds the query, runs vector and full-text sub-queries, and
// fuses the two ranked lists with reciprocal rank fusion. The fused order is
// kept and each hit scored 1/(rank+1).
func (r *Messages) searchHybrid(ctx context.Context, queryText string, limit int) ([]MessageMatch, error) {
	if r.embed == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	emb, err := r.embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type hybridRows struct {
		vector []models.Message
		fts    []models.Message
	}
	rows, err := store.WithRetry(ctx, r.log, r.c, "message.search.hybrid", func(ctx context.Context) (hybridRows, error) {
		// Vector sub-query fetches 2x limit for variety; HNSW ef=40 for recall.
		vecRows, err := query[models.Message](ctx, r.c, fmt.Sprintf(
			`SELECT * FROM message WHERE embedding <|%d,40|> $emb`, limit*2),
			map[string]any{"emb": emb})
		if err != nil {
			return hybridRows{}, fmt.Errorf("vector sub-query: %w", err)
		}
		ftsRows, err := query[models.Message](ctx, r.c, fmt.Sprintf(
			`SELECT *, search::score(0) AS relevance FROM message WHERE indexed_content @0@ $q ORDER BY relevance DESC LIMIT %d`, limit*2),
			map[string]any{"q": queryText})
		if err != nil {
			return hybridRows{}, fmt.Errorf("fts sub-query: %w", err)
		}
		return hybridRows{vector: vecRows, fts: ftsRows}, nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Message)
	rankedIDs := func(msgs []models.Message) []string {
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			id := m.RowID()
			ids = append(ids, id)
			byID[id] = m
		}
		return ids
	}
	fused := FuseRRF(r.cfg.RRFK, rankedIDs(rows.vector), rankedIDs(rows.fts))

	matches := make([]MessageMatch, 0, limit)
	for _, id := range fused {
		m := byID[id]
		if m.Content == "" {
			continue
		}
		matches = append(matches, MessageMatch{Message: m, Score: 1.0 / float64(len(matches)+1)})
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// searchFTS is keyword-only search. The store's native relevance score is
// used where it decodes to something positive, else 1/(rank+1).
func (r *Messages) searchFTS(ctx context.Context, queryText string, limit int) ([]MessageMatch, error) {
	rows, err := store.WithRetry(ctx, r.log, r.c, "message.search.fts", func(ctx context.Context) ([]scoredMessage, error) {
		return query[scoredMessage](ctx, r.c, fmt.Sprintf(
			`SELECT *, search::score(0) AS relevance FROM message WHERE indexed_content @0@ $q ORDER BY relevance DESC LIMIT %d`, limit),
			map[string]any{"q": queryText})
	})
	if err != nil {
		return nil, err
	}

	matches := make([]MessageMatch, 0, len(rows))
	for _, row := range rows {
		if row.Content == "" {
			continue
		}
		score := row.Score
		if score <= 0 {
			score = 1.0 / float64(len(matches)+1)
		}
		matches = append(matches, MessageMatch{Message: row.Message, Score: score})
	}
	return matches, nil
}

// searchBasic scans a bounded number of rows and keeps any containing at
// least one query term, scored by the fraction of terms matched.
func (r *Messages) searchBasic(ctx context.Context, queryText string, limit int) ([]MessageMatch, error) {
	rows, err := store.WithRetry(ctx, r.log, r.c, "message.search.basic", func(ctx context.Context) ([]models.Message, error) {
		return query[models.Message](ctx, r.c,
			`SELECT * FROM message LIMIT $limit`,
			map[string]any{"limit": r.cfg.BasicScanLimit})
	})
	if err != nil {
		return nil, err
	}

	matches := make([]MessageMatch, 0)
	for _, m := range rows {
		score, ok := SubstringScore(queryText, m.Content)
		if !ok {
			continue
		}
		matches = append(matches, MessageMatch{Message: m, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// SubstringScore lower-cases query and content, splits the query into terms
// longer than two characters, and scores the content by the fraction of
// terms it contains. ok is false when no term matches.
func SubstringScore(queryText, content string) (score float64, ok bool) {
	terms := SearchTerms(queryText)
	if len(terms) == 0 {
		return 0, false
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	if matched == 0 {
		return 0, false
	}
	return float64(matched) / float64(len(terms)), true
}

// SearchTerms splits a query into lower-cased terms of length > 2.
func SearchTerms(queryText string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(queryText)) {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
