package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mfeldheim/hindsight/internal/metrics"
	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/repo"
	"github.com/mfeldheim/hindsight/internal/store"
)

// defaultCycleEvery matches the sync batch size: the store connection is
// closed and reopened after this many conversations so long imports do not
// starve concurrent readers of the websocket.
const defaultCycleEvery = 100

// ImportStats summarizes one import run.
type ImportStats struct {
	Conversations int `json:"conversations"`
	Skipped       int `json:"skipped"`
	Messages      int `json:"messages"`
	ToolCalls     int `json:"tool_calls"`
	Files         int `json:"files"`
	Edits         int `json:"edits"`
}

// Importer writes adapter records into the store idempotently.
type Importer struct {
	client        *store.Client
	conversations *repo.Conversations
	messages      *repo.Messages
	toolCalls     *repo.Children[models.ToolCall]
	convFiles     *repo.Children[models.ConversationFile]
	msgFiles      *repo.Children[models.MessageFile]
	fileEdits     *repo.Children[models.FileEdit]
	syncStates    *repo.SyncStates
	billing       *repo.BillingEvents

	log       *slog.Logger
	collector *metrics.Collector

	embedDim   int
	cycleEvery int
}

// NewImporter wires an importer over the given repositories. collector may
// be nil, cycleEvery <= 0 selects the default.
func NewImporter(
	client *store.Client,
	conversations *repo.Conversations,
	messages *repo.Messages,
	toolCalls *repo.Children[models.ToolCall],
	convFiles *repo.Children[models.ConversationFile],
	msgFiles *repo.Children[models.MessageFile],
	fileEdits *repo.Children[models.FileEdit],
	syncStates *repo.SyncStates,
	billing *repo.BillingEvents,
	log *slog.Logger,
	collector *metrics.Collector,
	embedDim int,
	cycleEvery int,
) *Importer {
	if cycleEvery <= 0 {
		cycleEvery = defaultCycleEvery
	}
	if embedDim <= 0 {
		embedDim = store.DefaultEmbedDimension
	}
	return &Importer{
		client:        client,
		conversations: conversations,
		messages:      messages,
		toolCalls:     toolCalls,
		convFiles:     convFiles,
		msgFiles:      msgFiles,
		fileEdits:     fileEdits,
		syncStates:    syncStates,
		billing:       billing,
		log:           log,
		collector:     collector,
		embedDim:      embedDim,
		cycleEvery:    cycleEvery,
	}
}

// Import writes all records, skipping conversations whose origin file and
// stored metadata are unchanged. The store connection is cycled every
// cycleEvery conversations.
func (im *Importer) Import(ctx context.Context, records []Record) (ImportStats, error) {
	started := time.Now()
	var stats ImportStats

	metaByID, err := im.existingMeta(ctx, records)
	if err != nil {
		return stats, err
	}

	sinceCycle := 0
	for _, rec := range records {
		convID := models.ConversationID(rec.Source, rec.OriginalID)

		if im.unchanged(ctx, rec, convID, metaByID) {
			stats.Skipped++
			continue
		}

		rows := buildRows(rec, im.embedDim)
		if err := im.writeRows(ctx, rows); err != nil {
			return stats, fmt.Errorf("import conversation %s: %w", convID, err)
		}
		im.recordSyncState(ctx, rec)

		stats.Conversations++
		stats.Messages += len(rows.messages)
		stats.ToolCalls += len(rows.toolCalls)
		stats.Files += len(rows.convFiles) + len(rows.msgFiles)
		stats.Edits += len(rows.fileEdits)

		sinceCycle++
		if sinceCycle >= im.cycleEvery {
			sinceCycle = 0
			if err := im.client.Cycle(ctx); err != nil {
				return stats, fmt.Errorf("cycle connection: %w", err)
			}
			im.log.Debug("cycled store connection", "imported", stats.Conversations)
		}
	}

	elapsed := time.Since(started)
	if im.collector != nil {
		im.collector.RecordRows(metrics.OpSync, elapsed, int64(stats.Conversations))
	}
	im.log.Info("import finished",
		"conversations", stats.Conversations, "skipped", stats.Skipped,
		"messages", stats.Messages, "elapsed_ms", elapsed.Milliseconds())
	return stats, nil
}

// ImportBilling replaces the named batch with the given events.
func (im *Importer) ImportBilling(ctx context.Context, originBatch string, records []BillingRecord) (int, error) {
	if err := im.billing.DeleteBySource(ctx, originBatch); err != nil {
		return 0, err
	}
	events := make([]models.BillingEvent, 0, len(records))
	for _, rec := range records {
		e := models.BillingEvent{
			ID:                models.RID("billing_event", models.BillingEventID(originBatch, rec.Timestamp, rec.Model, rec.Kind)),
			Timestamp:         rec.Timestamp,
			Model:             rec.Model,
			Kind:              rec.Kind,
			InputTokens:       rec.InputTokens,
			OutputTokens:      rec.OutputTokens,
			CacheCreateTokens: rec.CacheCreateTokens,
			CacheReadTokens:   rec.CacheReadTokens,
			CostUSD:           rec.CostUSD,
			OriginBatch:       originBatch,
		}
		if !models.IsValidBillingEvent(e) {
			im.log.Warn("dropping invalid billing record", "timestamp", rec.Timestamp, "model", rec.Model)
			continue
		}
		events = append(events, e)
	}
	if err := im.billing.BulkInsert(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

// existingMeta fetches stored metadata for all candidate conversations in
// one chunked query, so per-record change checks stay cheap.
func (im *Importer) existingMeta(ctx context.Context, records []Record) (map[string]models.ConversationMeta, error) {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, models.ConversationID(rec.Source, rec.OriginalID))
	}
	return im.conversations.GetExistingConversationMetadata(ctx, ids)
}

// unchanged reports whether a record can be skipped. Two signals are
// checked: the origin file's mtime against sync_state, and the stored
// conversation's message count plus updated_at against the record.
func (im *Importer) unchanged(ctx context.Context, rec Record, convID string, meta map[string]models.ConversationMeta) bool {
	m, exists := meta[convID]
	if !exists {
		return false
	}
	if m.MessageCount == len(rec.Messages) && m.UpdatedAt == rec.UpdatedAt && rec.UpdatedAt != "" {
		return true
	}
	if rec.OriginFile == "" {
		return false
	}
	mtime, ok := originMtime(rec.OriginFile)
	if !ok {
		return false
	}
	state, err := im.syncStates.Get(ctx, rec.Source, rec.OriginFile)
	if err != nil || state == nil {
		return false
	}
	return state.LastModified == mtime
}

func (im *Importer) recordSyncState(ctx context.Context, rec Record) {
	if rec.OriginFile == "" {
		return
	}
	mtime, _ := originMtime(rec.OriginFile)
	err := im.syncStates.Upsert(ctx, models.SyncState{
		Source:       rec.Source,
		OriginPath:   rec.OriginFile,
		LastSyncedAt: time.Now().UTC().Format(time.RFC3339),
		LastModified: mtime,
	})
	if err != nil {
		// Sync state is an optimization; failing to record it only costs
		// a re-import next run.
		im.log.Warn("failed to record sync state", "origin", rec.OriginFile, "error", err)
	}
}

func originMtime(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano), true
}

// rowSet holds all store rows derived from one record.
type rowSet struct {
	conversation models.Conversation
	messages     []models.Message
	toolCalls    []models.ToolCall
	convFiles    []models.ConversationFile
	msgFiles     []models.MessageFile
	fileEdits    []models.FileEdit
}

func (im *Importer) writeRows(ctx context.Context, rows rowSet) error {
	// Upsert deletes the previous generation including all children, so
	// the child inserts below never collide with stale rows.
	if err := im.conversations.Upsert(ctx, rows.conversation); err != nil {
		return err
	}
	if err := im.messages.BulkInsert(ctx, rows.messages); err != nil {
		return err
	}
	if err := im.toolCalls.BulkInsert(ctx, rows.toolCalls); err != nil {
		return err
	}
	if err := im.convFiles.BulkInsert(ctx, rows.convFiles); err != nil {
		return err
	}
	if err := im.msgFiles.BulkInsert(ctx, rows.msgFiles); err != nil {
		return err
	}
	return im.fileEdits.BulkInsert(ctx, rows.fileEdits)
}

// buildRows derives deterministic ids and aggregates conversation counters
// from one record.
func buildRows(rec Record, embedDim int) rowSet {
	convID := models.ConversationID(rec.Source, rec.OriginalID)
	convRID := models.RID("conversation", convID)

	conv := models.Conversation{
		ID:            convRID,
		Source:        rec.Source,
		Title:         rec.Title,
		WorkspacePath: rec.WorkspacePath,
		Model:         rec.Model,
		Mode:          rec.Mode,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		MessageCount:  len(rec.Messages),
		SourceRef: models.SourceRef{
			Source:        rec.Source,
			OriginalID:    rec.OriginalID,
			WorkspacePath: rec.WorkspacePath,
			OriginFile:    rec.OriginFile,
		}.Encode(),
		CompactionCount: rec.CompactionCount,
		GitBranch:       rec.GitBranch,
		GitCommit:       rec.GitCommit,
		GitRemote:       rec.GitRemote,
	}

	rows := rowSet{}
	convFileAt := make(map[string]int)

	// One conversation_file row per path, keeping the strongest role seen.
	addConvFile := func(path, role string) {
		if path == "" {
			return
		}
		if i, ok := convFileAt[path]; ok {
			if models.FileRoleScore(role) > models.FileRoleScore(rows.convFiles[i].Role) {
				rows.convFiles[i].Role = role
			}
			return
		}
		convFileAt[path] = len(rows.convFiles)
		rows.convFiles = append(rows.convFiles, models.ConversationFile{
			ID:           models.RID("conversation_file", models.FileRelationID("conversation_file", convID, path)),
			Conversation: convRID,
			FilePath:     path,
			Role:         role,
		})
	}

	for i, mr := range rec.Messages {
		msgID := models.MessageID(convID, i)
		msgRID := models.RID("message", msgID)

		indexed := StripToolOutput(mr.Content)
		msg := models.Message{
			ID:               msgRID,
			Conversation:     convRID,
			Role:             mr.Role,
			Content:          mr.Content,
			IndexedContent:   indexed,
			Timestamp:        mr.Timestamp,
			MessageIndex:     i,
			InputTokens:      mr.InputTokens,
			OutputTokens:     mr.OutputTokens,
			Embedding:        make([]float32, embedDim),
			IsCompactSummary: mr.IsCompactSummary,
			SnapshotRef:      mr.SnapshotRef,
		}

		conv.Tokens.InputSum += mr.InputTokens
		conv.Tokens.OutputSum += mr.OutputTokens
		conv.Tokens.CacheCreateSum += mr.CacheCreateTokens
		conv.Tokens.CacheReadSum += mr.CacheReadTokens
		if mr.InputTokens > conv.Tokens.InputPeak {
			conv.Tokens.InputPeak = mr.InputTokens
		}
		if mr.OutputTokens > conv.Tokens.OutputPeak {
			conv.Tokens.OutputPeak = mr.OutputTokens
		}
		if mr.CacheCreateTokens > conv.Tokens.CacheCreatePeak {
			conv.Tokens.CacheCreatePeak = mr.CacheCreateTokens
		}
		if mr.CacheReadTokens > conv.Tokens.CacheReadPeak {
			conv.Tokens.CacheReadPeak = mr.CacheReadTokens
		}

		for seq, tc := range mr.ToolCalls {
			rows.toolCalls = append(rows.toolCalls, models.ToolCall{
				ID:           models.RID("tool_call", models.ToolCallID(msgID, seq)),
				Conversation: convRID,
				Message:      msgRID,
				Name:         tc.Name,
				Input:        tc.Input,
				Output:       tc.Output,
				Timestamp:    tc.Timestamp,
				DurationMS:   tc.DurationMS,
				IsError:      tc.IsError,
			})
		}

		seenMsgFiles := make(map[string]bool)
		addMsgFile := func(path, role string) {
			if path == "" || seenMsgFiles[path] {
				return
			}
			seenMsgFiles[path] = true
			rows.msgFiles = append(rows.msgFiles, models.MessageFile{
				ID:           models.RID("message_file", models.FileRelationID("message_file", msgID, path)),
				Conversation: convRID,
				Message:      msgRID,
				FilePath:     path,
				Role:         role,
			})
			addConvFile(path, role)
		}

		for _, fr := range mr.Files {
			addMsgFile(fr.Path, fr.Role)
		}
		for _, path := range ExtractFileMentions(mr.Content) {
			addMsgFile(path, models.FileRoleMentioned)
		}

		for seq, er := range mr.Edits {
			owner := fmt.Sprintf("%s:%d", msgID, seq)
			rows.fileEdits = append(rows.fileEdits, models.FileEdit{
				ID:           models.RID("file_edit", models.FileRelationID("file_edit", owner, er.Path)),
				Conversation: convRID,
				Message:      msgRID,
				FilePath:     er.Path,
				LinesAdded:   er.LinesAdded,
				LinesRemoved: er.LinesRemoved,
				Timestamp:    er.Timestamp,
			})
			msg.LinesAdded += er.LinesAdded
			msg.LinesRemoved += er.LinesRemoved
			conv.LinesAdded += er.LinesAdded
			conv.LinesRemoved += er.LinesRemoved
			addConvFile(er.Path, models.FileRoleEdited)
		}

		rows.messages = append(rows.messages, msg)
	}

	for _, fr := range rec.Files {
		addConvFile(fr.Path, fr.Role)
	}

	rows.conversation = conv
	return rows
}
