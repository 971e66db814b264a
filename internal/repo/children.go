package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// Children is the shared repository shape for the child tables keyed by
// conversation: tool_call, conversation_file, message_file and file_edit.
// Their operation surface is symmetric, so one generic implementation
// serves all four.
type Children[T row] struct {
	c     *store.Client
	log   *slog.Logger
	table string
}

// NewToolCalls creates the tool call repository.
func NewToolCalls(c *store.Client, log *slog.Logger) *Children[models.ToolCall] {
	return &Children[models.ToolCall]{c: c, log: log, table: "tool_call"}
}

// NewConversationFiles creates the conversation file repository.
func NewConversationFiles(c *store.Client, log *slog.Logger) *Children[models.ConversationFile] {
	return &Children[models.ConversationFile]{c: c, log: log, table: "conversation_file"}
}

// NewMessageFiles creates the message file repository.
func NewMessageFiles(c *store.Client, log *slog.Logger) *Children[models.MessageFile] {
	return &Children[models.MessageFile]{c: c, log: log, table: "message_file"}
}

// NewFileEdits creates the file edit repository.
func NewFileEdits(c *store.Client, log *slog.Logger) *Children[models.FileEdit] {
	return &Children[models.FileEdit]{c: c, log: log, table: "file_edit"}
}

// Table returns the backing table name.
func (r *Children[T]) Table() string { return r.table }

// BulkInsert inserts rows in one batch. All-or-nothing per call.
func (r *Children[T]) BulkInsert(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, r.table+".bulkInsert", func(ctx context.Context) error {
		if err := exec(ctx, r.c, fmt.Sprintf("INSERT INTO %s $docs", r.table), map[string]any{"docs": rows}); err != nil {
			return fmt.Errorf("bulk insert %s: %w", r.table, err)
		}
		return nil
	})
}

// BulkInsertNew filters out already-present ids, inserts the remainder and
// returns the count inserted.
func (r *Children[T]) BulkInsertNew(ctx context.Context, rows []T, existingIDs map[string]bool) (int, error) {
	fresh := make([]T, 0, len(rows))
	for _, row := range rows {
		if !existingIDs[row.RowID()] {
			fresh = append(fresh, row)
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

// GetExistingIDs returns which of the candidate ids are stored.
func (r *Children[T]) GetExistingIDs(ctx context.Context, candidateIDs []string) (map[string]bool, error) {
	return store.WithRetry(ctx, r.log, r.c, r.table+".getExistingIds", func(ctx context.Context) (map[string]bool, error) {
		return idSet(ctx, r.c, r.table, candidateIDs)
	})
}

// FindByConversation returns all rows belonging to one conversation.
func (r *Children[T]) FindByConversation(ctx context.Context, conversationID string) ([]T, error) {
	return store.WithRetry(ctx, r.log, r.c, r.table+".findByConversation", func(ctx context.Context) ([]T, error) {
		rows, err := query[T](ctx, r.c,
			fmt.Sprintf("SELECT * FROM %s WHERE conversation = $conv", r.table),
			map[string]any{"conv": models.RID("conversation", conversationID)})
		if err != nil {
			return nil, fmt.Errorf("find %s by conversation: %w", r.table, err)
		}
		return rows, nil
	})
}

// FindByMessage returns all rows belonging to one message. Only meaningful
// for tables carrying a message field (tool_call, message_file, file_edit).
func (r *Children[T]) FindByMessage(ctx context.Context, messageID string) ([]T, error) {
	return store.WithRetry(ctx, r.log, r.c, r.table+".findByMessage", func(ctx context.Context) ([]T, error) {
		rows, err := query[T](ctx, r.c,
			fmt.Sprintf("SELECT * FROM %s WHERE message = $msg", r.table),
			map[string]any{"msg": models.RID("message", messageID)})
		if err != nil {
			return nil, fmt.Errorf("find %s by message: %w", r.table, err)
		}
		return rows, nil
	})
}

// FindByFile returns all rows referencing one exact file path.
func (r *Children[T]) FindByFile(ctx context.Context, filePath string) ([]T, error) {
	return store.WithRetry(ctx, r.log, r.c, r.table+".findByFile", func(ctx context.Context) ([]T, error) {
		rows, err := query[T](ctx, r.c,
			fmt.Sprintf("SELECT * FROM %s WHERE file_path = $path", r.table),
			map[string]any{"path": filePath})
		if err != nil {
			return nil, fmt.Errorf("find %s by file: %w", r.table, err)
		}
		return rows, nil
	})
}

// All returns every row of the table, for in-memory scans.
func (r *Children[T]) All(ctx context.Context) ([]T, error) {
	return store.WithRetry(ctx, r.log, r.c, r.table+".all", func(ctx context.Context) ([]T, error) {
		rows, err := query[T](ctx, r.c, fmt.Sprintf("SELECT * FROM %s", r.table), nil)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		return rows, nil
	})
}

// DeleteByConversationIDs removes all rows of the given conversations,
// batching ids into bounded disjunctions.
func (r *Children[T]) DeleteByConversationIDs(ctx context.Context, conversationIDs ...string) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, r.table+".deleteByConversation", func(ctx context.Context) error {
		for _, group := range chunk(conversationIDs, deleteChunk) {
			if err := exec(ctx, r.c,
				fmt.Sprintf("DELETE %s WHERE conversation IN $ids", r.table),
				map[string]any{"ids": recordIDs("conversation", group)}); err != nil {
				return fmt.Errorf("delete %s: %w", r.table, err)
			}
		}
		return nil
	})
}
