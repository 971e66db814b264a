package models

import surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

// ToolCall is one tool invocation made by an assistant message.
type ToolCall struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Message      surrealmodels.RecordID `json:"message"`
	Name         string                 `json:"name"`
	Input        string                 `json:"input"`
	Output       string                 `json:"output"`
	Timestamp    string                 `json:"timestamp"`
	DurationMS   int64                  `json:"duration_ms"`
	IsError      bool                   `json:"is_error"`
}
