package models

import surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

// File roles, in decreasing order of relevance to the conversation.
const (
	FileRoleEdited    = "edited"
	FileRoleContext   = "context"
	FileRoleMentioned = "mentioned"
)

// FileRoleScore maps a file role to its search weight.
func FileRoleScore(role string) float64 {
	switch role {
	case FileRoleEdited:
		return 1.0
	case FileRoleContext:
		return 0.5
	case FileRoleMentioned:
		return 0.3
	default:
		return 0.1
	}
}

// ConversationFile links a file to a conversation with a role.
type ConversationFile struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	FilePath     string                 `json:"file_path"`
	Role         string                 `json:"role"`
}

// MessageFile links a file to an individual message.
type MessageFile struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Message      surrealmodels.RecordID `json:"message"`
	FilePath     string                 `json:"file_path"`
	Role         string                 `json:"role"`
}

// FileEdit records a concrete edit applied to a file during a conversation.
type FileEdit struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Message      surrealmodels.RecordID `json:"message"`
	FilePath     string                 `json:"file_path"`
	LinesAdded   int                    `json:"lines_added"`
	LinesRemoved int                    `json:"lines_removed"`
	Timestamp    string                 `json:"timestamp"`
}
