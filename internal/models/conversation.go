// Package models defines the normalized data model shared by all transcript
// sources: conversations, their child records, billing events and sync state.
//
// Optional fields are stored as their zero value (empty string / 0 / false)
// and treated as absent when read back equal to that zero value; the store
// has no nullable-column semantics in this design. Timestamps are RFC 3339
// strings so ordering reduces to lexical comparison.
package models

import surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

// TokenUsage aggregates token counts for a conversation.
//
// Peak is the maximum concurrent context across compaction segments; Sum is
// the total consumed across all calls. Both views are produced upstream by
// the source adapters and only carried here.
type TokenUsage struct {
	InputPeak       int64 `json:"input_peak"`
	InputSum        int64 `json:"input_sum"`
	OutputPeak      int64 `json:"output_peak"`
	OutputSum       int64 `json:"output_sum"`
	CacheCreatePeak int64 `json:"cache_create_peak"`
	CacheCreateSum  int64 `json:"cache_create_sum"`
	CacheReadPeak   int64 `json:"cache_read_peak"`
	CacheReadSum    int64 `json:"cache_read_sum"`
}

// Conversation is an immutable snapshot of one assistant session. Re-sync
// replaces the row and all children wholesale; there is no in-place patching.
type Conversation struct {
	ID            surrealmodels.RecordID `json:"id"`
	Source        string                 `json:"source"`
	Title         string                 `json:"title"`
	WorkspacePath string                 `json:"workspace_path"`
	Model         string                 `json:"model"`
	Mode          string                 `json:"mode"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`

	// MessageCount mirrors the number of persisted message rows for this id.
	MessageCount int `json:"message_count"`

	// SourceRef is the serialized SourceRef; parse with ParseSourceRef.
	SourceRef string `json:"source_ref"`

	Tokens          TokenUsage `json:"tokens"`
	LinesAdded      int        `json:"lines_added"`
	LinesRemoved    int        `json:"lines_removed"`
	CompactionCount int        `json:"compaction_count"`

	GitBranch string `json:"git_branch"`
	GitCommit string `json:"git_commit"`
	GitRemote string `json:"git_remote"`
}

// Ref parses the stored source ref, falling back to the canonical source
// field when the stored value is malformed.
func (c Conversation) Ref() SourceRef {
	ref := ParseSourceRef(c.SourceRef)
	if ref.Source == "" {
		ref.Source = c.Source
	}
	return ref
}

// ConversationMeta is the slim view used by sync collaborators to detect
// "already indexed but has grown" without re-parsing content.
type ConversationMeta struct {
	ID           surrealmodels.RecordID `json:"id"`
	MessageCount int                    `json:"message_count"`
	UpdatedAt    string                 `json:"updated_at"`
}
