package models

import surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn within a conversation. MessageIndex is the
// canonical ordering key; physical row order carries no meaning.
type Message struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Role         string                 `json:"role"`

	// Content is the raw text, possibly with rendered tool-output blocks
	// embedded. IndexedContent has those blocks stripped and is what the
	// full-text index and embeddings are built over, so search ranks on
	// conversational text rather than tool dumps.
	Content        string `json:"content"`
	IndexedContent string `json:"indexed_content"`

	Timestamp    string `json:"timestamp"`
	MessageIndex int    `json:"message_index"`

	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	LinesAdded   int   `json:"lines_added"`
	LinesRemoved int   `json:"lines_removed"`

	// Embedding stays zero-filled until the backfill job embeds
	// IndexedContent asynchronously.
	Embedding []float32 `json:"embedding"`

	IsCompactSummary bool   `json:"is_compact_summary"`
	SnapshotRef      string `json:"snapshot_ref"`
}

// HasEmbedding reports whether the vector column has been backfilled.
// A zero-filled vector counts as absent.
func (m Message) HasEmbedding() bool {
	for _, v := range m.Embedding {
		if v != 0 {
			return true
		}
	}
	return false
}
