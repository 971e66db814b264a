package models

import surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

// SyncState tracks one (source, origin path) pair so collaborators can skip
// re-extraction when the origin file has not changed since the last sync.
type SyncState struct {
	ID           surrealmodels.RecordID `json:"id"`
	Source       string                 `json:"source"`
	OriginPath   string                 `json:"origin_path"`
	LastSyncedAt string                 `json:"last_synced_at"`
	LastModified string                 `json:"last_modified"`
}
