package models

import (
	"fmt"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RID builds a record id for the given table and string id.
func RID(table, id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, id)
}

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// IDString extracts the string ID, returning "" for non-string ids. All ids
// in this store are derived hex strings, so a non-string id only appears on
// rows written by something else entirely.
func IDString(id surrealmodels.RecordID) string {
	s, _ := id.ID.(string)
	return s
}
