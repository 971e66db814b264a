package models

import "encoding/json"

// SourceRef records where a conversation came from. It is stored as a
// serialized string column because its shape varies per source tool.
type SourceRef struct {
	Source        string `json:"source"`
	OriginalID    string `json:"originalId"`
	WorkspacePath string `json:"workspacePath,omitempty"`
	OriginFile    string `json:"originFile,omitempty"`
}

// Encode serializes the ref for storage. Encoding a plain struct of strings
// cannot fail, so the error is swallowed.
func (r SourceRef) Encode() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// ParseSourceRef decodes a stored ref. A malformed stored value yields the
// zero ref rather than an error: the field is reconstructible from the
// canonical conversation id and must never abort a read.
func ParseSourceRef(s string) SourceRef {
	if s == "" {
		return SourceRef{}
	}
	var r SourceRef
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return SourceRef{}
	}
	return r
}
