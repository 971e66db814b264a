package models

// RowID implementations let generic repository code diff rows by derived id.

func (c Conversation) RowID() string     { return IDString(c.ID) }
func (m Message) RowID() string          { return IDString(m.ID) }
func (t ToolCall) RowID() string         { return IDString(t.ID) }
func (f ConversationFile) RowID() string { return IDString(f.ID) }
func (f MessageFile) RowID() string      { return IDString(f.ID) }
func (f FileEdit) RowID() string         { return IDString(f.ID) }
func (b BillingEvent) RowID() string     { return IDString(b.ID) }
func (s SyncState) RowID() string        { return IDString(s.ID) }
