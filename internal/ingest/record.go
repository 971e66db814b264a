// Package ingest turns normalized transcript records from source adapters
// into store rows, with change detection so unchanged origin files are
// skipped on re-sync.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Record is the adapter contract: one conversation as extracted from an
// origin transcript file, before any store ids exist. Adapters for each
// source emit these as JSON, one object per line.
type Record struct {
	Source        string `json:"source"`
	OriginalID    string `json:"original_id"`
	OriginFile    string `json:"origin_file"`
	WorkspacePath string `json:"workspace_path"`

	Title     string `json:"title"`
	Model     string `json:"model"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	GitBranch string `json:"git_branch"`
	GitCommit string `json:"git_commit"`
	GitRemote string `json:"git_remote"`

	CompactionCount int `json:"compaction_count"`

	Messages []MessageRecord `json:"messages"`
	Files    []FileRecord    `json:"files"`
}

// MessageRecord is one turn of a Record.
type MessageRecord struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	InputTokens       int64 `json:"input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	CacheCreateTokens int64 `json:"cache_create_tokens"`
	CacheReadTokens   int64 `json:"cache_read_tokens"`

	IsCompactSummary bool   `json:"is_compact_summary"`
	SnapshotRef      string `json:"snapshot_ref"`

	ToolCalls []ToolCallRecord `json:"tool_calls"`
	Files     []FileRecord     `json:"files"`
	Edits     []EditRecord     `json:"edits"`
}

// ToolCallRecord is one tool invocation within a message.
type ToolCallRecord struct {
	Name       string `json:"name"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	Timestamp  string `json:"timestamp"`
	DurationMS int64  `json:"duration_ms"`
	IsError    bool   `json:"is_error"`
}

// FileRecord links a file path with a role to a conversation or message.
type FileRecord struct {
	Path string `json:"path"`
	Role string `json:"role"`
}

// EditRecord is a concrete edit applied to a file.
type EditRecord struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Timestamp    string `json:"timestamp"`
}

// BillingRecord is one billed API call from a provider export.
type BillingRecord struct {
	Timestamp         string  `json:"timestamp"`
	Model             string  `json:"model"`
	Kind              string  `json:"kind"`
	InputTokens       int64   `json:"input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	CacheCreateTokens int64   `json:"cache_create_tokens"`
	CacheReadTokens   int64   `json:"cache_read_tokens"`
	CostUSD           float64 `json:"cost_usd"`
}

// ReadRecords decodes newline-delimited JSON records from r. Lines that
// fail to decode are returned as errors with their line number.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record at line %d: %w", line, err)
		}
		if rec.Source == "" || rec.OriginalID == "" {
			return nil, fmt.Errorf("record at line %d missing source or original_id", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

// ReadRecordFile decodes records from a file path.
func ReadRecordFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadBillingRecords decodes newline-delimited billing records.
func ReadBillingRecords(r io.Reader) ([]BillingRecord, error) {
	var records []BillingRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec BillingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode billing record at line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read billing records: %w", err)
	}
	return records, nil
}
