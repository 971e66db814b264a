package ingest

import (
	"regexp"
	"strings"
)

var (
	// Rendered tool-output blocks embedded in assistant text. These are
	// stripped before indexing so search ranks conversational text, not
	// command dumps.
	toolOutputRegex = regexp.MustCompile(`(?s)<tool_output>.*?</tool_output>`)
	fencedRegex     = regexp.MustCompile("(?s)```tool_output\n.*?```")

	// File paths mentioned inline, either backtick-quoted or bare
	// slash-containing tokens with a file extension.
	backtickPathRegex = regexp.MustCompile("`([~./\\w-]+/[\\w./-]+)`")
	barePathRegex     = regexp.MustCompile(`(?:^|\s)((?:~/|\./|/)[\w./-]+\.\w{1,8})`)
)

// StripToolOutput removes rendered tool-output blocks from message content,
// producing the text that is indexed and embedded.
func StripToolOutput(content string) string {
	s := toolOutputRegex.ReplaceAllString(content, "")
	s = fencedRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractFileMentions finds file paths referenced in message text.
// Duplicates are collapsed, first occurrence order is kept.
func ExtractFileMentions(content string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	for _, match := range backtickPathRegex.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	for _, match := range barePathRegex.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	return paths
}
