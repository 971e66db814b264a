package search

import "github.com/mfeldheim/hindsight/internal/models"

// Adjacent-context thresholds. A terse user message ("fix the auth bug") is
// only meaningful next to the assistant's answer; a matched answer is only
// meaningful under the question that prompted it.
const (
	shortUserMatchLen   = 150
	shortUserContextLen = 300
	adjacentContextLen  = 200
)

// AdjacentContext returns the neighboring text to attach to a match, or "".
//
// A short user message immediately followed by an assistant message at
// messageIndex+1 gets that answer's leading characters; an assistant match
// preceded by a short user message gets that question.
func AdjacentContext(match models.Message, byIndex map[int]models.Message) string {
	switch match.Role {
	case models.RoleUser:
		if len(match.Content) >= shortUserMatchLen {
			return ""
		}
		next, ok := byIndex[match.MessageIndex+1]
		if !ok || next.Role != models.RoleAssistant {
			return ""
		}
		return leading(next.Content, adjacentContextLen)

	case models.RoleAssistant:
		prev, ok := byIndex[match.MessageIndex-1]
		if !ok || prev.Role != models.RoleUser || len(prev.Content) >= shortUserContextLen {
			return ""
		}
		return prev.Content
	}
	return ""
}

func leading(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeStart(s, n)]
}
