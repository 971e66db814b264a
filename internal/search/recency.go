package search

import (
	"math"
	"time"
)

// Recency decay keeps search useful on long-lived corpora: a stale
// conversation needs a meaningfully better match to outrank a recent one,
// but never decays below 70% of its undecayed score.
const (
	recencyFloor  = 0.7
	recencyWeight = 0.3
	recencyRate   = 0.01
)

// RankScore applies the recency decay to a conversation's best match score:
// bestScore * (0.7 + 0.3 * e^(-0.01 * daysSinceUpdate)). The display score
// stays the undecayed bestScore; RankScore only orders conversation groups.
func RankScore(bestScore float64, updatedAt string, now time.Time) float64 {
	days := daysSince(updatedAt, now)
	return bestScore * (recencyFloor + recencyWeight*math.Exp(-recencyRate*days))
}

// daysSince parses a stored timestamp and returns elapsed days, clamped at
// zero. An unparsable timestamp counts as current, which leaves the score
// undecayed instead of burying the conversation.
func daysSince(updatedAt string, now time.Time) float64 {
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		t, err = time.Parse("2006-01-02", updatedAt)
		if err != nil {
			return 0
		}
	}
	days := now.Sub(t).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}
