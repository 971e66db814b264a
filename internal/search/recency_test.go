package search

import (
	"math"
	"testing"
	"time"
)

func TestRankScore_Decay(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt string
		want      float64
		tolerance float64
	}{
		{"same instant", "2026-08-28T12:00:00Z", 1.0, 1e-9},
		{"one day old", "2026-08-27T12:00:00Z", 0.997, 0.001},
		{"hundred days old", "2026-05-20T12:00:00Z", 0.810, 0.001},
		{"unparsable counts as current", "when it was tuesday", 1.0, 1e-9},
		{"future clamps to current", "2026-09-30T12:00:00Z", 1.0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankScore(1.0, tt.updatedAt, now)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("RankScore = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestRankScore_NeverBelowFloor(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	got := RankScore(1.0, "1999-01-01T00:00:00Z", now)
	if got < 0.7 || got > 0.71 {
		t.Errorf("ancient conversation score = %v, want just above the 0.7 floor", got)
	}
}

func TestRankScore_ScalesWithBestScore(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	half := RankScore(0.5, "2026-08-28T00:00:00Z", now)
	full := RankScore(1.0, "2026-08-28T00:00:00Z", now)
	if math.Abs(full-2*half) > 1e-9 {
		t.Errorf("decay is not linear in the match score: %v vs %v", full, half)
	}
}

func TestRankScore_RecentBeatsStaleOnEqualMatch(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	recent := RankScore(0.8, "2026-08-27T00:00:00Z", now)
	stale := RankScore(0.8, "2025-08-27T00:00:00Z", now)
	if recent <= stale {
		t.Errorf("recent %v should outrank stale %v at equal match quality", recent, stale)
	}
}

func TestRankScore_DateOnlyTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	got := RankScore(1.0, "2026-08-27", now)
	if math.Abs(got-0.997) > 0.001 {
		t.Errorf("date-only timestamp score = %v, want ≈0.997", got)
	}
}
