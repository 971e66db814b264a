package repo

import "sort"

// DefaultRRFK is the reciprocal-rank-fusion constant. It damps the gap
// between adjacent ranks so neither sub-list dominates the fused order.
const DefaultRRFK = 60

// FuseRRF combines ranked id lists with reciprocal rank fusion:
// score_i = sum over lists of 1/(k + rank_i_in_list), rank starting at 1.
// Fused scores are monotonic in rank within each list, never in the raw
// similarity values, so differently-scaled vector and BM25 scores cannot
// dominate each other. Ties keep first-appearance order, which makes the
// result deterministic.
func FuseRRF(k int, lists ...[]string) []string {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		id        string
		score     float64
		firstSeen int
	}

	byID := make(map[string]*fused)
	order := make([]*fused, 0)
	seen := 0

	for _, list := range lists {
		for rank, id := range list {
			f, ok := byID[id]
			if !ok {
				f = &fused{id: id, firstSeen: seen}
				seen++
				byID[id] = f
				order = append(order, f)
			}
			f.score += 1.0 / float64(k+rank+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].firstSeen < order[j].firstSeen
	})

	out := make([]string, len(order))
	for i, f := range order {
		out[i] = f.id
	}
	return out
}
