package repo

import (
	"reflect"
	"testing"
)

func TestFuseRRF_BothListsBeatSingle(t *testing.T) {
	// "b" appears in both lists, so it must outrank documents that only
	// appear in one, even when those lead their list.
	vector := []string{"a", "b", "c"}
	keyword := []string{"d", "b", "e"}

	fused := FuseRRF(DefaultRRFK, vector, keyword)
	if len(fused) != 5 {
		t.Fatalf("fused %d ids, want 5", len(fused))
	}
	if fused[0] != "b" {
		t.Errorf("top result = %q, want %q (present in both lists)", fused[0], "b")
	}
}

func TestFuseRRF_TiesKeepFirstAppearance(t *testing.T) {
	// "a" and "d" have identical scores (rank 0 in one list each); the one
	// seen first wins.
	fused := FuseRRF(60, []string{"a", "b"}, []string{"d", "e"})
	if fused[0] != "a" {
		t.Errorf("tie broken to %q, want first-seen %q", fused[0], "a")
	}
}

func TestFuseRRF_SingleList(t *testing.T) {
	in := []string{"x", "y", "z"}
	fused := FuseRRF(60, in)
	if !reflect.DeepEqual(fused, in) {
		t.Errorf("single list reordered: got %v, want %v", fused, in)
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	if got := FuseRRF(60); len(got) != 0 {
		t.Errorf("no input lists produced %v", got)
	}
	if got := FuseRRF(60, nil, []string{}); len(got) != 0 {
		t.Errorf("empty lists produced %v", got)
	}
}

func TestFuseRRF_SmallerKSharpensRankWeight(t *testing.T) {
	// With a tiny k the rank-1 double appearance of "b" still beats "a",
	// and with a huge k the ordering is unchanged; the fusion must be
	// stable across sensible k values for this shape.
	for _, k := range []int{1, 60, 1000} {
		fused := FuseRRF(k, []string{"a", "b"}, []string{"b", "a"})
		if len(fused) != 2 {
			t.Fatalf("k=%d: fused %d ids, want 2", k, len(fused))
		}
		// Both appear in both lists at mirrored ranks: scores tie, "a"
		// was seen first.
		if fused[0] != "a" {
			t.Errorf("k=%d: top = %q, want %q", k, fused[0], "a")
		}
	}
}
