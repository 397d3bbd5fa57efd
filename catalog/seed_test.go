package catalog

import (
	"testing"

	"github.com/chmduquesne/rollinghash/buzhash32"
)

func TestSeedFilterNeverFalseNegative(t *testing.T) {
	patterns := []Pattern{
		{Name: "BC01", Bytes: []byte("ACGTACGTAC")},
		{Name: "BC02", Bytes: []byte("TTGGCCAATT")},
	}
	sf := buildSeedFilter(patterns)

	for _, p := range patterns {
		// The window equal to the full pattern necessarily contains
		// whatever 8-mer seed was chosen for it.
		if !sf.MayContainExact(p.Bytes) {
			t.Errorf("MayContainExact(%s) = false, want true (false negative)", p.Name)
		}
	}
}

func TestSeedFilterShortWindowIsAdvisory(t *testing.T) {
	sf := buildSeedFilter([]Pattern{{Name: "BC01", Bytes: []byte("ACGTACGTAC")}})
	if !sf.MayContainExact([]byte("AC")) {
		t.Errorf("MayContainExact on a too-short window should default to true (advisory)")
	}
}

func TestNilSeedFilterIsAdvisory(t *testing.T) {
	var sf *seedFilter
	if !sf.MayContainExact([]byte("ACGTACGTACGTACGT")) {
		t.Errorf("nil seedFilter should always report true")
	}
}

func TestBestSeedSkipsNBases(t *testing.T) {
	wk := make([]int, 25)
	hasher := buzhash32.New()
	seed := bestSeed([]byte("NNNNNNNNACGTACGT"), wk, hasher)
	if seed == nil {
		t.Fatalf("expected a seed that skips the leading N run")
	}
	if containsN(seed) {
		t.Errorf("bestSeed returned a seed containing N: %s", seed)
	}
}
