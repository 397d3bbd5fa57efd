package classify

import (
	"testing"

	"github.com/cherryamme/ReadChop/catalog"
	"github.com/cherryamme/ReadChop/utils"
)

func mustCatalog(t *testing.T, db, index string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load([]byte(db), []byte(index))
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return cat
}

func baseConfig() *utils.Config {
	cfg := &utils.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Scenario 1 (spec.md §8): single-end, exact match, trim.
func TestClassifySingleEndExactMatchTrims(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\n", "BC01\tnone\tsample_a\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchSingle
	cfg.TrimMode = 0
	cfg.WriteType = utils.WriteNames
	cfg.MinLength = 0

	rec := utils.Record{ID: "r1", Seq: []byte("ACGTACGTGGGGGGGGGG"), Qual: []byte("IIIIIIIIIIIIIIIIII")}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if result.Unmatched || result.TooShort {
		t.Fatalf("expected a match, got unmatched=%v tooShort=%v", result.Unmatched, result.TooShort)
	}
	if result.OutputKey != "BC01" {
		t.Errorf("OutputKey = %q, want BC01", result.OutputKey)
	}
	if result.AnnotatedID != "r1%end:L;fwd=BC01,d=0,p=0" {
		t.Errorf("AnnotatedID = %q, want %q", result.AnnotatedID, "r1%end:L;fwd=BC01,d=0,p=0")
	}
	if string(result.Seq) != "GGGGGGGGGG" {
		t.Errorf("Seq = %q, want %q", result.Seq, "GGGGGGGGGG")
	}
	if string(result.Qual) != "IIIIIIIIII" {
		t.Errorf("Qual = %q, want %q", result.Qual, "IIIIIIIIII")
	}
}

// Scenario 2 (spec.md §8): single-end, no match.
func TestClassifySingleEndNoMatch(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\n", "BC01\tnone\tsample_a\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchSingle
	cfg.MinLength = 0

	rec := utils.Record{ID: "r2", Seq: []byte("TTTTTTTTTTTTTTTT"), Qual: []byte("IIIIIIIIIIIIIIII")}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if !result.Unmatched {
		t.Fatalf("expected unmatched, got OutputKey=%q", result.OutputKey)
	}
	if string(result.Seq) != "TTTTTTTTTTTTTTTT" {
		t.Errorf("unmatched records must pass the sequence through unchanged, got %q", result.Seq)
	}
}

// Scenario 3 (spec.md §8): dual-end, both ends matched. The literal
// scenario reuses the name BC01 on both ends with different bytes
// (forward BC01=ACGTACGT, reverse BC01=TTTTAAAA); catalog.Load's flat
// name->bytes database can't bind one name to two byte strings, so the
// reverse pattern is named BC01R here instead. See DESIGN.md's Open
// Question decisions ("Cross-end pattern-name reuse").
func TestClassifyDualEndBothMatched(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\nBC01R\tTTTTAAAA\n", "BC01\tBC01R\tONT-BC01\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchDual
	cfg.WriteType = utils.WriteSampleType
	cfg.TrimMode = 0
	cfg.WindowLeft, cfg.WindowRight = 10, 10
	cfg.ErrorRateL, cfg.ErrorRateR = 0.2, 0.2
	cfg.MinLength = 0

	rec := utils.Record{ID: "r3", Seq: []byte("ACGTACGTNNNNTTTTAAAA"), Qual: []byte("IIIIIIIIIIIIIIIIIIII")}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if result.Unmatched {
		t.Fatalf("expected a dual-end match")
	}
	if result.OutputKey != "ONT-BC01" {
		t.Errorf("OutputKey = %q, want ONT-BC01", result.OutputKey)
	}
	wantID := "r3%end:LR;fwd=BC01,d=0,p=0;rev=BC01R,d=0,p=12"
	if result.AnnotatedID != wantID {
		t.Errorf("AnnotatedID = %q, want %q", result.AnnotatedID, wantID)
	}
	if string(result.Seq) != "NNNN" {
		t.Errorf("Seq = %q, want %q", result.Seq, "NNNN")
	}
}

// Variant of spec.md §8 scenario 4 (dual-end, reverse barcode genuinely
// absent): the spec's own illustrative input pads the reverse end with
// literal Ns, but spec.md §4.2's N-wildcard rule ("N in haystack matches
// any base for free") makes an all-N window match any reverse pattern at
// distance 0, which would make that scenario not actually exercise a
// missing-reverse path under a literal implementation of §4.2. This test
// exercises the same control-flow point (forward matches, reverse does
// not) with a reverse window that cannot match under any wildcard rule.
func TestClassifyDualEndReverseMissing(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\nBC01R\tTTTTAAAA\n", "BC01\tBC01R\tONT-BC01\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchDual
	cfg.WindowLeft, cfg.WindowRight = 10, 10
	cfg.ErrorRateL, cfg.ErrorRateR = 0.2, 0.2
	cfg.MinLength = 0

	rec := utils.Record{ID: "r4", Seq: []byte("ACGTACGTGGGGGGGGGGGG"), Qual: []byte("IIIIIIIIIIIIIIIIIIII")}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if !result.Unmatched {
		t.Fatalf("expected unmatched when the reverse barcode is absent, got OutputKey=%q", result.OutputKey)
	}
}

// Scenario 5 (spec.md §8): barcode outside narrow windows is never found,
// regardless of use_position.
func TestClassifyBarcodeOutsideWindow(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\n", "BC01\tnone\tsample_a\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchSingle
	cfg.WindowLeft, cfg.WindowRight = 5, 5
	cfg.UsePosition = false
	cfg.MinLength = 0

	seq := make([]byte, 40)
	for i := range seq {
		seq[i] = 'G'
	}
	copy(seq[20:], "ACGTACGT")
	rec := utils.Record{ID: "r5", Seq: seq, Qual: make([]byte, 40)}
	for i := range rec.Qual {
		rec.Qual[i] = 'I'
	}

	result := Classify(rec, cfg, NewMatchSet(cat))
	if !result.Unmatched {
		t.Fatalf("expected unmatched since the barcode falls outside both 5-base windows")
	}
}

// Scenario 6 (spec.md §8): too-short record.
func TestClassifyTooShort(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\n", "BC01\tnone\tsample_a\n")
	cfg := baseConfig()
	cfg.MinLength = 100

	rec := utils.Record{ID: "r6", Seq: make([]byte, 50), Qual: make([]byte, 50)}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if !result.TooShort || !result.Unmatched {
		t.Fatalf("expected TooShort and Unmatched, got TooShort=%v Unmatched=%v", result.TooShort, result.Unmatched)
	}
}

// A single-end match with write_type=type must resolve its sample label
// through the catalog's "none" convention for the unmatched side, not an
// empty string.
func TestClassifySingleEndSampleLabelUsesNoneConvention(t *testing.T) {
	cat := mustCatalog(t, "BC01\tACGTACGT\n", "BC01\tnone\tsample_a\n")
	cfg := baseConfig()
	cfg.MatchMode = utils.MatchSingle
	cfg.WriteType = utils.WriteSampleType
	cfg.MinLength = 0

	rec := utils.Record{ID: "r1b", Seq: []byte("ACGTACGTGGGGGGGGGG"), Qual: []byte("IIIIIIIIIIIIIIIIII")}
	result := Classify(rec, cfg, NewMatchSet(cat))

	if result.OutputKey != "sample_a" {
		t.Errorf("OutputKey = %q, want sample_a", result.OutputKey)
	}
}

func TestDedupEndCollapsesNearbyHits(t *testing.T) {
	hits := []Hit{
		{PatternName: "BC01", Position: 10, EditDist: 2},
		{PatternName: "BC01", Position: 11, EditDist: 0},
		{PatternName: "BC02", Position: 11, EditDist: 1},
	}
	out := dedupEnd(hits, 3)
	if len(out) != 2 {
		t.Fatalf("dedupEnd returned %d hits, want 2", len(out))
	}
	for _, h := range out {
		if h.PatternName == "BC01" && h.EditDist != 0 {
			t.Errorf("BC01 hit kept the worse edit distance: %+v", h)
		}
	}
}

func TestOutputKeyDerivation(t *testing.T) {
	tests := []struct {
		fwd, rev, label string
		wt              utils.WriteType
		want            string
	}{
		{"BC01", "", "sample_a", utils.WriteNames, "BC01"},
		{"BC01", "BC02", "sample_b", utils.WriteNames, "BC01_BC02"},
		{"BC01", "BC02", "sample_b", utils.WriteSampleType, "sample_b"},
		{"", "", "", utils.WriteNames, UnmatchedKey},
	}
	for _, test := range tests {
		if got := outputKey(test.fwd, test.rev, test.label, test.wt); got != test.want {
			t.Errorf("outputKey(%q,%q,%q,%v) = %q, want %q", test.fwd, test.rev, test.label, test.wt, got, test.want)
		}
	}
}
