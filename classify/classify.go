// Package classify applies the matcher over a record's windows, selects
// a sample assignment, and produces the trimmed, annotated output
// (spec.md §4.3).
package classify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cherryamme/ReadChop/catalog"
	"github.com/cherryamme/ReadChop/matcher"
	"github.com/cherryamme/ReadChop/utils"
	"github.com/cherryamme/ReadChop/window"
)

// Hit is the MatchHit of spec.md §3.
type Hit struct {
	PatternName string
	PatternType string
	PatternLen  int
	Position    int
	EditDist    int
	End         catalog.End
}

// Result is the ClassifiedRecord of spec.md §3.
type Result struct {
	Record      utils.Record
	Hits        []Hit
	OutputKey   string
	AnnotatedID string
	Seq         []byte
	Qual        []byte
	Unmatched   bool
	TooShort    bool
}

// UnmatchedKey is the reserved sample key for records failing
// classification (spec.md §4.5).
const UnmatchedKey = "unmatched"

// MatchSet holds one matcher.Compiled per catalog pattern, built once per
// run and shared read-only across worker goroutines (spec.md §5), the
// same "compile once, search many" discipline the teacher applies to its
// rolling-hash tables (muscato_screen.go genTables).
type MatchSet struct {
	cat     *catalog.Catalog
	compiled [2][]*matcher.Compiled
}

// NewMatchSet precompiles every pattern in cat for repeated searching.
func NewMatchSet(cat *catalog.Catalog) *MatchSet {
	ms := &MatchSet{cat: cat}
	for _, end := range []catalog.End{catalog.Left, catalog.Right} {
		pats := cat.Patterns(end)
		compiled := make([]*matcher.Compiled, len(pats))
		for i, p := range pats {
			compiled[i] = matcher.Compile(p.Bytes)
		}
		ms.compiled[end] = compiled
	}
	return ms
}

// Classify runs the full matching-and-routing decision for one record
// against cfg/ms, per spec.md §4.3.
func Classify(rec utils.Record, cfg *utils.Config, ms *MatchSet) Result {
	L := len(rec.Seq)
	if L < cfg.MinLength {
		return Result{Record: rec, OutputKey: UnmatchedKey, AnnotatedID: rec.ID, Seq: rec.Seq, Qual: rec.Qual, TooShort: true, Unmatched: true}
	}

	spec := window.Spec{Left: cfg.WindowLeft, Right: cfg.WindowRight}
	leftWin, rightWin := window.Extract(rec.Seq, spec)

	leftHits := candidateHits(catalog.Left, leftWin, ms, cfg)
	rightHits := candidateHits(catalog.Right, rightWin, ms, cfg)

	switch cfg.MatchMode {
	case utils.MatchDual:
		return classifyDual(rec, leftHits, rightHits, ms.cat, cfg)
	default:
		return classifySingle(rec, leftHits, rightHits, ms.cat, cfg)
	}
}

// candidateHits runs every pattern of the given end against win, applying
// per-end error rate, the global maxdist cap, use_position, and the
// shift-based dedup restricted to this one end (spec.md §4.3, §9 open
// question #3).
func candidateHits(end catalog.End, win window.Window, ms *MatchSet, cfg *utils.Config) []Hit {
	pats := ms.cat.Patterns(end)
	compiled := ms.compiled[end]
	if len(win.Bytes) == 0 || len(pats) == 0 {
		return nil
	}

	rate := cfg.ErrorRateL
	if end == catalog.Right {
		rate = cfg.ErrorRateR
	}

	seeds := ms.cat.SeedFilter(end)
	var hits []Hit
	for i, p := range pats {
		maxEdits := int(math.Floor(float64(len(p.Bytes)) * rate))
		if maxEdits > cfg.MaxDist {
			maxEdits = cfg.MaxDist
		}
		if maxEdits < 0 {
			maxEdits = 0
		}

		if maxEdits == 0 && seeds != nil && !seeds.MayContainExact(win.Bytes) {
			// Zero-edit prefilter (catalog/seed.go): no exact seed of
			// any pattern occurs in this window, so this pattern cannot
			// match at 0 edits. Patterns with a larger edit budget are
			// still searched.
			continue
		}

		offset, edits, ok := compiled[i].BestHit(win.Bytes, maxEdits)
		if !ok {
			continue
		}
		pos := win.Start + offset
		if cfg.UsePosition && !win.InBounds(pos) {
			continue
		}
		hits = append(hits, Hit{
			PatternName: p.Name,
			PatternType: p.Type,
			PatternLen:  len(p.Bytes),
			Position:    pos,
			EditDist:    edits,
			End:         end,
		})
	}

	return dedupEnd(hits, cfg.Shift)
}

// dedupEnd collapses hits within a single end whose position differs by
// at most shift and whose pattern name is identical, keeping the lowest
// edit distance (spec.md §4.3 "Hit deduplication").
func dedupEnd(hits []Hit, shift int) []Hit {
	if len(hits) <= 1 {
		return hits
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Position < hits[j].Position })

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		merged := false
		for i := range out {
			if out[i].PatternName == h.PatternName && abs(out[i].Position-h.Position) <= shift {
				if h.EditDist < out[i].EditDist {
					out[i] = h
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, h)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// selectEnd picks the best hit for one end: smallest edit distance first,
// then the end-specific position tie-break, then catalog order
// (spec.md §4.3 "Per-end selection").
func selectEnd(hits []Hit, end catalog.End) (Hit, bool) {
	if len(hits) == 0 {
		return Hit{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if better := compareHits(h, best, end); better {
			best = h
		}
	}
	return best, true
}

// compareHits reports whether a is preferred over b under the per-end
// tie-break rule. Catalog order is preserved by the caller passing hits
// in that order (dedupEnd's position sort is stable) and only replacing
// best on a strict improvement.
func compareHits(a, b Hit, end catalog.End) bool {
	if a.EditDist != b.EditDist {
		return a.EditDist < b.EditDist
	}
	if end == catalog.Left {
		return a.Position < b.Position
	}
	return a.Position > b.Position
}

func classifySingle(rec utils.Record, leftHits, rightHits []Hit, cat *catalog.Catalog, cfg *utils.Config) Result {
	leftBest, hasLeft := selectEnd(leftHits, catalog.Left)
	rightBest, hasRight := selectEnd(rightHits, catalog.Right)

	var chosen []Hit
	switch {
	case hasLeft && hasRight:
		// spec.md §4.3 "single" mode: prefer the lower-distance hit;
		// ties go to the left end (spec.md §9 open question #1: output
		// key is taken from the winning end alone).
		if leftBest.EditDist <= rightBest.EditDist {
			chosen = []Hit{leftBest}
		} else {
			chosen = []Hit{rightBest}
		}
	case hasLeft:
		chosen = []Hit{leftBest}
	case hasRight:
		chosen = []Hit{rightBest}
	default:
		return unmatched(rec)
	}

	h := chosen[0]
	var fwdName, revName string
	fwdKey, revKey := "none", "none"
	if h.End == catalog.Left {
		fwdName = h.PatternName
		fwdKey = h.PatternName
	} else {
		revName = h.PatternName
		revKey = h.PatternName
	}
	label, ok := cat.SampleLabel(fwdKey, revKey)
	if !ok {
		label = h.PatternType
	}

	return buildResult(rec, chosen, fwdName, revName, label, cfg)
}

func classifyDual(rec utils.Record, leftHits, rightHits []Hit, cat *catalog.Catalog, cfg *utils.Config) Result {
	leftBest, hasLeft := selectEnd(leftHits, catalog.Left)
	rightBest, hasRight := selectEnd(rightHits, catalog.Right)
	if !hasLeft || !hasRight {
		return unmatched(rec)
	}

	label, ok := cat.SampleLabel(leftBest.PatternName, rightBest.PatternName)
	if !ok {
		return unmatched(rec)
	}

	chosen := []Hit{leftBest, rightBest}
	return buildResult(rec, chosen, leftBest.PatternName, rightBest.PatternName, label, cfg)
}

func unmatched(rec utils.Record) Result {
	return Result{
		Record:    rec,
		OutputKey: UnmatchedKey,
		AnnotatedID: rec.ID,
		Seq:       rec.Seq,
		Qual:      rec.Qual,
		Unmatched: true,
	}
}

// buildResult applies trimming, ID annotation, and output-key derivation
// to a successful classification (spec.md §4.3).
func buildResult(rec utils.Record, hits []Hit, fwdName, revName, label string, cfg *utils.Config) Result {
	seq, qual := trim(rec.Seq, rec.Qual, hits, cfg.TrimMode)
	id := rec.ID + cfg.IDSep + annotate(hits, cfg)
	key := outputKey(fwdName, revName, label, cfg.WriteType)

	return Result{
		Record:      rec,
		Hits:        hits,
		OutputKey:   key,
		AnnotatedID: id,
		Seq:         seq,
		Qual:        qual,
	}
}

// trim implements spec.md §4.3's trimming rules. trim_mode=0 keeps only
// the bases between the inner edges of the left and right hits, removing
// the matched regions and everything outside them; trim_mode=k>0 retains
// the k outermost matched regions. hits holds at most one hit per end,
// so every hit is the outermost on its side and any k>0 returns the
// sequence unchanged (k>=3 is treated as a synonym of k=2, spec.md §9
// open question #2).
func trim(seq, qual []byte, hits []Hit, trimMode int) ([]byte, []byte) {
	if trimMode >= 2 {
		return seq, qual
	}

	var left, right *Hit
	for i := range hits {
		h := &hits[i]
		if h.End == catalog.Left {
			left = h
		} else {
			right = h
		}
	}

	a := 0
	if left != nil {
		a = left.Position + left.PatternLen
	}
	b := len(seq)
	if right != nil {
		b = right.Position
	}
	if a > b {
		a = b
	}

	if trimMode == 0 {
		return seq[a:b], qual[a:b]
	}

	// trim_mode=1: each hit is the outermost matched region on its own
	// end, so every hit is retained, nothing is excised, and the sequence
	// is returned unchanged.
	return seq, qual
}

// outputKey derives the per-record output routing key (spec.md §4.3
// "Output key derivation").
func outputKey(fwdName, revName, label string, wt utils.WriteType) string {
	if wt == utils.WriteSampleType {
		return label
	}
	switch {
	case fwdName != "" && revName != "":
		return fwdName + "_" + revName
	case fwdName != "":
		return fwdName
	case revName != "":
		return revName
	default:
		return UnmatchedKey
	}
}

// annotate builds the compact hit-description annotation appended after
// id_sep (spec.md §6 "FASTQ output"):
// end:L|R|LR;fwd=name,d=k,p=n;rev=name,d=k,p=n (fields omitted for the
// missing end).
func annotate(hits []Hit, cfg *utils.Config) string {
	var left, right *Hit
	for i := range hits {
		h := &hits[i]
		if h.End == catalog.Left {
			left = h
		} else {
			right = h
		}
	}

	var endTag string
	switch {
	case left != nil && right != nil:
		endTag = "LR"
	case left != nil:
		endTag = "L"
	case right != nil:
		endTag = "R"
	}

	parts := []string{"end:" + endTag}
	if left != nil {
		parts = append(parts, fmt.Sprintf("fwd=%s,d=%d,p=%d", left.PatternName, left.EditDist, left.Position))
	}
	if right != nil {
		parts = append(parts, fmt.Sprintf("rev=%s,d=%d,p=%d", right.PatternName, right.EditDist, right.Position))
	}
	return strings.Join(parts, ";")
}
