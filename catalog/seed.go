package catalog

import (
	"github.com/chmduquesne/rollinghash/buzhash32"
	"github.com/cherryamme/ReadChop/utils"
	"github.com/willf/bloom"
)

// seedLen is the length of the exact-match "seed" extracted from each
// pattern for the Bloom prefilter below. Chosen short enough that every
// barcode in practice (commonly >=8 bases) contributes at least one seed.
const seedLen = 8

// seedFilter is a zero-edit prefilter over one end's pattern set,
// following the teacher's muscato_screen.go Bloom-sketch idea
// (rolling-hash-selected high-entropy k-mers folded into a bit-array
// backed Bloom filter) but applied to barcode patterns instead of reads.
// It never produces a false negative: a window it reports as "no seed"
// genuinely contains none of the patterns' exact seed k-mers, so an
// exact (max_edits=0) match is impossible. It is consulted only for a
// pattern whose max_edits is exactly 0, and then skips only that pattern;
// spec.md's matcher is always run in full for max_edits>0.
type seedFilter struct {
	bf *bloom.BloomFilter
}

// buildSeedFilter picks one high-entropy, N-free seed per pattern (via
// the teacher's dinucleotide-diversity check, utils.CountDinuc) and folds
// it into a shared Bloom filter sized for the pattern set. If any pattern
// has no such seed (shorter than seedLen, or N in every seedLen-long
// stretch), it returns nil, which MayContainExact treats as "always true".
func buildSeedFilter(patterns []Pattern) *seedFilter {
	n := uint(len(patterns))
	if n == 0 {
		n = 1
	}
	bf := bloom.New(n*64+64, 5)

	wk := make([]int, 25)
	hasher := buzhash32.New()

	for _, p := range patterns {
		seed := bestSeed(p.Bytes, wk, hasher)
		if seed == nil {
			return nil
		}
		bf.Add(seed)
	}

	return &seedFilter{bf: bf}
}

// bestSeed returns the seedLen-long, N-free substring of bases with the
// highest dinucleotide diversity (utils.CountDinuc), breaking ties by the
// smaller buzhash32 fingerprint. hasher is reused across calls purely to avoid
// reallocating the buzhash32 state (the rolling hash itself is used only
// to give each candidate a cheap fingerprint for tie-breaking; membership
// is ultimately decided by the Bloom filter on the raw bytes).
func bestSeed(bases []byte, wk []int, hasher *buzhash32.Buzhash32) []byte {
	if len(bases) < seedLen {
		return nil
	}

	var best []byte
	bestScore := -1
	var bestHash uint32

	for start := 0; start+seedLen <= len(bases); start++ {
		cand := bases[start : start+seedLen]
		if containsN(cand) {
			continue
		}
		score := utils.CountDinuc(cand, wk)

		hasher.Reset()
		hasher.Write(cand)
		h := hasher.Sum32()

		if score > bestScore || (score == bestScore && h < bestHash) {
			best = cand
			bestScore = score
			bestHash = h
		}
	}
	return best
}

func containsN(b []byte) bool {
	for _, c := range b {
		if c == 'N' {
			return true
		}
	}
	return false
}

// MayContainExact reports whether window could contain an exact (0-edit)
// occurrence of any pattern's seed. A false return is a hard guarantee
// that no 0-edit match exists anywhere in window; a true return is only
// advisory (the caller must still run the real matcher).
func (sf *seedFilter) MayContainExact(window []byte) bool {
	if sf == nil || len(window) < seedLen {
		return true
	}
	for _, b := range window {
		switch b {
		case 'A', 'C', 'G', 'T':
		default:
			// N wildcards and lowercase bases can match a pattern at 0
			// edits without containing its seed bytes.
			return true
		}
	}
	for start := 0; start+seedLen <= len(window); start++ {
		if sf.bf.Test(window[start : start+seedLen]) {
			return true
		}
	}
	return false
}
