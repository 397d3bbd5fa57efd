// Package matcher implements the approximate (bounded edit distance)
// substring search of spec.md §4.2.
package matcher

import (
	"sync"

	"github.com/golang-collections/go-datastructures/bitarray"
)

// bases enumerates the nucleotide alphabet this matcher understands,
// including the wildcard N (spec.md §4.2 "N handling").
const bases = "ACGTN"

// Alphabet is the process-wide, read-only "allowed pair (p, h)" lookup
// described in spec.md §4.2: a precomputed 256x256 bit mask recording
// whether a pattern base p is allowed to align with a haystack base h
// (accounting for N wildcards on either side), initialized once and
// shared by every worker thread without locking thereafter.
//
// Backed by bitarray.BitArray (github.com/golang-collections/go-datastructures),
// the same library the teacher uses to back its per-window Bloom sketches
// in muscato_screen.go, here applied to a fixed 65536-bit table instead
// of a tunable-size sketch.
type Alphabet struct {
	mask bitarray.BitArray // 256*256 bits; bit (p<<8 | h) set iff p matches h
}

var (
	defaultAlphabet     *Alphabet
	defaultAlphabetOnce sync.Once
)

// DefaultAlphabet returns the process-wide Alphabet, building it on first
// use (spec.md §5: "computed once, read-only").
func DefaultAlphabet() *Alphabet {
	defaultAlphabetOnce.Do(func() {
		defaultAlphabet = NewAlphabet()
	})
	return defaultAlphabet
}

// NewAlphabet builds a fresh allowed-pair table. Exposed (not just the
// singleton) so tests can build an isolated instance without depending on
// global init order.
func NewAlphabet() *Alphabet {
	a := &Alphabet{mask: bitarray.NewBitArray(256 * 256)}

	for p := 0; p < 256; p++ {
		for h := 0; h < 256; h++ {
			if allowedPair(byte(p), byte(h)) {
				// SetBit's error is only non-nil for an out-of-range
				// index, which cannot happen for a fixed 0..65535 loop
				// over a 256*256-bit array.
				_ = a.mask.SetBit(uint64(p)<<8 | uint64(h))
			}
		}
	}
	return a
}

// allowedPair implements spec.md §4.2's N-wildcard rule: N in the pattern
// matches any haystack base for free, and N in the haystack matches any
// pattern base for free. Both sides are assumed upper-cased by the
// caller (Compile and Compiled.BestHit normalize case before searching).
func allowedPair(p, h byte) bool {
	if p == 'N' || h == 'N' {
		return true
	}
	return p == h
}

// Match reports whether pattern base p aligns with haystack base h.
func (a *Alphabet) Match(p, h byte) bool {
	ok, _ := a.mask.GetBit(uint64(p)<<8 | uint64(h))
	return ok
}

// upper upper-cases a single ASCII nucleotide byte in place semantics
// (a/c/g/t/n -> A/C/G/T/N), leaving anything else untouched.
func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// UpperCopy returns an upper-cased copy of seq, per spec.md §4.2 ("case
// is normalized to uppercase before matching").
func UpperCopy(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[i] = upper(b)
	}
	return out
}
