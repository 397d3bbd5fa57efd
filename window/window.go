// Package window carves the 5' and 3' search windows out of a record's
// sequence (spec.md §4.3).
package window

// Spec is the WindowSpec of spec.md §3: the number of bases from the 5'
// and 3' ends of a sequence that are candidate search regions.
type Spec struct {
	Left, Right int
}

// Window describes one end's extracted slice of a record, in the
// record's own coordinates.
type Window struct {
	Bytes []byte
	Start int // offset of Bytes[0] within the original sequence
}

// Extract carves the left and right windows out of seq following
// spec.md §4.3: "left window is sequence[0..min(L,left_len)]; right
// window is sequence[max(0,L-right_len)..L]". Windows may overlap when
// left_len+right_len > L; both are still returned as their full (possibly
// overlapping) slices, exactly as spec.md requires ("classification then
// runs both searches on the smaller respective slice" is handled by the
// caller simply running both searches against these, independently sized,
// slices).
func Extract(seq []byte, spec Spec) (left, right Window) {
	L := len(seq)

	leftLen := spec.Left
	if leftLen > L {
		leftLen = L
	}
	left = Window{Bytes: seq[0:leftLen], Start: 0}

	rightStart := L - spec.Right
	if rightStart < 0 {
		rightStart = 0
	}
	right = Window{Bytes: seq[rightStart:L], Start: rightStart}

	return left, right
}

// InBounds reports whether a hit starting at position lies within the
// window belonging to end, used when use_position=true (spec.md §3/§4.3).
func (w Window) InBounds(position int) bool {
	return position >= w.Start && position < w.Start+len(w.Bytes)
}
