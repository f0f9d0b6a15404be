package pixels

import "github.com/janelia-flyem/ezimage/ezimage"

// overhangs computes the per-axis out-of-bounds extent of a request against
// the extent of the active resolution level.  An axis requesting zero
// elements reads nothing and can't overhang, wherever it starts.
func overhangs(start ezimage.Coords5d, lengths, extent ezimage.Lengths5d) ezimage.Lengths5d {
	var over ezimage.Lengths5d
	for axis := 0; axis < ezimage.NumAxes; axis++ {
		if lengths[axis] == 0 {
			continue
		}
		if o := start[axis] + lengths[axis] - extent[axis]; o > 0 {
			over[axis] = o
		}
	}
	return over
}

// anyOverhang reports whether any axis exceeds its extent.
func anyOverhang(over ezimage.Lengths5d) bool {
	for axis := 0; axis < ezimage.NumAxes; axis++ {
		if over[axis] > 0 {
			return true
		}
	}
	return false
}

// clip reduces the fetch lengths by their overhang so only in-bounds data
// is requested.  A start coordinate at or past the extent leaves a zero
// (empty) axis rather than an error; the corresponding buffer region stays
// zero-filled.
func clip(lengths, over ezimage.Lengths5d) ezimage.Lengths5d {
	var eff ezimage.Lengths5d
	for axis := 0; axis < ezimage.NumAxes; axis++ {
		eff[axis] = lengths[axis] - over[axis]
		if eff[axis] < 0 {
			eff[axis] = 0
		}
	}
	return eff
}
