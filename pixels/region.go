package pixels

import (
	"fmt"

	"github.com/janelia-flyem/ezimage/ezimage"
)

// Region describes the pixel subregion a caller wants from an image.  The
// zero value requests the entire image at full resolution in canonical
// (T,Z,Y,X,C) order.
type Region struct {
	// StartCoords is the XYZCT starting coordinate.  Nil defaults to the
	// zero coordinate on every axis; otherwise it must have length 5.
	StartCoords []int32

	// AxisLengths is the XYZCT extent of the region.  Nil defaults to the
	// full remaining extent from StartCoords to the edge of the selected
	// resolution level; otherwise it must have length 5.
	AxisLengths []int32

	// PyramidLevel selects a precomputed resolution level, 0 being full
	// resolution.
	PyramidLevel int

	// Pad zero-fills any part of the region beyond the level's extent
	// instead of failing with ezimage.ErrOutOfBounds.
	Pad bool

	// XYZCT reorders the returned view to (X,Y,Z,C,T).
	XYZCT bool

	// DimOrder is an explicit output axis order containing the letters
	// x, y, z, c, t exactly once.  When set, XYZCT is ignored.
	DimOrder string

	// NoPixels skips pixel retrieval entirely, returning metadata only.
	NoPixels bool
}

// validate rejects malformed requests before any network access.
func (r Region) validate() error {
	if r.StartCoords != nil && len(r.StartCoords) != ezimage.NumAxes {
		return fmt.Errorf("start coords must have length 5 (XYZCT), got %d: %w",
			len(r.StartCoords), ezimage.ErrInvalidArgument)
	}
	for _, sc := range r.StartCoords {
		if sc < 0 {
			return fmt.Errorf("start coords must be non-negative, got %v: %w",
				r.StartCoords, ezimage.ErrInvalidArgument)
		}
	}
	if r.AxisLengths != nil && len(r.AxisLengths) != ezimage.NumAxes {
		return fmt.Errorf("axis lengths must have length 5 (XYZCT), got %d: %w",
			len(r.AxisLengths), ezimage.ErrInvalidArgument)
	}
	for _, al := range r.AxisLengths {
		if al < 0 {
			return fmt.Errorf("axis lengths must be non-negative, got %v: %w",
				r.AxisLengths, ezimage.ErrInvalidArgument)
		}
	}
	if r.PyramidLevel < 0 {
		return fmt.Errorf("pyramid level must be non-negative, got %d: %w",
			r.PyramidLevel, ezimage.ErrInvalidArgument)
	}
	if r.DimOrder != "" {
		if _, err := ezimage.DimOrderString(r.DimOrder).Permutation(); err != nil {
			return err
		}
	}
	return nil
}

// resolve fills in the request defaults against the extent of the selected
// resolution level, returning the fully-populated start and lengths.
func (r Region) resolve(extent ezimage.Lengths5d) (start ezimage.Coords5d, lengths ezimage.Lengths5d) {
	if r.StartCoords != nil {
		copy(start[:], r.StartCoords)
	}
	if r.AxisLengths != nil {
		copy(lengths[:], r.AxisLengths)
		return start, lengths
	}
	for axis := 0; axis < ezimage.NumAxes; axis++ {
		lengths[axis] = extent[axis] - start[axis]
		if lengths[axis] < 0 {
			// Start past the edge with defaulted lengths: an empty axis.
			lengths[axis] = 0
		}
	}
	return start, lengths
}

// outputPerm returns the axis permutation of the caller-facing view.
func (r Region) outputPerm() [5]int {
	if r.DimOrder != "" {
		// Already validated; the explicit order wins over the XYZCT flag.
		perm, _ := ezimage.DimOrderString(r.DimOrder).Permutation()
		return perm
	}
	if r.XYZCT {
		perm, _ := ezimage.DimOrderString("xyzct").Permutation()
		return perm
	}
	return [5]int{0, 1, 2, 3, 4}
}
