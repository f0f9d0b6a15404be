package ezimage

import (
	"fmt"
	"strings"
)

// Notes:
//   Region requests follow the server's XYZCT axis convention while the
//   assembled pixel buffer uses the iteration-friendly canonical TZYXC
//   order.  Whenever the units of a type differ, e.g., request coordinates
//   versus canonical buffer coordinates, a separate type reinforces the
//   distinct natures of the values.

// Axis positions within XYZCT-ordered request coordinates.
const (
	AxisX = iota
	AxisY
	AxisZ
	AxisC
	AxisT
)

// NumAxes is the dimensionality of every image in the remote store.
const NumAxes = 5

// Coords5d is an (X,Y,Z,C,T) coordinate.
type Coords5d [5]int32

// Lengths5d is a per-axis extent in (X,Y,Z,C,T) order.
type Lengths5d [5]int32

func (c Coords5d) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d,%d)", c[0], c[1], c[2], c[3], c[4])
}

func (l Lengths5d) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d,%d)", l[0], l[1], l[2], l[3], l[4])
}

// CanonicalOrder is the fixed axis sequence of assembled pixel buffers.
const CanonicalOrder = "tzyxc"

// DimOrderString specifies an output axis ordering, e.g. "xyzct".  It must
// contain each of the letters x, y, z, c and t exactly once, in any case.
type DimOrderString string

// Permutation validates the order string and returns, for each output axis
// position, the index of the source axis in canonical (t,z,y,x,c) order.
// For example, "xyzct" yields [3 2 1 4 0] since output axis 0 (x) is
// canonical axis 3.
func (s DimOrderString) Permutation() ([5]int, error) {
	var perm [5]int
	order := strings.ToLower(string(s))
	if len(order) != NumAxes {
		return perm, fmt.Errorf("dimension order %q must contain letters xyzct exactly once: %w",
			s, ErrInvalidArgument)
	}
	seen := make(map[rune]bool, NumAxes)
	for i, letter := range order {
		canonical := strings.IndexRune(CanonicalOrder, letter)
		if canonical < 0 || seen[letter] {
			return perm, fmt.Errorf("dimension order %q must contain letters xyzct exactly once: %w",
				s, ErrInvalidArgument)
		}
		seen[letter] = true
		perm[i] = canonical
	}
	return perm, nil
}
