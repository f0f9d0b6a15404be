package ezimage

import (
	"errors"
	"testing"
)

func TestDimOrderPermutation(t *testing.T) {
	tests := []struct {
		order string
		want  [5]int
	}{
		{"tzyxc", [5]int{0, 1, 2, 3, 4}},
		{"xyzct", [5]int{3, 2, 1, 4, 0}},
		{"XYZCT", [5]int{3, 2, 1, 4, 0}},
		{"czyxt", [5]int{4, 1, 2, 3, 0}},
	}
	for _, test := range tests {
		perm, err := DimOrderString(test.order).Permutation()
		if err != nil {
			t.Errorf("%q: %v", test.order, err)
			continue
		}
		if perm != test.want {
			t.Errorf("%q: got %v, want %v", test.order, perm, test.want)
		}
	}
}

func TestDimOrderPermutationRejectsBadOrders(t *testing.T) {
	bad := []string{"", "xyz", "xyzctt", "xxzct", "abcde", "xyzc1"}
	for _, order := range bad {
		if _, err := DimOrderString(order).Permutation(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%q: got %v, want ErrInvalidArgument", order, err)
		}
	}
}
