package hist

import (
	"fmt"
	"sort"
)

// Window selects bins by value: the bin containing Low through the bin
// containing High, both inclusive.
type Window struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

func (w Window) String() string {
	return fmt.Sprintf("[%g, %g]", w.Low, w.High)
}

// BinRange is an inclusive run of 1-based bin indices. The zero value
// stands for the whole axis.
type BinRange struct {
	First, Last int
}

// IsZero reports whether r is the whole-axis zero value.
func (r BinRange) IsZero() bool {
	return r.First == 0 && r.Last == 0
}

// Len returns the number of bins in r.
func (r BinRange) Len() int {
	return r.Last - r.First + 1
}

// resolve turns r into 0-based half-open bounds on an axis of n bins.
func (r BinRange) resolve(
	n int,
) (
	int, int, error,
) {

	if r.IsZero() {
		return 0, n, nil
	}
	if r.First < 1 || r.Last > n || r.First > r.Last {
		return 0, 0, fmt.Errorf("%w: range %d..%d on %d bins", ErrEmptyWindow, r.First, r.Last, n)
	}
	return r.First - 1, r.Last, nil
}

// FindBin returns the 1-based bin whose half-open interval [low, high)
// contains x: 0 below the axis and len(edges) above it.
func FindBin(edges []float64, x float64) int {
	return sort.Search(len(edges), func(i int) bool {
		return edges[i] > x
	})
}

// Bins resolves w on the axis described by edges. Bounds outside the
// axis are clamped to its first and last bin.
func (w Window) Bins(
	edges []float64,
) (
	BinRange, error,
) {

	n := len(edges) - 1
	if n < 1 || w.Low > w.High {
		return BinRange{}, fmt.Errorf("%w: %v", ErrEmptyWindow, w)
	}

	first, last := FindBin(edges, w.Low), FindBin(edges, w.High)
	if first > n || last < 1 {
		return BinRange{}, fmt.Errorf("%w: %v outside [%g, %g]", ErrEmptyWindow, w, edges[0], edges[n])
	}
	if first < 1 {
		first = 1
	}
	if last > n {
		last = n
	}
	return BinRange{First: first, Last: last}, nil
}
