// Package hist holds the bin arithmetic shared by every background
// subtraction: series and grids with their variances, bin-width scaling,
// correlated-error ratios, weighted projections and linear combinations.
package hist

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// edgeTol is the absolute tolerance used when comparing bin edges of two
// operands. Edges read back from files rarely agree to the last ulp.
const edgeTol = 1e-9

// Series is one projected histogram axis. Bin i of the physical
// (1-based) numbering lives at index i-1. Uncertainties are kept as
// variances; Errors converts them.
type Series struct {
	Name      string
	Edges     []float64
	Values    []float64
	Variances []float64
}

// NewSeries checks the binning invariants and returns the series.
// The slices are used as given, not copied.
func NewSeries(
	name string,
	edges, values, variances []float64,
) (
	Series, error,
) {

	s := Series{Name: name, Edges: edges, Values: values, Variances: variances}
	if err := s.validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Empty returns a zero-valued series over edges.
func Empty(name string, edges []float64) Series {
	n := len(edges) - 1
	if n < 0 {
		n = 0
	}
	return Series{
		Name:      name,
		Edges:     append([]float64(nil), edges...),
		Values:    make([]float64, n),
		Variances: make([]float64, n),
	}
}

func (s Series) validate() error {
	if len(s.Edges) < 2 {
		return shapeError("%q needs at least two edges, has %d", s.Name, len(s.Edges))
	}
	n := len(s.Edges) - 1
	if len(s.Values) != n || len(s.Variances) != n {
		return shapeError("%q has %d bins but %d values and %d variances",
			s.Name, n, len(s.Values), len(s.Variances))
	}
	for i := 1; i < len(s.Edges); i++ {
		if !(s.Edges[i] > s.Edges[i-1]) {
			return shapeError("%q edges not increasing at %d", s.Name, i)
		}
	}
	return nil
}

// Len returns the number of bins.
func (s Series) Len() int {
	return len(s.Values)
}

// Clone returns a deep copy carrying the given name.
func (s Series) Clone(name string) Series {
	return Series{
		Name:      name,
		Edges:     append([]float64(nil), s.Edges...),
		Values:    append([]float64(nil), s.Values...),
		Variances: append([]float64(nil), s.Variances...),
	}
}

// Errors returns the standard deviation of every bin.
func (s Series) Errors() []float64 {
	σ := make([]float64, len(s.Variances))
	for i, v := range s.Variances {
		σ[i] = math.Sqrt(v)
	}
	return σ
}

func (s Series) Centers() []float64 {
	return centers(s.Edges)
}

func (s Series) Widths() []float64 {
	w := make([]float64, len(s.Edges)-1)
	for i := range w {
		w[i] = s.Edges[i+1] - s.Edges[i]
	}
	return w
}

// Integral sums the bin contents, ignoring widths.
func (s Series) Integral() float64 {
	return floats.Sum(s.Values)
}

// Scale multiplies contents by k and variances by k².
func (s Series) Scale(k float64) Series {
	out := s.Clone(s.Name)
	floats.Scale(k, out.Values)
	floats.Scale(k*k, out.Variances)
	return out
}

// SameBinning reports whether s and o have matching edges.
func (s Series) SameBinning(o Series) bool {
	return sameEdges(s.Edges, o.Edges)
}

// Restrict keeps the bins selected by w, as a plot range does.
func (s Series) Restrict(
	w Window,
) (
	Series, error,
) {

	r, err := w.Bins(s.Edges)
	if err != nil {
		return Series{}, err
	}
	lo, hi := r.First-1, r.Last
	return Series{
		Name:      s.Name,
		Edges:     append([]float64(nil), s.Edges[lo:hi+1]...),
		Values:    append([]float64(nil), s.Values[lo:hi]...),
		Variances: append([]float64(nil), s.Variances[lo:hi]...),
	}, nil
}

// Triples returns edges, values and errors, the form consumed by plotting.
func (s Series) Triples() (edges, values, errors []float64) {
	return s.Edges, s.Values, s.Errors()
}

func centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}

func sameEdges(a, b []float64) bool {
	return floats.EqualApprox(a, b, edgeTol)
}
