package store

import (
	"sort"

	"github.com/HamletTheHamster/eecsub/hist"
	"go-hep.org/x/hep/hbook"
)

// Memory keeps histograms in process. It backs tests and callers that fill
// histograms themselves.
type Memory struct {
	series map[string]hist.Series
	grids  map[string]hist.Grid
	cubes  map[string]hist.Cube
}

func NewMemory() *Memory {
	return &Memory{
		series: make(map[string]hist.Series),
		grids:  make(map[string]hist.Grid),
		cubes:  make(map[string]hist.Cube),
	}
}

func (m *Memory) PutSeries(s hist.Series) { m.series[s.Name] = s.Clone(s.Name) }
func (m *Memory) PutGrid(g hist.Grid)     { m.grids[g.Name] = cloneGrid(g) }
func (m *Memory) PutCube(c hist.Cube)     { m.cubes[c.Name] = cloneCube(c) }

func (m *Memory) Series(name string) (hist.Series, error) {
	s, ok := m.series[name]
	if !ok {
		return hist.Series{}, notFound("series", name)
	}
	return s.Clone(name), nil
}

func (m *Memory) Grid(name string) (hist.Grid, error) {
	g, ok := m.grids[name]
	if !ok {
		return hist.Grid{}, notFound("grid", name)
	}
	return cloneGrid(g), nil
}

func (m *Memory) Cube(name string) (hist.Cube, error) {
	c, ok := m.cubes[name]
	if !ok {
		return hist.Cube{}, notFound("cube", name)
	}
	return cloneCube(c), nil
}

func (m *Memory) Close() error { return nil }

func cloneGrid(g hist.Grid) hist.Grid {
	out := hist.EmptyGrid(g.Name, g.RowEdges, g.ColumnEdges)
	for i := range g.Content {
		copy(out.Content[i], g.Content[i])
		copy(out.Variance[i], g.Variance[i])
	}
	return out
}

func cloneCube(c hist.Cube) hist.Cube {
	out := hist.EmptyCube(c.Name, c.Edges)
	copy(out.Content, c.Content)
	copy(out.Variance, c.Variance)
	return out
}

// FromH1D converts a filled hbook histogram: the sum of weights becomes
// the bin value and the sum of squared weights its variance.
func FromH1D(
	name string,
	h *hbook.H1D,
) (
	hist.Series, error,
) {

	bins := h.Binning.Bins
	if len(bins) == 0 {
		return hist.Series{}, notFound("bins of", name)
	}

	edges := make([]float64, len(bins)+1)
	values := make([]float64, len(bins))
	variances := make([]float64, len(bins))
	for i := range bins {
		b := &bins[i]
		edges[i] = b.XMin()
		values[i] = b.SumW()
		variances[i] = b.SumW2()
	}
	edges[len(bins)] = bins[len(bins)-1].XMax()

	return hist.NewSeries(name, edges, values, variances)
}

// ToH1D is the inverse of FromH1D. Each bin carries one entry so that
// ROOT sees the histogram as filled.
func ToH1D(s hist.Series) *hbook.H1D {
	h := hbook.NewH1DFromEdges(s.Edges)
	for i := range h.Binning.Bins {
		d := &h.Binning.Bins[i].Dist.Dist
		d.N = 1
		d.SumW = s.Values[i]
		d.SumW2 = s.Variances[i]
	}
	return h
}

// FromH2D converts an hbook 2D histogram with x along the grid rows and y
// along its columns. Cells are placed by their edges, not by storage order.
func FromH2D(
	name string,
	h *hbook.H2D,
) (
	hist.Grid, error,
) {

	bins := h.Binning.Bins
	if len(bins) == 0 {
		return hist.Grid{}, notFound("bins of", name)
	}

	xs, ys := make(map[float64]bool), make(map[float64]bool)
	for i := range bins {
		b := &bins[i]
		xs[b.XMin()], xs[b.XMax()] = true, true
		ys[b.YMin()], ys[b.YMax()] = true, true
	}

	g := hist.EmptyGrid(name, sortedKeys(xs), sortedKeys(ys))
	for i := range bins {
		b := &bins[i]
		ix := hist.FindBin(g.RowEdges, b.XMin()) - 1
		iy := hist.FindBin(g.ColumnEdges, b.YMin()) - 1
		g.Content[ix][iy] += b.SumW()
		g.Variance[ix][iy] += b.SumW2()
	}
	return g, nil
}

func sortedKeys(m map[float64]bool) []float64 {
	keys := make([]float64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
