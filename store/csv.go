package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/HamletTheHamster/eecsub/hist"
)

// CSV reads histograms from a directory holding one <name>.csv per
// histogram. The first row is a header and is skipped. Each further row is
// one cell:
//
//	xlow,xhigh,content,error                             1D
//	xlow,xhigh,ylow,yhigh,content,error                  2D
//	xlow,xhigh,ylow,yhigh,zlow,zhigh,content,error       3D
type CSV struct {
	dir string
}

func OpenCSV(dir string) (*CSV, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: %s is not a directory", dir)
	}
	return &CSV{dir: dir}, nil
}

type cell struct {
	low, high [3]float64
	content   float64
	σ         float64
}

func (c *CSV) Series(name string) (hist.Series, error) {
	cells, edges, err := c.load(name, 1)
	if err != nil {
		return hist.Series{}, err
	}
	s := hist.Empty(name, edges[0])
	for _, cl := range cells {
		i := hist.FindBin(s.Edges, cl.low[0]) - 1
		s.Values[i] += cl.content
		s.Variances[i] += cl.σ * cl.σ
	}
	return s, nil
}

func (c *CSV) Grid(name string) (hist.Grid, error) {
	cells, edges, err := c.load(name, 2)
	if err != nil {
		return hist.Grid{}, err
	}
	g := hist.EmptyGrid(name, edges[0], edges[1])
	for _, cl := range cells {
		i := hist.FindBin(g.RowEdges, cl.low[0]) - 1
		j := hist.FindBin(g.ColumnEdges, cl.low[1]) - 1
		g.Content[i][j] += cl.content
		g.Variance[i][j] += cl.σ * cl.σ
	}
	return g, nil
}

func (c *CSV) Cube(name string) (hist.Cube, error) {
	cells, edges, err := c.load(name, 3)
	if err != nil {
		return hist.Cube{}, err
	}
	cube := hist.EmptyCube(name, [3][]float64{edges[0], edges[1], edges[2]})
	for _, cl := range cells {
		x := hist.FindBin(cube.Edges[0], cl.low[0]) - 1
		y := hist.FindBin(cube.Edges[1], cl.low[1]) - 1
		z := hist.FindBin(cube.Edges[2], cl.low[2]) - 1
		i := cube.Index(x, y, z)
		cube.Content[i] += cl.content
		cube.Variance[i] += cl.σ * cl.σ
	}
	return cube, nil
}

func (c *CSV) Close() error { return nil }

func (c *CSV) path(name string) string {
	return filepath.Join(c.dir, name+".csv")
}

// load parses the cells of name and collects the sorted edges of each of
// its dims axes.
func (c *CSV) load(
	name string,
	dims int,
) (
	[]cell, [][]float64, error,
) {

	file, err := os.Open(c.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, notFound("csv", name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}
	defer file.Close()

	rows, err := readCSV(file)
	if err != nil {
		return nil, nil, fmt.Errorf("store: %s: %w", c.path(name), err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("store: %s has no cells", c.path(name))
	}

	axes := make([]map[float64]bool, dims)
	for a := range axes {
		axes[a] = make(map[float64]bool)
	}

	cells := make([]cell, 0, len(rows))
	for r, row := range rows {
		if len(row) != 2*dims+2 {
			return nil, nil, fmt.Errorf("store: %s row %d has %d columns, %dD needs %d",
				c.path(name), r+2, len(row), dims, 2*dims+2)
		}
		v := make([]float64, len(row))
		for k, field := range row {
			v[k], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("store: %s row %d: %w", c.path(name), r+2, err)
			}
		}

		var cl cell
		for a := 0; a < dims; a++ {
			cl.low[a], cl.high[a] = v[2*a], v[2*a+1]
			if !(cl.high[a] > cl.low[a]) {
				return nil, nil, fmt.Errorf("store: %s row %d: axis %d edges %g,%g are not increasing",
					c.path(name), r+2, a, cl.low[a], cl.high[a])
			}
			axes[a][cl.low[a]], axes[a][cl.high[a]] = true, true
		}
		cl.content, cl.σ = v[2*dims], v[2*dims+1]
		cells = append(cells, cl)
	}

	edges := make([][]float64, dims)
	for a := range axes {
		edges[a] = sortedKeys(axes[a])
	}

	// every cell must cover exactly one bin of the merged edges
	for r, cl := range cells {
		for a := 0; a < dims; a++ {
			k := sort.SearchFloat64s(edges[a], cl.low[a])
			if edges[a][k+1] != cl.high[a] {
				return nil, nil, fmt.Errorf("store: %s row %d: axis %d cell %g,%g spans more than one bin",
					c.path(name), r+2, a, cl.low[a], cl.high[a])
			}
		}
	}
	return cells, edges, nil
}

// readCSV drops the header row and returns the cell rows.
func readCSV(
	rd io.Reader,
) (
	[][]string, error,
) {

	r := csv.NewReader(rd)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return nil, err
	}
	return r.ReadAll()
}

// WriteSeries stores s as <dir>/<file>.csv in the 1D layout.
func WriteSeries(
	dir, file string,
	s hist.Series,
) (
	error,
) {

	f, err := os.Create(filepath.Join(dir, file+".csv"))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"xlow", "xhigh", "content", "error"})
	for i, σ := range s.Errors() {
		_ = w.Write([]string{
			formatFloat(s.Edges[i]),
			formatFloat(s.Edges[i+1]),
			formatFloat(s.Values[i]),
			formatFloat(σ),
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("store: %w", err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
