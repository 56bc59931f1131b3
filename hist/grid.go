package hist

// Grid is a 2D histogram: rows run along the primary axis (R_L) and
// columns along the secondary one (correlator weight or jet pT).
type Grid struct {
	Name        string
	RowEdges    []float64
	ColumnEdges []float64
	Content     [][]float64
	Variance    [][]float64
}

// NewGrid checks that content and variance are rectangular and match the
// row and column binning.
func NewGrid(
	name string,
	rowEdges, columnEdges []float64,
	content, variance [][]float64,
) (
	Grid, error,
) {

	g := Grid{
		Name:        name,
		RowEdges:    rowEdges,
		ColumnEdges: columnEdges,
		Content:     content,
		Variance:    variance,
	}
	if err := g.validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// EmptyGrid allocates a zeroed grid.
func EmptyGrid(name string, rowEdges, columnEdges []float64) Grid {
	g := Grid{
		Name:        name,
		RowEdges:    append([]float64(nil), rowEdges...),
		ColumnEdges: append([]float64(nil), columnEdges...),
		Content:     make([][]float64, len(rowEdges)-1),
		Variance:    make([][]float64, len(rowEdges)-1),
	}
	for i := range g.Content {
		g.Content[i] = make([]float64, len(columnEdges)-1)
		g.Variance[i] = make([]float64, len(columnEdges)-1)
	}
	return g
}

func (g Grid) validate() error {
	rows, cols := len(g.RowEdges)-1, len(g.ColumnEdges)-1
	if rows < 1 || cols < 1 {
		return shapeError("%q needs at least one row and one column", g.Name)
	}
	if len(g.Content) != rows || len(g.Variance) != rows {
		return shapeError("%q has %d row bins but %d content rows and %d variance rows",
			g.Name, rows, len(g.Content), len(g.Variance))
	}
	for i := range g.Content {
		if len(g.Content[i]) != cols || len(g.Variance[i]) != cols {
			return shapeError("%q row %d is not %d columns wide", g.Name, i, cols)
		}
	}
	for _, edges := range [][]float64{g.RowEdges, g.ColumnEdges} {
		for i := 1; i < len(edges); i++ {
			if !(edges[i] > edges[i-1]) {
				return shapeError("%q edges not increasing at %d", g.Name, i)
			}
		}
	}
	return nil
}

func (g Grid) Rows() int    { return len(g.RowEdges) - 1 }
func (g Grid) Columns() int { return len(g.ColumnEdges) - 1 }

// ColumnCenters returns the column bin centers used as projection weights.
func (g Grid) ColumnCenters() []float64 {
	return centers(g.ColumnEdges)
}

// ProjectRows sums every row over the columns in cols, keeping the row
// binning. Variances add.
func (g Grid) ProjectRows(
	cols BinRange,
) (
	Series, error,
) {

	lo, hi, err := cols.resolve(g.Columns())
	if err != nil {
		return Series{}, err
	}

	out := Empty(g.Name, g.RowEdges)
	for i := range g.Content {
		for j := lo; j < hi; j++ {
			out.Values[i] += g.Content[i][j]
			out.Variances[i] += g.Variance[i][j]
		}
	}
	return out, nil
}

// Restrict keeps only the columns in cols.
func (g Grid) Restrict(
	cols BinRange,
) (
	Grid, error,
) {

	lo, hi, err := cols.resolve(g.Columns())
	if err != nil {
		return Grid{}, err
	}

	out := EmptyGrid(g.Name, g.RowEdges, g.ColumnEdges[lo:hi+1])
	for i := range g.Content {
		copy(out.Content[i], g.Content[i][lo:hi])
		copy(out.Variance[i], g.Variance[i][lo:hi])
	}
	return out, nil
}
