package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/hbook"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestCSVSeriesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := hist.NewSeries("eec",
		[]float64{0.01, 0.02, 0.05, 0.1},
		[]float64{3, -1.5, 0},
		[]float64{4, 0.25, 0},
	)
	require.NoError(t, err)
	require.NoError(t, WriteSeries(dir, "eec", s))

	st, err := OpenCSV(dir)
	require.NoError(t, err)
	got, err := st.Series("eec")
	require.NoError(t, err)

	assert.Equal(t, s.Edges, got.Edges)
	assert.Equal(t, s.Values, got.Values)
	assert.InDeltaSlice(t, s.Variances, got.Variances, 1e-12)
}

func TestCSVGrid(t *testing.T) {
	dir := t.TempDir()
	// rows out of order on purpose
	writeFile(t, dir, "h2.csv", `rl_low,rl_high,pt_low,pt_high,content,error
0.1,0.2,70,80,4,2
0.0,0.1,70,80,1,1
0.0,0.1,80,90,2,1
0.1,0.2,80,90,5,3
`)
	st, err := OpenCSV(dir)
	require.NoError(t, err)

	g, err := st.Grid("h2")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.1, 0.2}, g.RowEdges)
	assert.Equal(t, []float64{70, 80, 90}, g.ColumnEdges)
	assert.Equal(t, [][]float64{{1, 2}, {4, 5}}, g.Content)
	assert.Equal(t, [][]float64{{1, 1}, {4, 9}}, g.Variance)
}

func TestCSVCube(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "h3.csv", `x0,x1,y0,y1,z0,z1,c,e
0,1,0,1,0,1,1,1
1,2,0,1,0,1,2,1
0,1,0,1,1,2,3,1
1,2,0,1,1,2,4,2
`)
	st, err := OpenCSV(dir)
	require.NoError(t, err)

	c, err := st.Cube("h3")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Bins(hist.AxisX))
	assert.Equal(t, 1, c.Bins(hist.AxisY))
	assert.Equal(t, 2, c.Bins(hist.AxisZ))
	assert.Equal(t, 4.0, c.Content[c.Index(1, 0, 1)])
	assert.Equal(t, 4.0, c.Variance[c.Index(1, 0, 1)])
}

func TestCSVErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.csv", "x0,x1,c,e\n0,1,oops,1\n")
	writeFile(t, dir, "h1.csv", "x0,x1,c,e\n0,1,1,1\n")

	st, err := OpenCSV(dir)
	require.NoError(t, err)

	_, err = st.Series("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Series("bad")
	assert.Error(t, err)

	// a 1D file read as a grid has the wrong column count
	_, err = st.Grid("h1")
	assert.Error(t, err)

	_, err = OpenCSV(filepath.Join(dir, "h1.csv"))
	assert.Error(t, err)
}

func TestCSVRejectsMalformedCells(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "flat.csv", "x0,x1,c,e\n1,1,5,1\n")
	writeFile(t, dir, "reversed.csv", "x0,x1,c,e\n0,1,1,1\n2,1,5,1\n")
	writeFile(t, dir, "overlap.csv", "x0,x1,c,e\n0,1,1,1\n1,2,1,1\n0,2,5,1\n")
	writeFile(t, dir, "grid.csv", "x0,x1,y0,y1,c,e\n0,1,0,1,1,1\n0,1,1,1,1,1\n")
	writeFile(t, dir, "header.csv", "x0,x1,c,e\n")

	st, err := OpenCSV(dir)
	require.NoError(t, err)

	for _, name := range []string{"flat", "reversed", "overlap", "header"} {
		assert.NotPanics(t, func() {
			_, err := st.Series(name)
			assert.Error(t, err, name)
		})
	}
	assert.NotPanics(t, func() {
		_, err := st.Grid("grid")
		assert.Error(t, err)
	})
}

func TestOpenPicksBackend(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, st)
	require.NoError(t, st.Close())

	_, err = Open(filepath.Join(dir, "missing.root"))
	assert.Error(t, err)

	writeFile(t, dir, "notes.txt", "hello")
	_, err = Open(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	s := hist.Empty("s", []float64{0, 1, 2})
	s.Values[0] = 7
	m.PutSeries(s)

	got, err := m.Series("s")
	require.NoError(t, err)
	got.Values[0] = 1

	again, err := m.Series("s")
	require.NoError(t, err)
	assert.Equal(t, 7.0, again.Values[0], "returned series must be a copy")

	_, err = m.Grid("s")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Cube("s")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFromH1D(t *testing.T) {
	h := hbook.NewH1D(4, 0, 4)
	h.Fill(0.5, 2)
	h.Fill(0.5, 1)
	h.Fill(3.5, 3)

	s, err := FromH1D("h", h)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, s.Edges)
	assert.Equal(t, []float64{3, 0, 0, 3}, s.Values)
	assert.Equal(t, []float64{5, 0, 0, 9}, s.Variances)
}

func TestFromH2D(t *testing.T) {
	h := hbook.NewH2D(2, 0, 2, 3, 0, 30)
	h.Fill(0.5, 25, 2)
	h.Fill(1.5, 5, 1)

	g, err := FromH2D("h", h)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, g.RowEdges)
	assert.Equal(t, []float64{0, 10, 20, 30}, g.ColumnEdges)
	assert.Equal(t, [][]float64{{0, 0, 2}, {1, 0, 0}}, g.Content)
	assert.Equal(t, [][]float64{{0, 0, 4}, {1, 0, 0}}, g.Variance)
}

func TestToH1D(t *testing.T) {
	s, err := hist.NewSeries("r", []float64{0.01, 0.02, 0.05, 0.1}, []float64{1.5, -2, 0}, []float64{0.25, 4, 0})
	require.NoError(t, err)

	back, err := FromH1D("r", ToH1D(s))
	require.NoError(t, err)
	assert.InDeltaSlice(t, s.Edges, back.Edges, 1e-12)
	assert.Equal(t, s.Values, back.Values)
	assert.Equal(t, s.Variances, back.Variances)
}

func TestROOTRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.root")
	s, err := hist.NewSeries("eec_70_90", []float64{0.01, 0.02, 0.05, 0.1}, []float64{3, 2, 1}, []float64{0.09, 0.04, 0.01})
	require.NoError(t, err)
	require.NoError(t, WriteROOT(path, s))

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.Series("eec_70_90")
	require.NoError(t, err)
	assert.InDeltaSlice(t, s.Edges, got.Edges, 1e-12)
	assert.InDeltaSlice(t, s.Values, got.Values, 1e-12)
	assert.InDeltaSlice(t, s.Variances, got.Variances, 1e-12)

	_, err = st.Series("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Cube("eec_70_90")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = st.Grid("eec_70_90")
	assert.ErrorIs(t, err, ErrUnsupported)
}
