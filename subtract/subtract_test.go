package subtract

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/HamletTheHamster/eecsub/store"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	approx = cmpopts.EquateApprox(1e-12, 1e-12)

	ptEdges    = []float64{0, 50, 100, 150}
	truthEdges = []float64{0, 100, 200}
	rlEdges    = []float64{0, 0.125, 0.25, 0.5}
	wtEdges    = []float64{0, 1, 3}

	widths = []float64{0.125, 0.125, 0.25}
)

// constCube fills every cell with k and variance k.
func constCube(name string, edges [3][]float64, k float64) hist.Cube {
	c := hist.EmptyCube(name, edges)
	for i := range c.Content {
		c.Content[i] = k
		c.Variance[i] = k
	}
	return c
}

func constGrid(name string, k float64) hist.Grid {
	g := hist.EmptyGrid(name, rlEdges, ptEdges)
	for i := range g.Content {
		for j := range g.Content[i] {
			g.Content[i][j] = k
			g.Variance[i][j] = k
		}
	}
	return g
}

// perWidth returns k/w and k/w² for every R_L bin.
func perWidth(k, v float64) ([]float64, []float64) {
	values := make([]float64, len(widths))
	variances := make([]float64, len(widths))
	for i, w := range widths {
		values[i] = k / w
		variances[i] = v / (w * w)
	}
	return values, variances
}

func curve(t *testing.T, r *Result, label string) hist.Series {
	t.Helper()
	for _, c := range r.Curves {
		if c.Label == label {
			return c.Series
		}
	}
	t.Fatalf("no curve %q in %v", label, r.Curves)
	return hist.Series{}
}

func dataSubAnalysis(signal float64) (config.Analysis, *store.Memory) {
	a := config.Analysis{
		Name:       "data",
		Label:      "data",
		Observable: "EEC",
		Recipe:     config.DataSub,
		File:       "data.root",
		Window:     hist.Window{Low: 70, High: 89},
		Range:      &hist.Window{Low: 0.01, High: 0.4},
		Axes:       config.Axes{PT: "x", RL: "y", Weight: "z"},
		Histograms: map[string]string{
			config.Unfolded:       "unf",
			config.UnfoldedMB1:    "unf_mb1",
			config.UnfoldedJMB:    "unf_jmb",
			config.UnfoldedMB1MB2: "unf_mb1mb2",
			config.Truth:          "tru",
			config.TruthMB1:       "tru_mb1",
			config.TruthJMB:       "tru_jmb",
			config.TruthMB1MB2:    "tru_mb1mb2",
		},
		CFactor: config.CFactorNone,
	}

	edges := [3][]float64{ptEdges, rlEdges, wtEdges}
	m := store.NewMemory()
	m.PutCube(constCube("unf", edges, signal))
	m.PutCube(constCube("unf_mb1", edges, 2))
	m.PutCube(constCube("unf_jmb", edges, 3))
	m.PutCube(constCube("unf_mb1mb2", edges, 1))
	m.PutGrid(constGrid("tru", 10))
	m.PutGrid(constGrid("tru_mb1", 2))
	m.PutGrid(constGrid("tru_jmb", 3))
	m.PutGrid(constGrid("tru_mb1mb2", 1))
	return a, m
}

func TestDataSub(t *testing.T) {
	a, m := dataSubAnalysis(10)

	res, err := DataSub(m, a)
	require.NoError(t, err)
	require.Len(t, res.Curves, 3)

	// A single pT bin, weight centers 0.5 and 2: value 2.5k, variance 4.25k
	// per R_L bin before width scaling.
	values, variances := perWidth(2.5*(10-2-(3-1)), 4.25*(10+2+3+1))
	sub := curve(t, res, "Bkg Sub (no c-factor)")
	assert.Empty(t, cmp.Diff(values, sub.Values, approx))
	assert.Empty(t, cmp.Diff(variances, sub.Variances, approx))
	assert.Equal(t, rlEdges, sub.Edges)

	values, variances = perWidth(2.5*10, 4.25*10)
	nominal := curve(t, res, "Nominal")
	assert.Empty(t, cmp.Diff(values, nominal.Values, approx))
	assert.Empty(t, cmp.Diff(variances, nominal.Variances, approx))

	values, variances = perWidth(10-2-3, 10+2+3)
	truth := curve(t, res, "Truth Bkg Sub")
	assert.Empty(t, cmp.Diff(values, truth.Values, approx))
	assert.Empty(t, cmp.Diff(variances, truth.Variances, approx))

	require.NotNil(t, res.Ratio)
	σ := 3 * math.Abs(math.Sqrt(68)/15-math.Sqrt(15)/5)
	for i := range res.Ratio.Series.Values {
		assert.InDelta(t, 3, res.Ratio.Series.Values[i], 1e-12)
		assert.InDelta(t, σ*σ, res.Ratio.Series.Variances[i], 1e-12)
	}

	require.NotNil(t, res.Fit)
	assert.InDelta(t, 3, res.Fit.Level, 1e-6)
	assert.InDelta(t, σ/math.Sqrt(3), res.Fit.Sigma, 1e-6)
	assert.Equal(t, 2, res.Fit.NDF)
}

func TestDataSubInclusionExclusion(t *testing.T) {
	a, m := dataSubAnalysis(10)
	a.InclusionExclusion = true

	res, err := DataSub(m, a)
	require.NoError(t, err)

	values, _ := perWidth(10-2-3+1, 0)
	assert.Empty(t, cmp.Diff(values, curve(t, res, "Truth Bkg Sub").Values, approx))
}

func TestDataSubWithoutTruth(t *testing.T) {
	a, m := dataSubAnalysis(10)
	for _, role := range []string{config.Truth, config.TruthMB1, config.TruthJMB, config.TruthMB1MB2} {
		delete(a.Histograms, role)
	}

	res, err := DataSub(m, a)
	require.NoError(t, err)
	assert.Len(t, res.Curves, 2)
	assert.Nil(t, res.Ratio)
	assert.Nil(t, res.Fit)
}

func TestDataSubUndefinedRatio(t *testing.T) {
	// 4 − 2 − (3 − 1) leaves an empty numerator over a filled truth.
	a, m := dataSubAnalysis(4)

	res, err := DataSub(m, a)
	require.NoError(t, err)
	require.NotNil(t, res.Ratio)
	for i := range res.Ratio.Series.Values {
		assert.Zero(t, res.Ratio.Series.Values[i])
		assert.Zero(t, res.Ratio.Series.Variances[i])
	}
	assert.Nil(t, res.Fit)
	assert.True(t, hasLine(res.Log, "warning"))
	assert.True(t, hasLine(res.Log, "no flat fit"))

	a.Strict = true
	_, err = DataSub(m, a)
	assert.ErrorIs(t, err, hist.ErrUndefinedRelativeError)
}

func TestDataSubErrors(t *testing.T) {
	a, m := dataSubAnalysis(10)
	a.Histograms[config.UnfoldedJMB] = "missing"
	_, err := DataSub(m, a)
	assert.ErrorIs(t, err, store.ErrNotFound)

	a, m = dataSubAnalysis(10)
	a.Window = hist.Window{Low: 500, High: 600}
	_, err = DataSub(m, a)
	assert.ErrorIs(t, err, hist.ErrEmptyWindow)

	a, m = dataSubAnalysis(10)
	m.PutCube(constCube("unf_mb1", [3][]float64{ptEdges, {0, 0.25, 0.5}, wtEdges}, 2))
	_, err = DataSub(m, a)
	assert.ErrorIs(t, err, hist.ErrShape)
}

func hasLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Embedding sample where MJ_m = MJ0_m + MJ1_m + MJ2_m, so the c-factor
// corrected distribution reduces to MJ2_m.
var closureContent = map[string]float64{
	"MJ_m":   11,
	"MJ0_m":  4,
	"MJ0_um": 3,
	"MJ1_m":  2,
	"MJ2_m":  5,
	"MB1":    6,
	"MB1MB2": 1.5,
	"BMB_m":  2,
	"BMB_um": 1,
	"SMB_m":  1,
}

func closureAnalysis(cfactor string) (config.Analysis, *store.Memory) {
	a := config.Analysis{
		Name:        "closure",
		Label:       "closure",
		Observable:  "EEC",
		Recipe:      config.CFactorClosure,
		File:        "embed.root",
		Window:      hist.Window{Low: 70, High: 89},
		TruthWindow: &hist.Window{Low: 10, High: 139},
		Range:       &hist.Window{Low: 0.01, High: 0.4},
		Axes:        config.Axes{PT: "x", Truth: "y", RL: "z"},
		CFactor:     cfactor,
		Histograms: map[string]string{
			config.MJm:    "MJ_m",
			config.MJ0m:   "MJ0_m",
			config.MJ0um:  "MJ0_um",
			config.MJ1m:   "MJ1_m",
			config.MJ2m:   "MJ2_m",
			config.MB1:    "MB1",
			config.MB1MB2: "MB1MB2",
			config.BMBm:   "BMB_m",
			config.BMBum:  "BMB_um",
			config.SMBm:   "SMB_m",

			config.CFacMB1m:     "c_fac_mb1_m_{low}_{high}",
			config.CFacMB1um:    "c_fac_mb1_um_{low}_{high}",
			config.CFacMB1MB2m:  "c_fac_mb1mb2_m_{low}_{high}",
			config.CFacMB1MB2um: "c_fac_mb1mb2_um_{low}_{high}",
			config.CFacSMB:      "c_fac_smb_{low}_{high}",
		},
	}

	edges := [3][]float64{ptEdges, truthEdges, rlEdges}
	m := store.NewMemory()
	for name, k := range closureContent {
		m.PutCube(constCube(name, edges, k))
	}
	return a, m
}

func TestClosureComputedCFactors(t *testing.T) {
	a, m := closureAnalysis(config.CFactorCompute)

	res, err := Closure(m, nil, a)
	require.NoError(t, err)
	assert.Len(t, res.CFactors, 5)

	// one reco bin times two truth bins
	truth, _ := perWidth(2*5, 0)
	assert.Empty(t, cmp.Diff(truth, curve(t, res, "Corrected").Values, cmpopts.EquateApprox(1e-9, 0)))
	assert.Empty(t, cmp.Diff(truth, curve(t, res, "Truth (ss, matched)").Values, approx))

	require.NotNil(t, res.Ratio)
	for _, v := range res.Ratio.Series.Values {
		assert.InDelta(t, 1, v, 1e-9)
	}
	require.NotNil(t, res.Fit)
	assert.InDelta(t, 1, res.Fit.Level, 1e-6)
	assert.Equal(t, 2, res.Fit.NDF)
}

func TestClosureWithoutCFactors(t *testing.T) {
	a, m := closureAnalysis(config.CFactorNone)

	res, err := Closure(m, nil, a)
	require.NoError(t, err)
	assert.Empty(t, res.CFactors)

	// MJ_m + MJ0_um − MB1 − (SMB_m + BMB_m + BMB_um − MB1MB2)
	values, variances := perWidth(2*5.5, 2*25.5)
	corrected := curve(t, res, "Corrected")
	assert.Empty(t, cmp.Diff(values, corrected.Values, approx))
	assert.Empty(t, cmp.Diff(variances, corrected.Variances, approx))

	for _, v := range res.Ratio.Series.Values {
		assert.InDelta(t, 1.1, v, 1e-12)
	}
}

func TestClosureStoredCFactors(t *testing.T) {
	a, m := closureAnalysis(config.CFactorStored)

	_, err := Closure(m, nil, a)
	require.Error(t, err)

	cf := store.NewMemory()
	for _, name := range []string{
		"c_fac_mb1_m_70_90", "c_fac_mb1_um_70_90",
		"c_fac_mb1mb2_m_70_90", "c_fac_mb1mb2_um_70_90",
		"c_fac_smb_70_90",
	} {
		s, err := hist.NewSeries(name, rlEdges, []float64{1, 1, 1}, []float64{0, 0, 0})
		require.NoError(t, err)
		cf.PutSeries(s)
	}

	res, err := Closure(m, cf, a)
	require.NoError(t, err)
	assert.Len(t, res.CFactors, 5)

	// unit c-factors double MB1 and MB1MB2: 11 + 3 − 12 − (4 − 3)
	values, _ := perWidth(2*1, 0)
	assert.Empty(t, cmp.Diff(values, curve(t, res, "Corrected").Values, approx))
}

func TestClosureAllCurve(t *testing.T) {
	a, m := closureAnalysis(config.CFactorNone)
	a.Histograms[config.MJ] = "MJ_m"

	res, err := Closure(m, nil, a)
	require.NoError(t, err)
	assert.Len(t, res.Curves, 3)
	curve(t, res, "Embedded (all)")
}

func TestFitFlat(t *testing.T) {
	s, err := hist.NewSeries("ratio",
		[]float64{0, 1, 2, 3, 4},
		[]float64{0.9, 1.1, 1.0, 5},
		[]float64{0.01, 0.01, 0.04, 0},
	)
	require.NoError(t, err)

	fit, err := FitFlat(s)
	require.NoError(t, err)

	// weights 100, 100, 25; the last bin has no error and is skipped
	assert.InDelta(t, (90+110+25)/225., fit.Level, 1e-6)
	assert.InDelta(t, math.Sqrt(1/225.), fit.Sigma, 1e-6)
	assert.Equal(t, 2, fit.NDF)
	assert.Contains(t, fit.String(), "±")

	empty, err := hist.NewSeries("empty", []float64{0, 1}, []float64{1}, []float64{0})
	require.NoError(t, err)
	_, err = FitFlat(empty)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestFitFlatConvergesFromUnity(t *testing.T) {
	s, err := hist.NewSeries("far",
		[]float64{0, 1, 2, 3},
		[]float64{40, 44, 41},
		[]float64{0.25, 4, 1},
	)
	require.NoError(t, err)

	fit, err := FitFlat(s)
	require.NoError(t, err)

	// weights 4, 0.25, 1
	assert.InDelta(t, (160+11+41)/5.25, fit.Level, 1e-6)
	assert.InDelta(t, math.Sqrt(1/5.25), fit.Sigma, 1e-6)
	assert.Equal(t, 2, fit.NDF)
}

func TestRunAll(t *testing.T) {
	data, dataStore := dataSubAnalysis(10)
	closure, embedStore := closureAnalysis(config.CFactorCompute)

	stores := map[string]store.Store{
		data.File:    dataStore,
		closure.File: embedStore,
	}
	open := func(path string) (store.Store, error) {
		st, ok := stores[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return st, nil
	}

	results, err := RunAll(context.Background(), open, []config.Analysis{closure, data}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "closure", results[0].Name)
	assert.Equal(t, config.CFactorClosure, results[0].Recipe)
	assert.Equal(t, "data", results[1].Name)

	data.File = "elsewhere.root"
	_, err = RunAll(context.Background(), open, []config.Analysis{closure, data}, 0)
	assert.ErrorContains(t, err, "no such file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunAll(ctx, open, []config.Analysis{closure}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunUnknownRecipe(t *testing.T) {
	_, err := Run(store.NewMemory(), nil, config.Analysis{Name: "x", Recipe: "magic"})
	assert.ErrorContains(t, err, "unknown recipe")
}
