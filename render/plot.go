// Package render draws subtraction results: publication plots through
// gonum/plot and interactive quick looks through gnuplot.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/HamletTheHamster/eecsub/subtract"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const rlLabel = "R_L"

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// Options control the look of saved figures.
type Options struct {
	// Slide enlarges fonts and markers for presentation figures.
	Slide bool
}

// Save draws every plot r supports into dir and returns the base names
// written, each as .png, .svg and .pdf.
func Save(
	r *subtract.Result,
	dir string,
	opts Options,
) (
	[]string, error,
) {

	var names []string

	p, err := Curves(r, opts)
	if err != nil {
		return nil, err
	}
	name := r.Name + " " + r.Observable
	if err := savePlot(p, name, dir); err != nil {
		return nil, err
	}
	names = append(names, name)

	if r.Ratio != nil {
		p, err := Ratio(r, opts)
		if err != nil {
			return nil, err
		}
		name := r.Name + " ratio"
		if err := savePlot(p, name, dir); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if len(r.CFactors) > 0 {
		p, err := CFactors(r, opts)
		if err != nil {
			return nil, err
		}
		name := r.Name + " c-factors"
		if err := savePlot(p, name, dir); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, nil
}

// Curves overlays every curve of r on a log R_L axis.
func Curves(
	r *subtract.Result,
	opts Options,
) (
	*plot.Plot, error,
) {

	if len(r.Curves) == 0 {
		return nil, fmt.Errorf("render: %s has no curves", r.Name)
	}

	series := make([]hist.Series, len(r.Curves))
	for i, c := range r.Curves {
		series[i] = c.Series
	}
	xrange, yrange := ranges(series, false)

	p, t, rt, err := prepPlot(
		title(r), rlLabel, r.Observable,
		xrange, yrange,
		opts.Slide,
	)
	if err != nil {
		return nil, err
	}

	for i, c := range r.Curves {
		if err := addSeries(p, c.Label, c.Series, i, opts.Slide); err != nil {
			return nil, err
		}
	}
	p.Add(t, rt)
	return p, nil
}

// Ratio draws r.Ratio against a unity line and, if present, the flat fit.
func Ratio(
	r *subtract.Result,
	opts Options,
) (
	*plot.Plot, error,
) {

	if r.Ratio == nil {
		return nil, fmt.Errorf("render: %s has no ratio", r.Name)
	}

	xrange, yrange := ranges([]hist.Series{r.Ratio.Series}, true)
	p, t, rt, err := prepPlot(
		title(r), rlLabel, r.Ratio.Label,
		xrange, yrange,
		opts.Slide,
	)
	if err != nil {
		return nil, err
	}

	unity, err := horizontal(xrange, 1)
	if err != nil {
		return nil, err
	}
	unity.LineStyle.Dashes = []vg.Length{vg.Points(8), vg.Points(8)}
	p.Add(unity)

	if err := addSeries(p, r.Ratio.Label, r.Ratio.Series, 0, opts.Slide); err != nil {
		return nil, err
	}

	if r.Fit != nil {
		fit, err := horizontal(xrange, r.Fit.Level)
		if err != nil {
			return nil, err
		}
		fit.LineStyle.Color = palette(1, true)
		fit.LineStyle.Width = vg.Points(3)
		p.Add(fit)
		p.Legend.Add("Fit "+r.Fit.String(), fit)
	}

	p.Add(t, rt)
	return p, nil
}

// CFactors overlays the correction factors the closure applied.
func CFactors(
	r *subtract.Result,
	opts Options,
) (
	*plot.Plot, error,
) {

	if len(r.CFactors) == 0 {
		return nil, fmt.Errorf("render: %s has no c-factors", r.Name)
	}

	series := make([]hist.Series, len(r.CFactors))
	for i, c := range r.CFactors {
		series[i] = c.Series
	}
	xrange, yrange := ranges(series, true)

	p, t, rt, err := prepPlot(
		title(r), rlLabel, "c-factor",
		xrange, yrange,
		opts.Slide,
	)
	if err != nil {
		return nil, err
	}
	for i, c := range r.CFactors {
		if err := addSeries(p, c.Label, c.Series, i, opts.Slide); err != nil {
			return nil, err
		}
	}
	p.Add(t, rt)
	return p, nil
}

func title(r *subtract.Result) string {
	return fmt.Sprintf("%s, %g < pT < %g GeV/c", r.Label, r.Window.Low, r.Window.High+1)
}

func addSeries(
	p *plot.Plot,
	label string,
	s hist.Series,
	brush int,
	slide bool,
) error {

	pts := errorPoints{
		XYs:     buildData([][]float64{s.Centers(), s.Values}),
		YErrors: plotter.YErrors(buildErrors(s.Errors())),
	}

	plotSet, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	plotSet.GlyphStyle.Color = palette(brush, false)
	if slide {
		plotSet.GlyphStyle.Radius = vg.Points(5)
	} else {
		plotSet.GlyphStyle.Radius = vg.Points(3)
	}
	plotSet.Shape = draw.CircleGlyph{}

	// Error bars
	e, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return err
	}
	e.LineStyle.Color = palette(brush, false)

	p.Add(plotSet, e)

	// Legend
	l, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	l.GlyphStyle.Color = palette(brush, false)
	l.GlyphStyle.Radius = vg.Points(6)
	l.Shape = draw.CircleGlyph{}
	p.Legend.Add(label, l)

	return nil
}

func horizontal(
	xrange [2]float64,
	y float64,
) (
	*plotter.Line, error,
) {

	pts := make(plotter.XYs, 2)
	pts[0].X, pts[0].Y = xrange[0], y
	pts[1].X, pts[1].Y = xrange[1], y
	return plotter.NewLine(pts)
}

// ranges encloses every point and error bar. Log x needs a positive lower
// edge, so an axis starting at zero begins at half the first center.
func ranges(
	series []hist.Series,
	unity bool,
) (
	[2]float64, [2]float64,
) {

	x := [2]float64{math.Inf(1), math.Inf(-1)}
	y := [2]float64{math.Inf(1), math.Inf(-1)}
	if unity {
		y = [2]float64{1, 1}
	}

	for _, s := range series {
		if s.Len() == 0 {
			continue
		}
		low := s.Edges[0]
		if low <= 0 {
			low = s.Centers()[0] / 2
		}
		x[0] = math.Min(x[0], low)
		x[1] = math.Max(x[1], s.Edges[len(s.Edges)-1])

		for i, σ := range s.Errors() {
			v := s.Values[i]
			if math.IsNaN(v) || math.IsNaN(σ) {
				continue
			}
			y[0] = math.Min(y[0], v-σ)
			y[1] = math.Max(y[1], v+σ)
		}
	}

	if math.IsInf(x[0], 0) {
		x = [2]float64{0.01, 1}
	}
	if math.IsInf(y[0], 0) {
		y = [2]float64{0, 1}
	}
	if y[0] == y[1] {
		y[0], y[1] = y[0]-1, y[1]+1
	}
	pad := 0.1 * (y[1] - y[0])
	return x, [2]float64{y[0] - pad, y[1] + pad}
}

func prepPlot(
	title, xlabel, ylabel string,
	xrange, yrange [2]float64,
	slide bool,
) (
	*plot.Plot,
	*plotter.Line, *plotter.Line,
	error,
) {

	p := plot.New()
	p.BackgroundColor = color.RGBA{A: 0}
	p.Title.Text = title
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.LineStyle.Width = vg.Points(1.5)
	p.X.Min = xrange[0]
	p.X.Max = xrange[1]
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.X.Tick.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Variant = "Sans"

	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.Y.Min = yrange[0]
	p.Y.Max = yrange[1]
	p.Y.Tick.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.Label.Font.Variant = "Sans"

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-25)
	p.Legend.YOffs = vg.Points(-25)
	p.Legend.Padding = vg.Points(10)
	p.Legend.ThumbnailWidth = vg.Points(50)

	if slide {
		p.Title.TextStyle.Font.Size = 80
		p.Title.Padding = font.Length(80)

		p.X.Label.TextStyle.Font.Size = 56
		p.X.Label.Padding = font.Length(40)
		p.X.Tick.Label.Font.Size = 56

		p.Y.Label.TextStyle.Font.Size = 56
		p.Y.Label.Padding = font.Length(40)
		p.Y.Tick.Label.Font.Size = 56

		p.Legend.TextStyle.Font.Size = 56
	} else {
		p.Title.TextStyle.Font.Size = 50
		p.Title.Padding = font.Length(50)

		p.X.Label.TextStyle.Font.Size = 36
		p.X.Label.Padding = font.Length(20)
		p.X.Tick.Label.Font.Size = 36

		p.Y.Label.TextStyle.Font.Size = 36
		p.Y.Label.Padding = font.Length(20)
		p.Y.Tick.Label.Font.Size = 36

		p.Legend.TextStyle.Font.Size = 28
	}

	// Enclose plot
	t := make(plotter.XYs, 2)
	r := make(plotter.XYs, 2)

	// Top
	t[0].X, t[0].Y = xrange[0], yrange[1]
	t[1].X, t[1].Y = xrange[1], yrange[1]

	tAxis, err := plotter.NewLine(t)
	if err != nil {
		return nil, nil, nil, err
	}

	// Right
	r[0].X, r[0].Y = xrange[1], yrange[0]
	r[1].X, r[1].Y = xrange[1], yrange[1]

	rAxis, err := plotter.NewLine(r)
	if err != nil {
		return nil, nil, nil, err
	}

	return p, tAxis, rAxis, nil
}

func palette(
	brush int,
	dark bool,
) (
	color.RGBA,
) {

	if dark {
		darkColor := []color.RGBA{
			{R: 27, G: 170, B: 139, A: 255},
			{R: 201, G: 104, B: 146, A: 255},
			{R: 99, G: 124, B: 198, A: 255},
			{R: 91, G: 22, B: 22, A: 255},
			{R: 188, G: 117, B: 255, A: 255},
			{R: 234, G: 156, B: 172, A: 255},
			{R: 1, G: 56, B: 84, A: 255},
			{R: 46, G: 140, B: 60, A: 255},
			{R: 183, G: 139, B: 89, A: 255},
		}
		return darkColor[brush%len(darkColor)]
	}

	col := []color.RGBA{
		{R: 31, G: 211, B: 172, A: 255},
		{R: 255, G: 122, B: 180, A: 255},
		{R: 122, G: 156, B: 255, A: 255},
		{R: 140, G: 46, B: 49, A: 255},
		{R: 188, G: 117, B: 255, A: 255},
		{R: 234, G: 156, B: 172, A: 255},
		{R: 1, G: 56, B: 84, A: 255},
		{R: 46, G: 140, B: 60, A: 255},
		{R: 255, G: 193, B: 122, A: 255},
	}
	return col[brush%len(col)]
}

func savePlot(
	p *plot.Plot,
	name, dir string,
) error {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	for _, ext := range []string{".png", ".svg", ".pdf"} {
		if err := p.Save(15*vg.Inch, 15*vg.Inch, path+ext); err != nil {
			return fmt.Errorf("render: %s%s: %w", name, ext, err)
		}
	}
	return nil
}

func buildData(
	data [][]float64,
) (
	plotter.XYs,
) {

	xy := make(plotter.XYs, len(data[0]))
	for i := range xy {
		xy[i].X = data[0][i]
		xy[i].Y = data[1][i]
	}
	return xy
}

func buildErrors(
	σ []float64,
) (
	plotter.Errors,
) {

	errs := make(plotter.Errors, len(σ))
	for i := range errs {
		errs[i].Low, errs[i].High = σ[i], σ[i]
	}
	return errs
}
