// Package subtract runs the background-subtraction recipes: the data
// subtraction without c-factors and the embedding closure test with
// matched/unmatched c-factor corrections.
package subtract

import (
	"errors"
	"fmt"
	"math"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/hist"
)

// Curve is one finished distribution and its legend entry.
type Curve struct {
	Label  string
	Series hist.Series
}

// FlatFit is a constant fitted to a ratio: Level ± Sigma.
type FlatFit struct {
	Level float64
	Sigma float64
	ChiSq float64
	NDF   int
}

func (f FlatFit) String() string {
	return fmt.Sprintf("%.4f ± %.4f (χ²/ndf = %.2f/%d)", f.Level, f.Sigma, f.ChiSq, f.NDF)
}

// Result holds everything one analysis produced. Curves and Ratio are
// restricted to the analysis' R_L range.
type Result struct {
	Name       string
	Label      string
	Observable string
	Recipe     config.Recipe
	Window     hist.Window

	Curves []Curve
	Ratio  *Curve
	Fit    *FlatFit

	// CFactors are the correction factors applied, if any.
	CFactors []Curve

	// Log lines, written to the run log by the caller.
	Log []string

	strict bool
}

func newResult(a config.Analysis) *Result {
	return &Result{
		Name:       a.Name,
		Label:      a.Label,
		Observable: a.Observable,
		Recipe:     a.Recipe,
		Window:     a.Window,
		strict:     a.Strict,
	}
}

// displayRange is the R_L range curves are cut to, the whole axis if unset.
func displayRange(a config.Analysis) hist.Window {
	if a.Range == nil {
		return hist.Window{Low: math.Inf(-1), High: math.Inf(1)}
	}
	return *a.Range
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, r.Name+": "+fmt.Sprintf(format, args...))
}

// divide applies the undefined-relative-error policy to hist.Divide:
// strict analyses fail, the rest get zero errors in those bins and a
// warning in the log.
func (r *Result) divide(
	num, den hist.Series,
	name string,
) (
	hist.Series, error,
) {

	out, err := hist.Divide(num, den)

	var undefined *hist.UndefinedError
	if errors.As(err, &undefined) {
		if r.strict {
			return hist.Series{}, fmt.Errorf("%s: %w", r.Name, err)
		}
		for _, i := range undefined.Bins {
			out.Variances[i] = 0
		}
		r.logf("warning: %v, errors set to zero", err)
		err = nil
	}
	if err != nil {
		return hist.Series{}, fmt.Errorf("%s: %w", r.Name, err)
	}

	out.Name = name
	return out, nil
}

func (r *Result) combine(
	name string,
	terms ...hist.Term,
) (
	hist.Series, error,
) {

	out, err := hist.Combine(terms...)
	if err != nil {
		return hist.Series{}, fmt.Errorf("%s: %w", r.Name, err)
	}
	out.Name = name
	return out, nil
}

// addCurve restricts s to the display range and appends it.
func (r *Result) addCurve(
	label string,
	s hist.Series,
	display hist.Window,
) error {

	shown, err := s.Restrict(display)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", r.Name, label, err)
	}
	r.Curves = append(r.Curves, Curve{Label: label, Series: shown})
	return nil
}

func (r *Result) setRatio(
	label string,
	s hist.Series,
	display hist.Window,
) error {

	shown, err := s.Restrict(display)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", r.Name, label, err)
	}
	r.Ratio = &Curve{Label: label, Series: shown}

	fit, err := FitFlat(shown)
	if err != nil {
		r.logf("no flat fit: %v", err)
		return nil
	}
	r.Fit = fit
	r.logf("%s flat fit %v", label, fit)
	return nil
}
