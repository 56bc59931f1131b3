package subtract

import (
	"errors"
	"fmt"
	"math"

	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// ErrNoPoints is returned by FitFlat when no bin carries a usable error.
var ErrNoPoints = errors.New("subtract: no points to fit")

// FitFlat fits a constant to s, weighting every bin by 1/σ. Bins with zero
// or undefined errors are left out. The fit starts from unity, the level a
// closed correction lands on, and the uncertainty is read off the Jacobian
// at the minimum as σ² = (JᵀJ)⁻¹.
func FitFlat(
	s hist.Series,
) (
	*FlatFit, error,
) {

	var ys, σs []float64
	for i, v := range s.Variances {
		if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(s.Values[i]) {
			ys = append(ys, s.Values[i])
			σs = append(σs, math.Sqrt(v))
		}
	}
	if len(ys) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoPoints, s.Name)
	}

	f := func(dst, guess []float64) {
		c := guess[0]
		for i, y := range ys {
			dst[i] = (c - y) / σs[i]
		}
	}

	jacobian := lm.NumJac{Func: f}

	toBeSolved := lm.LMProblem{
		Dim:        1,
		Size:       len(ys),
		Func:       f,
		Jac:        jacobian.Jac,
		InitParams: []float64{1},
		Tau:        1e-6,
		Eps1:       1e-10,
		Eps2:       1e-10,
	}

	results, err := lm.LM(toBeSolved, &lm.Settings{Iterations: 100, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, fmt.Errorf("subtract: fit %q: %w", s.Name, err)
	}
	if results.Status == optimize.IterationLimit {
		return nil, fmt.Errorf("subtract: fit %q did not converge", s.Name)
	}
	level := results.X[0]

	J := mat.NewDense(len(ys), 1, nil)
	jacobian.Jac(J, results.X)
	var JTJ, cov mat.Dense
	JTJ.Mul(J.T(), J)
	if err := cov.Inverse(&JTJ); err != nil {
		return nil, fmt.Errorf("subtract: fit %q covariance: %w", s.Name, err)
	}

	var χ2 float64
	for i, y := range ys {
		d := (level - y) / σs[i]
		χ2 += d * d
	}

	return &FlatFit{
		Level: level,
		Sigma: math.Sqrt(cov.At(0, 0)),
		ChiSq: χ2,
		NDF:   len(ys) - 1,
	}, nil
}
