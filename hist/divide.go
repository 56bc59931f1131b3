package hist

import "math"

// Divide returns the bin-wise ratio num/den.
//
// Numerator and denominator are taken to be built from overlapping,
// positively correlated samples, so the relative errors subtract:
//
//	σr = |r · (σn/n − σd/d)|
//
// A zero denominator gives 0 ± 0. A zero numerator over a non-zero
// denominator leaves σn/n undefined: the bin gets value 0 and variance
// NaN, and the series is returned with an *UndefinedError listing those
// bins.
func Divide(
	num, den Series,
) (
	Series, error,
) {

	if !num.SameBinning(den) {
		return Series{}, shapeError("divide %q (%d bins) by %q (%d bins)",
			num.Name, num.Len(), den.Name, den.Len())
	}

	out := Empty(num.Name+"/"+den.Name, num.Edges)
	var undefined []int

	for i := range num.Values {
		n, d := num.Values[i], den.Values[i]

		if d == 0 {
			continue
		}
		if n == 0 {
			out.Variances[i] = math.NaN()
			undefined = append(undefined, i)
			continue
		}

		σn, σd := math.Sqrt(num.Variances[i]), math.Sqrt(den.Variances[i])
		r := n / d
		σr := math.Abs(r * math.Abs(σn/n-σd/d))

		out.Values[i] = r
		out.Variances[i] = σr * σr
	}

	if len(undefined) > 0 {
		return out, &UndefinedError{Name: out.Name, Bins: undefined}
	}
	return out, nil
}
