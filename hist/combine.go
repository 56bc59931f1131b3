package hist

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Term is one signed contribution to a linear combination.
type Term struct {
	Series      Series
	Coefficient float64
}

// Plus and Minus are shorthands for the ±1 terms of a subtraction chain.
func Plus(s Series) Term  { return Term{Series: s, Coefficient: 1} }
func Minus(s Series) Term { return Term{Series: s, Coefficient: -1} }

// Combine returns Σ c·s bin by bin. The terms are treated as independent,
// so their variances add as Σ c²·var.
func Combine(
	terms ...Term,
) (
	Series, error,
) {

	if len(terms) == 0 {
		return Series{}, ErrNoTerms
	}

	first := terms[0].Series
	for _, t := range terms[1:] {
		if !first.SameBinning(t.Series) {
			return Series{}, shapeError("combine %q (%d bins) with %q (%d bins)",
				first.Name, first.Len(), t.Series.Name, t.Series.Len())
		}
	}

	out := Empty(combinedName(terms), first.Edges)
	for _, t := range terms {
		c := t.Coefficient
		floats.AddScaled(out.Values, c, t.Series.Values)
		floats.AddScaled(out.Variances, c*c, t.Series.Variances)
	}
	return out, nil
}

func combinedName(terms []Term) string {
	var b strings.Builder
	for i, t := range terms {
		switch {
		case i == 0 && t.Coefficient == 1:
		case t.Coefficient == 1:
			b.WriteString(" + ")
		case i == 0 && t.Coefficient == -1:
			b.WriteString("-")
		case t.Coefficient == -1:
			b.WriteString(" - ")
		default:
			if i > 0 {
				b.WriteString(" + ")
			}
			fmt.Fprintf(&b, "%g*", t.Coefficient)
		}
		b.WriteString(t.Series.Name)
	}
	return b.String()
}
