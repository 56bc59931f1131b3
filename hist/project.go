package hist

import "gonum.org/v1/gonum/floats"

// Project collapses g onto its rows, weighting each column by its center:
//
//	value[i] = Σj content[i][j]·w[j]
//	error[i] = sqrt(Σj variance[i][j]·w[j]²)
//
// The result is not width-scaled.
func Project(g Grid) Series {
	w := g.ColumnCenters()
	w2 := make([]float64, len(w))
	floats.MulTo(w2, w, w)

	out := Empty(g.Name, g.RowEdges)
	for i := range g.Content {
		out.Values[i] = floats.Dot(g.Content[i], w)
		out.Variances[i] = floats.Dot(g.Variance[i], w2)
	}
	return out
}
