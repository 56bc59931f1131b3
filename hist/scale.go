package hist

// ScaleByBinWidth turns bin integrals into a differential density. Content
// and error are divided by the same width, so the variance goes down by
// width². Apply it once, right after projection and before any Combine or
// Divide.
func ScaleByBinWidth(s Series) Series {
	out := s.Clone(s.Name)
	for i, w := range s.Widths() {
		out.Values[i] /= w
		out.Variances[i] /= w * w
	}
	return out
}
