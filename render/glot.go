package render

import (
	"fmt"

	"github.com/Arafatk/glot"
	"github.com/HamletTheHamster/eecsub/subtract"
)

// QuickLook opens a persistent gnuplot window with every curve of r. It
// needs gnuplot on PATH.
func QuickLook(r *subtract.Result) error {
	dimensions := 2
	persist := true
	debug := false
	plot, err := glot.NewPlot(dimensions, persist, debug)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	plot.SetTitle(title(r))
	plot.SetXLabel(rlLabel)
	plot.SetYLabel(r.Observable)
	if err := plot.Cmd("set logscale x"); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	for _, c := range r.Curves {
		points := [][]float64{c.Series.Centers(), c.Series.Values}
		if err := plot.AddPointGroup(c.Label, "points", points); err != nil {
			return fmt.Errorf("render: %s: %w", c.Label, err)
		}
	}
	return nil
}
