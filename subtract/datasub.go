package subtract

import (
	"fmt"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/HamletTheHamster/eecsub/store"
)

// DataSub subtracts the mixed-event backgrounds from data without
// c-factors. The unfolded (pT, R_L, weight) cubes are sliced on pT,
// collapsed onto R_L weighted by the weight-bin centers, width-scaled and
// combined as
//
//	signal − MB1 − (JMB − MB1MB2)
//
// When truth-level (R_L, pT) histograms are configured they are projected
// over the same window and subtracted as signal − MB1 − JMB, with
// + MB1MB2 if inclusion_exclusion is set, and the unfolded result is
// divided by them.
func DataSub(
	st store.Store,
	a config.Analysis,
) (
	*Result, error,
) {

	res := newResult(a)
	display := displayRange(a)

	pt, err := hist.ParseAxis(a.Axes.PT)
	if err != nil {
		return nil, err
	}
	rl, err := hist.ParseAxis(a.Axes.RL)
	if err != nil {
		return nil, err
	}
	weight, err := hist.ParseAxis(a.Axes.Weight)
	if err != nil {
		return nil, err
	}

	unfolded := func(role string) (hist.Series, error) {
		name := a.Hist(role)
		c, err := st.Cube(name)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}
		bins, err := a.Window.Bins(c.Edges[pt])
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %s: %w", a.Name, name, err)
		}
		var ranges hist.Ranges
		ranges[pt] = bins

		g, err := c.Project2D(rl, weight, ranges)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}
		res.logf("%s: pT bins %d..%d of %d", name, bins.First, bins.Last, c.Bins(pt))
		return hist.ScaleByBinWidth(hist.Project(g)), nil
	}

	var parts [4]hist.Series
	for i, role := range []string{
		config.Unfolded,
		config.UnfoldedMB1,
		config.UnfoldedJMB,
		config.UnfoldedMB1MB2,
	} {
		if parts[i], err = unfolded(role); err != nil {
			return nil, err
		}
	}
	signal, mb1, jmb, mb1mb2 := parts[0], parts[1], parts[2], parts[3]

	jmbOnly, err := res.combine("JMB - MB1MB2", hist.Plus(jmb), hist.Minus(mb1mb2))
	if err != nil {
		return nil, err
	}
	subtracted, err := res.combine("Bkg Sub", hist.Plus(signal), hist.Minus(mb1), hist.Minus(jmbOnly))
	if err != nil {
		return nil, err
	}

	if err := res.addCurve("Bkg Sub (no c-factor)", subtracted, display); err != nil {
		return nil, err
	}
	if err := res.addCurve("Nominal", signal, display); err != nil {
		return nil, err
	}

	if !a.HasTruth() {
		return res, nil
	}

	truth, err := res.truthLevel(st, a)
	if err != nil {
		return nil, err
	}
	if err := res.addCurve("Truth Bkg Sub", truth, display); err != nil {
		return nil, err
	}

	if !subtracted.SameBinning(truth) {
		res.logf("unfolded and truth R_L binnings differ, no ratio")
		return res, nil
	}
	ratio, err := res.divide(subtracted, truth, "Unfolded / Truth")
	if err != nil {
		return nil, err
	}
	if err := res.setRatio("Unfolded / Truth", ratio, display); err != nil {
		return nil, err
	}
	return res, nil
}

// truthLevel projects the (R_L, pT) truth grids over the pT window and
// subtracts them.
func (r *Result) truthLevel(
	st store.Store,
	a config.Analysis,
) (
	hist.Series, error,
) {

	project := func(role string) (hist.Series, error) {
		name := a.Hist(role)
		g, err := st.Grid(name)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}
		bins, err := a.Window.Bins(g.ColumnEdges)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %s: %w", a.Name, name, err)
		}
		s, err := g.ProjectRows(bins)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}
		return hist.ScaleByBinWidth(s), nil
	}

	var terms []hist.Term
	for _, role := range []string{config.Truth, config.TruthMB1, config.TruthJMB, config.TruthMB1MB2} {
		s, err := project(role)
		if err != nil {
			return hist.Series{}, err
		}

		switch role {
		case config.Truth:
			terms = append(terms, hist.Plus(s))
		case config.TruthMB1MB2:
			if a.InclusionExclusion {
				terms = append(terms, hist.Plus(s))
			}
		default:
			terms = append(terms, hist.Minus(s))
		}
	}
	return r.combine("Truth Bkg Sub", terms...)
}
