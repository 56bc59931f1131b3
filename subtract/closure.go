package subtract

import (
	"fmt"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/HamletTheHamster/eecsub/store"
)

// cfactor is a matched/unmatched pair of correction factors for one
// background.
type cfactor struct {
	m, um hist.Series
}

// Closure runs the embedding closure test. Every embedding cube is
// projected onto R_L over the reco and truth pT windows and width-scaled.
// Each background B is corrected against matched and unmatched references
// R_m and R_um,
//
//	c_m = B/R_m,  c_um = B/R_um,  B_corr = B/c_m + B/c_um
//
// and the corrected distribution
//
//	MJ_m + MJ0_um − MB1_corr − (SMB_m + BMB_m + BMB_um − MB1MB2_corr)/(SMB_m/MJ1_m)
//
// is divided by the signal-signal truth MJ2_m. cf supplies stored
// c-factors and may be nil unless the analysis asks for them.
func Closure(
	st, cf store.Store,
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
	truth, err := hist.ParseAxis(a.Axes.Truth)
	if err != nil {
		return nil, err
	}
	rl, err := hist.ParseAxis(a.Axes.RL)
	if err != nil {
		return nil, err
	}

	project := func(role string) (hist.Series, error) {
		name := a.Hist(role)
		c, err := st.Cube(name)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}

		var ranges hist.Ranges
		if ranges[pt], err = a.Window.Bins(c.Edges[pt]); err != nil {
			return hist.Series{}, fmt.Errorf("%s: %s reco pT: %w", a.Name, name, err)
		}
		if a.TruthWindow != nil {
			if ranges[truth], err = a.TruthWindow.Bins(c.Edges[truth]); err != nil {
				return hist.Series{}, fmt.Errorf("%s: %s truth pT: %w", a.Name, name, err)
			}
		}

		s, err := c.Project1D(rl, ranges)
		if err != nil {
			return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
		}
		return hist.ScaleByBinWidth(s), nil
	}

	h := make(map[string]hist.Series)
	for _, role := range []string{
		config.MJm, config.MJ0m, config.MJ0um, config.MJ1m, config.MJ2m,
		config.MB1, config.MB1MB2, config.BMBm, config.BMBum, config.SMBm,
	} {
		if h[role], err = project(role); err != nil {
			return nil, err
		}
	}

	var mb1C, mb1mb2C cfactor
	var smbC hist.Series

	switch a.CFactor {
	case config.CFactorCompute:
		if mb1C, err = res.computeCFactor("MB1", h[config.MB1], h[config.MJ0m], h[config.MJ0um]); err != nil {
			return nil, err
		}
		if mb1mb2C, err = res.computeCFactor("MB1MB2", h[config.MB1MB2], h[config.BMBm], h[config.BMBum]); err != nil {
			return nil, err
		}
		if smbC, err = res.divide(h[config.SMBm], h[config.MJ1m], "c SMB"); err != nil {
			return nil, err
		}
	case config.CFactorStored:
		if cf == nil {
			return nil, fmt.Errorf("%s: stored c-factors need a c-factor file", a.Name)
		}
		load := func(role string) (hist.Series, error) {
			s, err := cf.Series(a.Hist(role))
			if err != nil {
				return hist.Series{}, fmt.Errorf("%s: %w", a.Name, err)
			}
			return s, nil
		}
		if mb1C.m, err = load(config.CFacMB1m); err != nil {
			return nil, err
		}
		if mb1C.um, err = load(config.CFacMB1um); err != nil {
			return nil, err
		}
		if mb1mb2C.m, err = load(config.CFacMB1MB2m); err != nil {
			return nil, err
		}
		if mb1mb2C.um, err = load(config.CFacMB1MB2um); err != nil {
			return nil, err
		}
		if smbC, err = load(config.CFacSMB); err != nil {
			return nil, err
		}
	}

	cfactorsOn := a.CFactor != config.CFactorNone
	mb1, mb1mb2 := h[config.MB1], h[config.MB1MB2]
	if cfactorsOn {
		if mb1, err = res.applyCFactor("MB1 corrected", mb1, mb1C); err != nil {
			return nil, err
		}
		if mb1mb2, err = res.applyCFactor("MB1MB2 corrected", mb1mb2, mb1mb2C); err != nil {
			return nil, err
		}
		for _, c := range []hist.Series{mb1C.m, mb1C.um, mb1mb2C.m, mb1mb2C.um, smbC} {
			shown, err := c.Restrict(display)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.Name, err)
			}
			res.CFactors = append(res.CFactors, Curve{Label: c.Name, Series: shown})
		}
	}

	jmb, err := res.combine("JMB corrected",
		hist.Plus(h[config.SMBm]),
		hist.Plus(h[config.BMBm]),
		hist.Plus(h[config.BMBum]),
		hist.Minus(mb1mb2),
	)
	if err != nil {
		return nil, err
	}
	if cfactorsOn {
		if jmb, err = res.divide(jmb, smbC, "JMB corrected"); err != nil {
			return nil, err
		}
	}

	corrected, err := res.combine("Corrected",
		hist.Plus(h[config.MJm]),
		hist.Plus(h[config.MJ0um]),
		hist.Minus(mb1),
		hist.Minus(jmb),
	)
	if err != nil {
		return nil, err
	}

	if err := res.addCurve("Corrected", corrected, display); err != nil {
		return nil, err
	}
	if err := res.addCurve("Truth (ss, matched)", h[config.MJ2m], display); err != nil {
		return nil, err
	}
	if a.Histograms[config.MJ] != "" {
		all, err := project(config.MJ)
		if err != nil {
			return nil, err
		}
		if err := res.addCurve("Embedded (all)", all, display); err != nil {
			return nil, err
		}
	}

	ratio, err := res.divide(corrected, h[config.MJ2m], "Corrected / Truth")
	if err != nil {
		return nil, err
	}
	if err := res.setRatio("Corrected / Truth", ratio, display); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Result) computeCFactor(
	name string,
	b, refM, refUM hist.Series,
) (
	cfactor, error,
) {

	m, err := r.divide(b, refM, "c "+name+" matched")
	if err != nil {
		return cfactor{}, err
	}
	um, err := r.divide(b, refUM, "c "+name+" unmatched")
	if err != nil {
		return cfactor{}, err
	}
	return cfactor{m: m, um: um}, nil
}

// applyCFactor returns B/c_m + B/c_um.
func (r *Result) applyCFactor(
	name string,
	b hist.Series,
	c cfactor,
) (
	hist.Series, error,
) {

	m, err := r.divide(b, c.m, name+" matched")
	if err != nil {
		return hist.Series{}, err
	}
	um, err := r.divide(b, c.um, name+" unmatched")
	if err != nil {
		return hist.Series{}, err
	}
	return r.combine(name, hist.Plus(m), hist.Plus(um))
}
