package subtract

import (
	"context"
	"fmt"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/store"
	"golang.org/x/sync/errgroup"
)

// Opener opens the histogram file at path. store.Open satisfies it.
type Opener func(path string) (store.Store, error)

// Run dispatches a to its recipe. cf may be nil unless a reads stored
// c-factors.
func Run(
	st, cf store.Store,
	a config.Analysis,
) (
	*Result, error,
) {

	switch a.Recipe {
	case config.DataSub:
		return DataSub(st, a)
	case config.CFactorClosure:
		return Closure(st, cf, a)
	}
	return nil, fmt.Errorf("%s: unknown recipe %q", a.Name, a.Recipe)
}

// RunAll runs the analyses with at most parallel of them at a time, each
// on its own store handles. Results come back in input order. The first
// failure cancels the analyses not yet started.
func RunAll(
	ctx context.Context,
	open Opener,
	analyses []config.Analysis,
	parallel int,
) (
	[]*Result, error,
) {

	if parallel < 1 {
		parallel = 1
	}
	results := make([]*Result, len(analyses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, a := range analyses {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runOne(open, a)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runOne(
	open Opener,
	a config.Analysis,
) (
	*Result, error,
) {

	st, err := open(a.File)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name, err)
	}
	defer st.Close()

	var cf store.Store
	if a.CFactor == config.CFactorStored {
		if cf, err = open(a.CFactorFile); err != nil {
			return nil, fmt.Errorf("%s: c-factors: %w", a.Name, err)
		}
		defer cf.Close()
	}

	return Run(st, cf, a)
}
