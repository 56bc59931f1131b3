package store

import (
	"fmt"

	"github.com/HamletTheHamster/eecsub/hist"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook/rootcnv"
)

// ROOT reads TH1 and TH2 objects out of a ROOT file. groot does not
// convert TH3, so Cube is unsupported here; export cubes to CSV instead.
type ROOT struct {
	path string
	f    *groot.File
}

func OpenROOT(
	path string,
) (
	*ROOT, error,
) {

	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: could not open %s: %w", path, err)
	}
	return &ROOT{path: path, f: f}, nil
}

func (r *ROOT) Series(name string) (hist.Series, error) {
	obj, err := r.f.Get(name)
	if err != nil {
		return hist.Series{}, fmt.Errorf("%w: %s in %s: %v", ErrNotFound, name, r.path, err)
	}
	h1, ok := obj.(rhist.H1)
	if !ok {
		return hist.Series{}, fmt.Errorf("%w: %s is a %s, not a TH1", ErrUnsupported, name, obj.Class())
	}
	return FromH1D(name, rootcnv.H1D(h1))
}

func (r *ROOT) Grid(name string) (hist.Grid, error) {
	obj, err := r.f.Get(name)
	if err != nil {
		return hist.Grid{}, fmt.Errorf("%w: %s in %s: %v", ErrNotFound, name, r.path, err)
	}
	h2, ok := obj.(rhist.H2)
	if !ok {
		return hist.Grid{}, fmt.Errorf("%w: %s is a %s, not a TH2", ErrUnsupported, name, obj.Class())
	}
	return FromH2D(name, rootcnv.H2D(h2))
}

func (r *ROOT) Cube(name string) (hist.Cube, error) {
	return hist.Cube{}, fmt.Errorf("%w: TH3 %q in %s", ErrUnsupported, name, r.path)
}

func (r *ROOT) Close() error {
	return r.f.Close()
}

// WriteROOT stores every series as a TH1D keyed by its name.
func WriteROOT(
	path string,
	series ...hist.Series,
) error {

	f, err := groot.Create(expandHome(path))
	if err != nil {
		return fmt.Errorf("store: could not create %s: %w", path, err)
	}

	for _, s := range series {
		if err := f.Put(s.Name, rhist.NewH1DFrom(ToH1D(s))); err != nil {
			f.Close()
			return fmt.Errorf("store: %s: %w", s.Name, err)
		}
	}
	return f.Close()
}
