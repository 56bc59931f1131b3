// Package store fetches named histograms from analysis output files and
// hands them to the bin arithmetic in package hist.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HamletTheHamster/eecsub/hist"
)

var (
	ErrNotFound    = errors.New("store: histogram not found")
	ErrUnsupported = errors.New("store: unsupported histogram type")
)

// Store is a source of named histograms. Every call returns a fresh copy
// the caller owns.
type Store interface {
	Series(name string) (hist.Series, error)
	Grid(name string) (hist.Grid, error)
	Cube(name string) (hist.Cube, error)
	Close() error
}

// Open picks a backend from path: a .root file is read with groot, a
// directory is read as one CSV file per histogram.
func Open(
	path string,
) (
	Store, error,
) {

	path = expandHome(path)

	if strings.EqualFold(filepath.Ext(path), ".root") {
		return OpenROOT(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if info.IsDir() {
		return OpenCSV(path)
	}
	return nil, fmt.Errorf("store: %s is neither a .root file nor a CSV directory", path)
}

// expandHome resolves the "~/" prefix the analysis file paths are
// usually written with.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}
