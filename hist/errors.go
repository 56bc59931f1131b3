package hist

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is returned when operands do not share the same binning.
	ErrShape = errors.New("hist: shape mismatch")

	// ErrUndefinedRelativeError marks ratio bins whose numerator is zero
	// while the denominator is not, so σn/n has no value.
	ErrUndefinedRelativeError = errors.New("hist: undefined relative error")

	ErrNoTerms     = errors.New("hist: no terms to combine")
	ErrEmptyWindow = errors.New("hist: window selects no bins")
)

// UndefinedError lists the 0-based bins of a ratio whose error could not
// be propagated. The ratio itself is still returned alongside it.
type UndefinedError struct {
	Name string
	Bins []int
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("%v in %q at bins %v", ErrUndefinedRelativeError, e.Name, e.Bins)
}

func (e *UndefinedError) Unwrap() error {
	return ErrUndefinedRelativeError
}

func shapeError(
	format string,
	args ...any,
) (
	error,
) {
	return fmt.Errorf("%w: %s", ErrShape, fmt.Sprintf(format, args...))
}
