package hist

import (
	"fmt"
	"strings"
)

// Axis names one of the three cube axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" in either case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("hist: unknown axis %q", s)
}

// Ranges restricts each cube axis; a zero BinRange keeps the whole axis.
type Ranges [3]BinRange

// Cube is a 3D histogram stored flat with x running fastest:
// index = x + nx·(y + ny·z).
type Cube struct {
	Name     string
	Edges    [3][]float64
	Content  []float64
	Variance []float64
}

// NewCube validates the flat storage against the three binnings.
func NewCube(
	name string,
	edges [3][]float64,
	content, variance []float64,
) (
	Cube, error,
) {

	c := Cube{Name: name, Edges: edges, Content: content, Variance: variance}
	size := 1
	for a, e := range edges {
		if len(e) < 2 {
			return Cube{}, shapeError("%q axis %v needs at least two edges", name, Axis(a))
		}
		for i := 1; i < len(e); i++ {
			if !(e[i] > e[i-1]) {
				return Cube{}, shapeError("%q axis %v edges not increasing at %d", name, Axis(a), i)
			}
		}
		size *= len(e) - 1
	}
	if len(content) != size || len(variance) != size {
		return Cube{}, shapeError("%q expects %d cells, has %d content and %d variance",
			name, size, len(content), len(variance))
	}
	return c, nil
}

// EmptyCube allocates a zeroed cube.
func EmptyCube(name string, edges [3][]float64) Cube {
	size := 1
	var cp [3][]float64
	for a, e := range edges {
		cp[a] = append([]float64(nil), e...)
		size *= len(e) - 1
	}
	return Cube{
		Name:     name,
		Edges:    cp,
		Content:  make([]float64, size),
		Variance: make([]float64, size),
	}
}

// Bins returns the number of bins along a.
func (c Cube) Bins(a Axis) int {
	return len(c.Edges[a]) - 1
}

// Index returns the flat offset of the 0-based cell (x, y, z).
func (c Cube) Index(x, y, z int) int {
	return x + c.Bins(AxisX)*(y+c.Bins(AxisY)*z)
}

// walk visits every cell inside ranges with its 0-based coordinates.
func (c Cube) walk(
	ranges Ranges,
	visit func(idx [3]int, flat int),
) (
	error,
) {

	var lo, hi [3]int
	for a := range ranges {
		l, h, err := ranges[a].resolve(c.Bins(Axis(a)))
		if err != nil {
			return fmt.Errorf("%q axis %v: %w", c.Name, Axis(a), err)
		}
		lo[a], hi[a] = l, h
	}

	for z := lo[2]; z < hi[2]; z++ {
		for y := lo[1]; y < hi[1]; y++ {
			for x := lo[0]; x < hi[0]; x++ {
				visit([3]int{x, y, z}, c.Index(x, y, z))
			}
		}
	}
	return nil
}

// Project1D sums the cube onto axis, integrating the other two axes over
// their ranges. The range on axis itself is ignored.
func (c Cube) Project1D(
	axis Axis,
	ranges Ranges,
) (
	Series, error,
) {

	ranges[axis] = BinRange{}
	out := Empty(c.Name, c.Edges[axis])

	err := c.walk(ranges, func(idx [3]int, flat int) {
		out.Values[idx[axis]] += c.Content[flat]
		out.Variances[idx[axis]] += c.Variance[flat]
	})
	if err != nil {
		return Series{}, err
	}
	return out, nil
}

// Project2D sums the cube over the axis that is neither row nor col,
// inside its range, giving a grid with rows along row and columns along
// col.
func (c Cube) Project2D(
	row, col Axis,
	ranges Ranges,
) (
	Grid, error,
) {

	if row == col {
		return Grid{}, fmt.Errorf("hist: %q projected on %v twice", c.Name, row)
	}
	ranges[row], ranges[col] = BinRange{}, BinRange{}
	out := EmptyGrid(c.Name, c.Edges[row], c.Edges[col])

	err := c.walk(ranges, func(idx [3]int, flat int) {
		out.Content[idx[row]][idx[col]] += c.Content[flat]
		out.Variance[idx[row]][idx[col]] += c.Variance[flat]
	})
	if err != nil {
		return Grid{}, err
	}
	return out, nil
}
