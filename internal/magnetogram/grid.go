// Package magnetogram provides full-disk radial-field magnetogram grids
// and the dipole-moment reduction over them. A magnetogram is sampled on
// a regular latitude/longitude grid spanning the full sphere; pixels with
// no valid measurement are NaN and are excluded from all reductions.
package magnetogram

import (
	"fmt"
	"math"
)

// Grid is a 2D float64 field stored row-major: Data[i*NPhi+j] is the
// sample at latitude index i, longitude index j. NaN marks a missing
// (unobserved) pixel.
type Grid struct {
	NTheta int
	NPhi   int
	Data   []float64
}

// NewGrid allocates an all-zero grid of shape (nTheta, nPhi).
func NewGrid(nTheta, nPhi int) (*Grid, error) {
	if nTheta < 1 || nPhi < 1 {
		return nil, fmt.Errorf("grid shape (%d, %d) invalid: both dimensions must be >= 1", nTheta, nPhi)
	}
	return &Grid{
		NTheta: nTheta,
		NPhi:   nPhi,
		Data:   make([]float64, nTheta*nPhi),
	}, nil
}

// NewGridFrom wraps an existing row-major slice. The slice length must
// equal nTheta*nPhi.
func NewGridFrom(nTheta, nPhi int, data []float64) (*Grid, error) {
	if nTheta < 1 || nPhi < 1 {
		return nil, fmt.Errorf("grid shape (%d, %d) invalid: both dimensions must be >= 1", nTheta, nPhi)
	}
	if len(data) != nTheta*nPhi {
		return nil, fmt.Errorf("grid data length %d does not match shape (%d, %d)", len(data), nTheta, nPhi)
	}
	return &Grid{NTheta: nTheta, NPhi: nPhi, Data: data}, nil
}

// At returns the sample at latitude index i, longitude index j.
func (g *Grid) At(i, j int) (float64, error) {
	if i < 0 || i >= g.NTheta {
		return 0, fmt.Errorf("theta index %d out of range, must be between 0 and %d", i, g.NTheta-1)
	}
	if j < 0 || j >= g.NPhi {
		return 0, fmt.Errorf("phi index %d out of range, must be between 0 and %d", j, g.NPhi-1)
	}
	return g.Data[i*g.NPhi+j], nil
}

// Set stores v at latitude index i, longitude index j.
func (g *Grid) Set(i, j int, v float64) error {
	if i < 0 || i >= g.NTheta {
		return fmt.Errorf("theta index %d out of range, must be between 0 and %d", i, g.NTheta-1)
	}
	if j < 0 || j >= g.NPhi {
		return fmt.Errorf("phi index %d out of range, must be between 0 and %d", j, g.NPhi-1)
	}
	g.Data[i*g.NPhi+j] = v
	return nil
}

// SameShape reports whether g and other have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return g.NTheta == other.NTheta && g.NPhi == other.NPhi
}

// ValidPixels counts the non-NaN samples.
func (g *Grid) ValidPixels() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Scale multiplies every valid sample by k in place. NaN pixels stay NaN.
func (g *Grid) Scale(k float64) {
	for i, v := range g.Data {
		if !math.IsNaN(v) {
			g.Data[i] = v * k
		}
	}
}

// Linspace returns n points linearly spaced over [start, stop], both
// endpoints included. n must be >= 2 so the spacing is defined.
func Linspace(start, stop float64, n int) []float64 {
	if n < 2 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	// Pin the endpoint; accumulated step error would otherwise leave
	// the last point slightly off stop.
	out[n-1] = stop
	return out
}

// AngleGrids builds the latitude and longitude mesh for a full-sphere
// magnetogram of shape (nTheta, nPhi): theta spans [-pi/2, pi/2] down
// the first axis, phi spans [0, 2pi] across the second, both in radians.
// Each returned grid has the magnetogram's shape, so theta is constant
// along rows and phi is constant along columns.
func AngleGrids(nTheta, nPhi int) (theta, phi *Grid, err error) {
	theta, err = NewGrid(nTheta, nPhi)
	if err != nil {
		return nil, nil, err
	}
	phi, err = NewGrid(nTheta, nPhi)
	if err != nil {
		return nil, nil, err
	}

	lats := Linspace(-math.Pi/2, math.Pi/2, nTheta)
	lons := Linspace(0, 2*math.Pi, nPhi)

	for i := 0; i < nTheta; i++ {
		for j := 0; j < nPhi; j++ {
			theta.Data[i*nPhi+j] = lats[i]
			phi.Data[i*nPhi+j] = lons[j]
		}
	}
	return theta, phi, nil
}

// Radians converts a grid of angles in degrees to a new grid in radians.
func Radians(deg *Grid) *Grid {
	out := &Grid{NTheta: deg.NTheta, NPhi: deg.NPhi, Data: make([]float64, len(deg.Data))}
	for i, v := range deg.Data {
		out.Data[i] = v * math.Pi / 180
	}
	return out
}
