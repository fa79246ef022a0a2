package magnetogram

import (
	"fmt"
	"math"
)

// Vector holds the three leading dipole-moment coefficients of a
// full-sphere radial field: the axial strength DAx and the two
// transverse (equatorial) components H1 and H2. ValidPixels counts the
// samples that actually contributed; TotalPixels is the grid size.
type Vector struct {
	DAx         float64
	H1          float64
	H2          float64
	ValidPixels int
	TotalPixels int
}

// Strength returns the magnitude of the transverse dipole component.
func (v Vector) Strength() float64 {
	return math.Sqrt(v.H1*v.H1 + v.H2*v.H2)
}

func checkShapes(field, theta, phi *Grid) error {
	if !field.SameShape(theta) {
		return fmt.Errorf("shape mismatch: field is (%d, %d) but theta is (%d, %d)",
			field.NTheta, field.NPhi, theta.NTheta, theta.NPhi)
	}
	if !field.SameShape(phi) {
		return fmt.Errorf("shape mismatch: field is (%d, %d) but phi is (%d, %d)",
			field.NTheta, field.NPhi, phi.NTheta, phi.NPhi)
	}
	return nil
}

// Dipole reduces a radial-field magnetogram to its dipole vector using
// the unweighted reference sums:
//
//	DAx = sum B_r * sin(theta)
//	H1  = sum B_r * cos(theta) * cos(phi)
//	H2  = sum B_r * cos(theta) * sin(phi)
//
// theta and phi are the latitude/longitude meshes in radians and must
// match the field's shape exactly; no broadcasting. NaN field pixels
// contribute zero, so a single bad pixel never poisons the result. An
// all-NaN field yields the zero vector.
func Dipole(field, theta, phi *Grid) (Vector, error) {
	if err := checkShapes(field, theta, phi); err != nil {
		return Vector{}, err
	}

	v := Vector{TotalPixels: len(field.Data)}
	for i, b := range field.Data {
		if math.IsNaN(b) {
			continue
		}
		t := theta.Data[i]
		p := phi.Data[i]
		v.DAx += b * math.Sin(t)
		ct := math.Cos(t)
		v.H1 += b * ct * math.Cos(p)
		v.H2 += b * ct * math.Sin(p)
		v.ValidPixels++
	}
	return v, nil
}

// DipoleWeighted computes the dipole vector with the full quadrature of
// the published formulas: each cell is weighted by the solid-angle
// element dOmega = cos(theta) dtheta dphi and the 3/(4pi) prefactor, so
// the outputs are physical moments in the field's units. The grid
// spacings dtheta and dphi are read off the angle meshes, which must be
// regular. NaN and shape semantics match Dipole.
func DipoleWeighted(field, theta, phi *Grid) (Vector, error) {
	if err := checkShapes(field, theta, phi); err != nil {
		return Vector{}, err
	}

	dTheta, err := meshSpacing(theta, true)
	if err != nil {
		return Vector{}, err
	}
	dPhi, err := meshSpacing(phi, false)
	if err != nil {
		return Vector{}, err
	}

	prefactor := 3.0 / (4.0 * math.Pi)
	v := Vector{TotalPixels: len(field.Data)}
	for i, b := range field.Data {
		if math.IsNaN(b) {
			continue
		}
		t := theta.Data[i]
		p := phi.Data[i]
		w := prefactor * math.Cos(t) * dTheta * dPhi
		v.DAx += b * math.Sin(t) * w
		ct := math.Cos(t)
		v.H1 += b * ct * math.Cos(p) * w
		v.H2 += b * ct * math.Sin(p) * w
		v.ValidPixels++
	}
	return v, nil
}

// meshSpacing returns the step of a regular angle mesh: row step for the
// theta mesh (alongRows), column step for the phi mesh. Degenerate
// single-row/column meshes get unit spacing so the weighted sum stays
// defined.
func meshSpacing(g *Grid, alongRows bool) (float64, error) {
	if alongRows {
		if g.NTheta < 2 {
			return 1, nil
		}
		d := g.Data[g.NPhi] - g.Data[0]
		if d == 0 {
			return 0, fmt.Errorf("theta mesh is not strictly spaced along rows")
		}
		return math.Abs(d), nil
	}
	if g.NPhi < 2 {
		return 1, nil
	}
	d := g.Data[1] - g.Data[0]
	if d == 0 {
		return 0, fmt.Errorf("phi mesh is not strictly spaced along columns")
	}
	return math.Abs(d), nil
}
