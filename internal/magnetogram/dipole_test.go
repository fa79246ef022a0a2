package magnetogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDipole_ZeroField(t *testing.T) {
	field, err := NewGrid(7, 12)
	require.NoError(t, err)
	theta, phi, err := AngleGrids(7, 12)
	require.NoError(t, err)

	v, err := Dipole(field, theta, phi)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.DAx)
	assert.Equal(t, 0.0, v.H1)
	assert.Equal(t, 0.0, v.H2)
	assert.Equal(t, 7*12, v.ValidPixels)
}

func TestDipole_EquatorialRing(t *testing.T) {
	// Unit field on the theta=0 row only. sin(0)=0 kills the axial
	// term; the transverse terms reduce to sums of cos/sin over the
	// longitude ring.
	const nTheta, nPhi = 5, 5
	field, err := NewGrid(nTheta, nPhi)
	require.NoError(t, err)
	for j := 0; j < nPhi; j++ {
		require.NoError(t, field.Set(nTheta/2, j, 1))
	}
	theta, phi, err := AngleGrids(nTheta, nPhi)
	require.NoError(t, err)

	v, err := Dipole(field, theta, phi)
	require.NoError(t, err)

	assert.InDelta(t, 0, v.DAx, 1e-12)
	// phi = 0, pi/2, pi, 3pi/2, 2pi: cos sums to 1, sin sums to 0.
	assert.InDelta(t, 1, v.H1, 1e-12)
	assert.InDelta(t, 0, v.H2, 1e-12)
	assert.LessOrEqual(t, v.H1*v.H1+v.H2*v.H2, float64(nPhi)+1e-12)
}

func TestDipole_NaNExclusionIsExact(t *testing.T) {
	const nTheta, nPhi = 9, 16
	field, err := NewGrid(nTheta, nPhi)
	require.NoError(t, err)
	for i := range field.Data {
		field.Data[i] = math.Sin(float64(i)*0.37) + 0.2*float64(i%5)
	}
	theta, phi, err := AngleGrids(nTheta, nPhi)
	require.NoError(t, err)

	// Knock out an arbitrary scatter of pixels.
	holes := []int{0, 7, 33, 34, 35, 80, nTheta*nPhi - 1}
	for _, h := range holes {
		field.Data[h] = math.NaN()
	}

	v, err := Dipole(field, theta, phi)
	require.NoError(t, err)

	// Reference: accumulate in the same order over only the valid
	// pixels. Exclusion must be exact, not approximate.
	var dax, h1, h2 float64
	valid := 0
	for i, b := range field.Data {
		if math.IsNaN(b) {
			continue
		}
		dax += b * math.Sin(theta.Data[i])
		h1 += b * math.Cos(theta.Data[i]) * math.Cos(phi.Data[i])
		h2 += b * math.Cos(theta.Data[i]) * math.Sin(phi.Data[i])
		valid++
	}

	assert.Equal(t, dax, v.DAx)
	assert.Equal(t, h1, v.H1)
	assert.Equal(t, h2, v.H2)
	assert.Equal(t, valid, v.ValidPixels)
	assert.Equal(t, nTheta*nPhi, v.TotalPixels)

	assert.False(t, math.IsNaN(v.DAx))
	assert.False(t, math.IsNaN(v.H1))
	assert.False(t, math.IsNaN(v.H2))
}

func TestDipole_AllNaNIsZero(t *testing.T) {
	field, err := NewGrid(4, 4)
	require.NoError(t, err)
	for i := range field.Data {
		field.Data[i] = math.NaN()
	}
	theta, phi, err := AngleGrids(4, 4)
	require.NoError(t, err)

	v, err := Dipole(field, theta, phi)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.DAx)
	assert.Equal(t, 0.0, v.H1)
	assert.Equal(t, 0.0, v.H2)
	assert.Equal(t, 0, v.ValidPixels)
}

func TestDipole_Linearity(t *testing.T) {
	const k = 3.5
	field, err := NewGrid(6, 9)
	require.NoError(t, err)
	for i := range field.Data {
		field.Data[i] = float64(i%7) - 2.5
	}
	field.Data[11] = math.NaN()
	theta, phi, err := AngleGrids(6, 9)
	require.NoError(t, err)

	v1, err := Dipole(field, theta, phi)
	require.NoError(t, err)

	field.Scale(k)
	v2, err := Dipole(field, theta, phi)
	require.NoError(t, err)

	assert.InDelta(t, k*v1.DAx, v2.DAx, 1e-12)
	assert.InDelta(t, k*v1.H1, v2.H1, 1e-12)
	assert.InDelta(t, k*v1.H2, v2.H2, 1e-12)
	assert.Equal(t, v1.ValidPixels, v2.ValidPixels)
}

func TestDipole_ShapeMismatch(t *testing.T) {
	field, err := NewGrid(10, 20)
	require.NoError(t, err)
	theta, err := NewGrid(10, 21)
	require.NoError(t, err)
	phi, err := NewGrid(10, 20)
	require.NoError(t, err)

	_, err = Dipole(field, theta, phi)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")

	_, err = DipoleWeighted(field, theta, phi)
	require.Error(t, err)

	// phi mismatch too
	thetaOK, err := NewGrid(10, 20)
	require.NoError(t, err)
	phiBad, err := NewGrid(11, 20)
	require.NoError(t, err)
	_, err = Dipole(field, thetaOK, phiBad)
	require.Error(t, err)
}

func TestDipole_ThreeByFourRegression(t *testing.T) {
	// Literal grid: theta rows -90/0/90 deg, phi columns 0/90/180/270
	// deg, all-ones field.
	deg := math.Pi / 180
	thetaDeg := [3]float64{-90, 0, 90}
	phiDeg := [4]float64{0, 90, 180, 270}

	field, err := NewGrid(3, 4)
	require.NoError(t, err)
	theta, err := NewGrid(3, 4)
	require.NoError(t, err)
	phi, err := NewGrid(3, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			require.NoError(t, field.Set(i, j, 1))
			require.NoError(t, theta.Set(i, j, thetaDeg[i]*deg))
			require.NoError(t, phi.Set(i, j, phiDeg[j]*deg))
		}
	}

	v, err := Dipole(field, theta, phi)
	require.NoError(t, err)

	// D_ax = (sin(-pi/2)+sin(0)+sin(pi/2)) * 4 = 0
	assert.InDelta(t, 0, v.DAx, 1e-12)

	// H1 = sum cos(theta)*cos(phi); computed directly from the grid.
	var wantH1, wantH2 float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			wantH1 += math.Cos(thetaDeg[i]*deg) * math.Cos(phiDeg[j]*deg)
			wantH2 += math.Cos(thetaDeg[i]*deg) * math.Sin(phiDeg[j]*deg)
		}
	}
	assert.InDelta(t, wantH1, v.H1, 1e-12)
	assert.InDelta(t, wantH2, v.H2, 1e-12)
}

func TestDipoleWeighted_RecoversUnitAxialMoment(t *testing.T) {
	// For B_r = sin(theta), the published axial moment is exactly 1:
	// 3/(4pi) * int sin^2(theta) cos(theta) dtheta dphi = 1.
	// The quadrature converges to it on a fine grid.
	const nTheta, nPhi = 181, 361
	field, err := NewGrid(nTheta, nPhi)
	require.NoError(t, err)
	theta, phi, err := AngleGrids(nTheta, nPhi)
	require.NoError(t, err)
	for i := range field.Data {
		field.Data[i] = math.Sin(theta.Data[i])
	}

	v, err := DipoleWeighted(field, theta, phi)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, v.DAx, 0.02)
	assert.InDelta(t, 0.0, v.H1, 1e-9)
	assert.InDelta(t, 0.0, v.H2, 1e-9)
}

func TestDipoleWeighted_NaNExclusion(t *testing.T) {
	field, err := NewGrid(19, 37)
	require.NoError(t, err)
	theta, phi, err := AngleGrids(19, 37)
	require.NoError(t, err)
	for i := range field.Data {
		field.Data[i] = 1
	}
	field.Data[40] = math.NaN()

	v, err := DipoleWeighted(field, theta, phi)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(v.DAx))
	assert.False(t, math.IsNaN(v.H1))
	assert.False(t, math.IsNaN(v.H2))
	assert.Equal(t, 19*37-1, v.ValidPixels)
}
