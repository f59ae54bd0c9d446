package transform

import (
	"math"
	"time"
)

// PositionTEME is a state vector in the TEME frame (km, km/s).
type PositionTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// PositionECEF is a state vector in the Earth-fixed frame (m, m/s).
type PositionECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// Radius returns the distance from Earth's centre in metres.
func (p PositionECEF) Radius() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// TEMEToECEF rotates a TEME state into the Earth-fixed frame at UTC time t.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST is TEMEToECEF with the sidereal angle supplied.
//
//	r_ecef = R3(θ) r_teme
//	v_ecef = R3(θ) v_teme - ω × r_ecef
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	sinG, cosG := math.Sincos(gmst)

	x := cosG*teme.X + sinG*teme.Y
	y := -sinG*teme.X + cosG*teme.Y
	z := teme.Z

	vx := cosG*teme.VX + sinG*teme.VY + OmegaEarth*y
	vy := -sinG*teme.VX + cosG*teme.VY - OmegaEarth*x
	vz := teme.VZ

	const kmToM = 1000.0
	return PositionECEF{
		X: x * kmToM, Y: y * kmToM, Z: z * kmToM,
		VX: vx * kmToM, VY: vy * kmToM, VZ: vz * kmToM,
	}
}

// Plausible reports whether p is finite and between 6200 km and 50000 km
// from Earth's centre, the envelope of anything SGP4 should produce.
func (p PositionECEF) Plausible() bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	r := p.Radius()
	return r >= 6200e3 && r <= 50000e3
}
