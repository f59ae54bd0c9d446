package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s.
const OmegaEarth = 7.292115146706979e-5

// JulianDate returns the Julian Date of t. Zone offsets are ignored; t is
// converted to UTC first.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// GMST returns Greenwich Mean Sidereal Time in radians, IAU-82 model
// (Vallado Eq 3-47):
//
//	θ = 67310.54841 + (876600h + 8640184.812866)T + 0.093104T² - 6.2e-6T³  [s]
//
// with T in Julian centuries of UT1 from J2000.0. UT1 is taken as UTC.
func GMST(t time.Time) float64 {
	tc := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tc +
		0.093104*tc*tc -
		6.2e-6*tc*tc*tc

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2 * math.Pi
}
