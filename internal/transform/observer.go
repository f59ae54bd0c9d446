package transform

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Observer is a fixed ground location on the WGS-84 ellipsoid. The
// Earth-fixed position and the local rotation terms are computed once in
// NewObserver and reused for every look-angle query.
type Observer struct {
	LatDeg, LonDeg float64
	AltM           float64

	ecef                           [3]float64
	sinLat, cosLat, sinLon, cosLon float64
}

// NewObserver builds an Observer from geodetic latitude/longitude (degrees)
// and height above the ellipsoid (metres).
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	sinLat, cosLat := math.Sincos(latDeg * deg2rad)
	sinLon, cosLon := math.Sincos(lonDeg * deg2rad)

	// Prime vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		LatDeg: latDeg,
		LonDeg: lonDeg,
		AltM:   altM,
		ecef: [3]float64{
			(n + altM) * cosLat * cosLon,
			(n + altM) * cosLat * sinLon,
			(n*(1-wgs84E2) + altM) * sinLat,
		},
		sinLat: sinLat, cosLat: cosLat,
		sinLon: sinLon, cosLon: cosLon,
	}
}

// Validate checks that the coordinates are on the globe.
func (o Observer) Validate() error {
	if math.IsNaN(o.LatDeg) || o.LatDeg < -90 || o.LatDeg > 90 {
		return fmt.Errorf("observer latitude %v outside [-90, 90]", o.LatDeg)
	}
	if math.IsNaN(o.LonDeg) || o.LonDeg < -180 || o.LonDeg > 360 {
		return fmt.Errorf("observer longitude %v outside [-180, 360]", o.LonDeg)
	}
	if math.IsNaN(o.AltM) || math.IsInf(o.AltM, 0) {
		return fmt.Errorf("observer altitude %v is not finite", o.AltM)
	}
	return nil
}

// ECEF returns the observer's Earth-fixed position in metres.
func (o Observer) ECEF() (x, y, z float64) {
	return o.ecef[0], o.ecef[1], o.ecef[2]
}

// String formats the observer for logs.
func (o Observer) String() string {
	return fmt.Sprintf("%.6f,%.6f@%.0fm", o.LatDeg, o.LonDeg, o.AltM)
}

// LookAngles is where a target appears from an observer.
type LookAngles struct {
	AzimuthDeg   float64 // [0, 360), 0 = North, clockwise
	ElevationDeg float64 // [-90, 90], 0 = horizon
	RangeKm      float64
}

// Look computes the look angles from o to a target at p.
// The range vector is rotated into the local South-East-Zenith frame
// (Vallado 4.4).
func (o Observer) Look(p PositionECEF) LookAngles {
	rx := p.X - o.ecef[0]
	ry := p.Y - o.ecef[1]
	rz := p.Z - o.ecef[2]

	s := o.sinLat*o.cosLon*rx + o.sinLat*o.sinLon*ry - o.cosLat*rz
	e := -o.sinLon*rx + o.cosLon*ry
	z := o.cosLat*o.cosLon*rx + o.cosLat*o.sinLon*ry + o.sinLat*rz

	rng := math.Sqrt(s*s + e*e + z*z)
	if rng == 0 {
		return LookAngles{ElevationDeg: 90}
	}

	return LookAngles{
		AzimuthDeg:   NormalizeAzimuth(math.Atan2(e, -s) * rad2deg),
		ElevationDeg: math.Asin(math.Max(-1, math.Min(1, z/rng))) * rad2deg,
		RangeKm:      rng / 1000.0,
	}
}

// NormalizeAzimuth maps any angle in degrees onto [0, 360).
func NormalizeAzimuth(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// Mod of a tiny negative value plus 360 rounds to exactly 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// GeodeticPoint is a geodetic position (degrees, metres above the ellipsoid).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltM float64
}

// ECEFToGeodetic converts an Earth-fixed position in metres to geodetic
// coordinates by fixed-point iteration on latitude; five rounds are plenty
// for anything in Earth orbit.
func ECEFToGeodetic(p PositionECEF) GeodeticPoint {
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	var n float64
	for range 5 {
		sinLat := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*n*sinLat, rho)
	}

	sinLat, cosLat := math.Sincos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - n
	} else {
		alt = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * rad2deg,
		LonDeg: lon * rad2deg,
		AltM:   alt,
	}
}
