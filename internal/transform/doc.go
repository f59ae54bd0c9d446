// Package transform provides the coordinate frames needed to turn an SGP4
// state vector into what a ground observer sees.
//
// SGP4 outputs TEME (True Equator Mean Equinox). Rotating by GMST gives a
// pseudo Earth-fixed frame that is treated as ECEF here; polar motion and the
// equation of the equinoxes are ignored, an error of tens of metres that is
// far below what matters for look angles. Observers are WGS-84 geodetic.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3-4.
package transform
