// Package geometry answers the two questions pass prediction asks about an
// object and an observer: where does the object appear at an instant, and
// when does its elevation cross a threshold or peak within a time range.
package geometry

import (
	"context"
	"fmt"
	"time"
)

// Look is an object's apparent position from the observer.
type Look struct {
	Azimuth   float64 `json:"azimuth"`   // degrees, [0, 360), 0 = North, clockwise
	Elevation float64 `json:"elevation"` // degrees, [-90, 90]
	RangeKm   float64 `json:"range_km"`
}

// CrossingKind distinguishes threshold crossings from elevation maxima.
type CrossingKind int

const (
	Ascending  CrossingKind = iota // elevation rose to or above the threshold
	Peak                           // local elevation maximum
	Descending                     // elevation fell below the threshold
)

func (k CrossingKind) String() string {
	switch k {
	case Ascending:
		return "ascending"
	case Peak:
		return "peak"
	case Descending:
		return "descending"
	default:
		return fmt.Sprintf("CrossingKind(%d)", int(k))
	}
}

// Crossing is one elevation event found by a search.
// Ascending crossings are the first whole second at or above the threshold,
// descending crossings the first whole second below it.
type Crossing struct {
	Time time.Time
	Kind CrossingKind
	Look Look
}

// Geometry is the observation geometry of one object from one observer.
// Implementations must be safe for concurrent use.
type Geometry interface {
	// Object identifies the object in errors and logs.
	Object() string
	// Look returns the apparent position at t.
	Look(t time.Time) (Look, error)
	// Crossings returns every threshold crossing and local elevation maximum
	// in [start, end], ordered by time.
	Crossings(ctx context.Context, start, end time.Time, minElevation float64) ([]Crossing, error)
}

// PropagationError reports that a position could not be computed.
type PropagationError struct {
	Object  string
	NORADID int
	Time    time.Time
	Err     error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagating %s (NORAD %d) at %s: %v",
		e.Object, e.NORADID, e.Time.UTC().Format(time.RFC3339), e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }
