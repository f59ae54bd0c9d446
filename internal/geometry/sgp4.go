package geometry

import (
	"context"
	"time"

	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/propagation"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// DefaultSearchStep is the coarse scan interval used by SGP4.Crossings.
// Passes of LEO objects above a few degrees last minutes, so 10s steps
// miss nothing once maxima between grid points are refined.
const DefaultSearchStep = 10 * time.Second

// SGP4 is the Geometry of a catalog entry seen from a ground observer,
// computed with the SGP4 model.
type SGP4 struct {
	entry    tle.Entry
	prop     *propagation.Propagator
	observer transform.Observer
	step     time.Duration
}

// Option configures an SGP4 geometry.
type Option func(*SGP4)

// WithSearchStep sets the coarse scan interval. Values under a second are
// raised to one second.
func WithSearchStep(step time.Duration) Option {
	return func(g *SGP4) {
		g.step = step
	}
}

// NewSGP4 binds entry to observer. Elements the model rejects are reported
// as a *PropagationError at the element epoch.
func NewSGP4(entry tle.Entry, observer transform.Observer, opts ...Option) (*SGP4, error) {
	prop, err := propagation.New(entry)
	if err != nil {
		return nil, &PropagationError{Object: entry.Name, NORADID: entry.NORADID, Time: entry.Epoch, Err: err}
	}
	g := &SGP4{
		entry:    entry,
		prop:     prop,
		observer: observer,
		step:     DefaultSearchStep,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.step < time.Second {
		g.step = time.Second
	}
	return g, nil
}

// Object returns the entry's display name.
func (g *SGP4) Object() string { return g.entry.Name }

// Entry returns the elements the geometry was built from.
func (g *SGP4) Entry() tle.Entry { return g.entry }

// Observer returns the observer the geometry was built for.
func (g *SGP4) Observer() transform.Observer { return g.observer }

// Look propagates to t and converts to the observer's look angles.
func (g *SGP4) Look(t time.Time) (Look, error) {
	ecef, err := g.prop.PropagateECEF(t)
	if err != nil {
		metrics.IncGeometryQueries("error")
		return Look{}, &PropagationError{Object: g.entry.Name, NORADID: g.entry.NORADID, Time: t.UTC(), Err: err}
	}
	metrics.IncGeometryQueries("ok")

	la := g.observer.Look(ecef)
	return Look{
		Azimuth:   la.AzimuthDeg,
		Elevation: la.ElevationDeg,
		RangeKm:   la.RangeKm,
	}, nil
}

// Crossings searches [start, end] at the configured step.
func (g *SGP4) Crossings(ctx context.Context, start, end time.Time, minElevation float64) ([]Crossing, error) {
	return Search(ctx, g.Look, start, end, minElevation, g.step)
}
