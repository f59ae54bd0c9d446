// Package trajectory samples an object's apparent position at a fixed step
// over a time interval, typically one visibility pass.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// DefaultStep is the sampling interval used when none is configured.
const DefaultStep = time.Second

// ErrInvalidStep is returned for a sampling step that is not a positive
// whole number of seconds. The propagator resolves time to the second.
var ErrInvalidStep = errors.New("invalid sampling step")

// Sample is the look angle of an object at one instant.
type Sample struct {
	Time      time.Time `json:"time"`
	Azimuth   float64   `json:"azimuth"`   // degrees, [0, 360)
	Elevation float64   `json:"elevation"` // degrees, may be negative
	RangeKm   float64   `json:"range_km"`
}

// Polar returns the sample in sky-plot coordinates: theta is the azimuth in
// radians and r is the zenith distance in degrees (0 at zenith, 90 on the
// horizon).
func (s Sample) Polar() (theta, r float64) {
	return s.Azimuth * math.Pi / 180, 90 - s.Elevation
}

// Count returns how many samples Samples yields for [start, end) at step.
func Count(start, end time.Time, step time.Duration) int {
	if checkStep(step) != nil {
		return 0
	}
	start = CeilSecond(start)
	if !start.Before(end) {
		return 0
	}
	span := end.Sub(start)
	n := span / step
	if span%step != 0 {
		n++
	}
	return int(n)
}

// Samples yields the look angles of g at start, start+step, ... for every
// instant before end. A fractional start is rounded up to the next whole
// second. An empty or reversed interval yields nothing. The
// sequence stops after the first error, which is yielded with a zero Sample.
// Each iteration recomputes from start, so ranging twice gives identical
// results.
func Samples(g geometry.Geometry, start, end time.Time, step time.Duration) iter.Seq2[Sample, error] {
	return func(yield func(Sample, error) bool) {
		if err := checkStep(step); err != nil {
			yield(Sample{}, err)
			return
		}
		start := CeilSecond(start)
		for k := 0; ; k++ {
			t := start.Add(time.Duration(k) * step)
			if !t.Before(end) {
				return
			}
			l, err := g.Look(t)
			if err != nil {
				yield(Sample{}, err)
				return
			}
			s := Sample{
				Time:      t.UTC(),
				Azimuth:   transform.NormalizeAzimuth(l.Azimuth),
				Elevation: l.Elevation,
				RangeKm:   l.RangeKm,
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

func checkStep(step time.Duration) error {
	switch {
	case step <= 0:
		return fmt.Errorf("%w: %s", ErrInvalidStep, step)
	case step%time.Second != 0:
		return fmt.Errorf("%w: %s is not a whole number of seconds", ErrInvalidStep, step)
	}
	return nil
}

// CeilSecond rounds t up to the next whole second.
func CeilSecond(t time.Time) time.Time {
	tr := t.Truncate(time.Second)
	if tr.Before(t) {
		return tr.Add(time.Second)
	}
	return tr
}

// Collect gathers Samples into a slice. On error no samples are returned.
func Collect(ctx context.Context, g geometry.Geometry, start, end time.Time, step time.Duration) ([]Sample, error) {
	out := make([]Sample, 0, Count(start, end, step))
	for s, err := range Samples(g, start, end, step) {
		if err != nil {
			return nil, err
		}
		if len(out)%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	metrics.AddSamples(len(out))
	return out, nil
}
