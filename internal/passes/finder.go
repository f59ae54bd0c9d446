package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/metrics"
)

var (
	// ErrInvalidWindow is returned when the window start is not before its end.
	ErrInvalidWindow = errors.New("invalid search window")
	// ErrInvalidElevation is returned for a threshold outside [-90, 90].
	ErrInvalidElevation = errors.New("invalid minimum elevation")
)

// Finder turns threshold crossings into ordered visibility events.
type Finder struct {
	logger *slog.Logger
}

// NewFinder returns a Finder that logs search summaries at debug level.
// A nil logger discards them.
func NewFinder(logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{logger: logger.With("component", "passes")}
}

// ValidateElevation checks a minimum elevation threshold in degrees.
func ValidateElevation(minElevation float64) error {
	if math.IsNaN(minElevation) || minElevation < -90 || minElevation > 90 {
		return fmt.Errorf("%w: %v outside [-90, 90]", ErrInvalidElevation, minElevation)
	}
	return nil
}

// Events returns the rise, culmination and set events of g within
// [start, end], ordered by time, at most one per instant.
//
// The window is narrowed to whole seconds. A culmination is reported only
// when its elevation is strictly above minElevation, and is dropped when it
// falls on the same second as a rise or set.
func (f *Finder) Events(ctx context.Context, g geometry.Geometry, start, end time.Time, minElevation float64) ([]Event, error) {
	if err := ValidateElevation(minElevation); err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s not before end %s", ErrInvalidWindow,
			start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	}

	start = ceilSecond(start.UTC())
	end = end.UTC().Truncate(time.Second)
	events := []Event{}
	if end.Before(start) {
		return events, nil
	}

	began := time.Now()
	crossings, err := g.Crossings(ctx, start, end, minElevation)
	if err != nil {
		return nil, err
	}

	for _, c := range crossings {
		t := c.Time.UTC().Truncate(time.Second)
		if t.Before(start) || t.After(end) {
			continue
		}
		var kind Kind
		switch c.Kind {
		case geometry.Ascending:
			kind = Rise
		case geometry.Descending:
			kind = Set
		case geometry.Peak:
			if c.Look.Elevation <= minElevation {
				continue
			}
			kind = Culminate
		default:
			continue
		}
		events = append(events, Event{
			Time:      t,
			Kind:      kind,
			Azimuth:   c.Look.Azimuth,
			Elevation: c.Look.Elevation,
		})
	}

	// Crossings sort ahead of a culmination at the same instant so the
	// dedupe below keeps the crossing.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time.Equal(events[j].Time) {
			return events[i].Kind != Culminate && events[j].Kind == Culminate
		}
		return events[i].Time.Before(events[j].Time)
	})
	out := events[:0]
	for i, e := range events {
		if i > 0 && e.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, e)
	}

	elapsed := time.Since(began)
	metrics.ObservePassSearch(elapsed)
	f.logger.Debug("event search complete",
		"object", g.Object(),
		"start", start,
		"end", end,
		"min_elevation", minElevation,
		"crossings", len(crossings),
		"events", len(out),
		"duration", elapsed,
	)
	return out, nil
}

// Passes is Events grouped into passes; truncated passes are kept.
func (f *Finder) Passes(ctx context.Context, g geometry.Geometry, start, end time.Time, minElevation float64) ([]Pass, error) {
	events, err := f.Events(ctx, g, start, end, minElevation)
	if err != nil {
		return nil, err
	}
	return Group(events), nil
}

func ceilSecond(t time.Time) time.Time {
	tr := t.Truncate(time.Second)
	if tr.Before(t) {
		return tr.Add(time.Second)
	}
	return tr
}
