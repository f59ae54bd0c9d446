package api

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// maxObjects caps the names in one passes request.
const maxObjects = 50

var (
	errBadRequest = errors.New("bad request")
	errNoCatalog  = errors.New("catalog not loaded")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// budgetError reports a trajectory request over the sample budget.
type budgetError struct {
	requested, max int
}

func (e *budgetError) Error() string {
	return fmt.Sprintf("request needs %d samples, max is %d", e.requested, e.max)
}

func parseFloat(q url.Values, key string) (float64, bool, error) {
	v := q.Get(key)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, badRequest("invalid %s %q", key, v)
	}
	return f, true, nil
}

// parseTime accepts RFC3339 timestamps.
func parseTime(q url.Values, key string) (time.Time, bool, error) {
	v := q.Get(key)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, badRequest("invalid %s %q, want RFC3339", key, v)
	}
	return t.UTC(), true, nil
}

// parseStep accepts a Go duration ("5s") or a whole number of seconds ("5").
func parseStep(q url.Values, def time.Duration) (time.Duration, error) {
	v := q.Get("step")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, badRequest("invalid step %q", v)
	}
	if d > 0 && d%time.Second != 0 {
		return 0, badRequest("step %s is not a whole number of seconds", d)
	}
	return d, nil
}

func parseBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s %q", key, v)
	}
	return b, nil
}

// observer builds the observer from lat, lon and alt, falling back to the
// configured location when lat and lon are both absent.
func (s *Server) observer(q url.Values) (transform.Observer, error) {
	lat, hasLat, err := parseFloat(q, "lat")
	if err != nil {
		return transform.Observer{}, err
	}
	lon, hasLon, err := parseFloat(q, "lon")
	if err != nil {
		return transform.Observer{}, err
	}
	alt, _, err := parseFloat(q, "alt")
	if err != nil {
		return transform.Observer{}, err
	}

	switch {
	case hasLat && hasLon:
		obs := transform.NewObserver(lat, lon, alt)
		if err := obs.Validate(); err != nil {
			return transform.Observer{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return obs, nil
	case hasLat || hasLon:
		return transform.Observer{}, badRequest("lat and lon must be given together")
	case s.defaults.Observer != nil:
		return *s.defaults.Observer, nil
	}
	return transform.Observer{}, badRequest("lat and lon are required")
}

// minElevation has no built-in fallback: it comes from the request or from
// configuration.
func (s *Server) minElevation(q url.Values) (float64, error) {
	el, ok, err := parseFloat(q, "min_elevation")
	if err != nil {
		return 0, err
	}
	if ok {
		return el, nil
	}
	if s.defaults.MinElevation != nil {
		return *s.defaults.MinElevation, nil
	}
	return 0, badRequest("min_elevation is required")
}

// window returns [start, end). start defaults to now and end to start plus
// the configured window.
func (s *Server) window(q url.Values) (time.Time, time.Time, error) {
	start, ok, err := parseTime(q, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		start = s.now().UTC().Truncate(time.Second)
	}
	end, ok, err := parseTime(q, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		end = start.Add(s.defaults.Window)
	}
	return start, end, nil
}

// resolve finds the single object named by name or norad_id.
func resolve(catalog tle.Catalog, q url.Values) (tle.Entry, error) {
	if name := q.Get("name"); name != "" {
		return catalog.ResolveByName(name)
	}
	if v := q.Get("norad_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return tle.Entry{}, badRequest("invalid norad_id %q", v)
		}
		return catalog.ResolveByNORADID(id)
	}
	return tle.Entry{}, badRequest("name or norad_id is required")
}

// resolveAll finds every object named by repeated name and norad_id
// parameters, in the order given.
func resolveAll(catalog tle.Catalog, q url.Values) ([]tle.Entry, error) {
	names, ids := q["name"], q["norad_id"]
	if len(names)+len(ids) == 0 {
		return nil, badRequest("name or norad_id is required")
	}
	if len(names)+len(ids) > maxObjects {
		return nil, badRequest("at most %d objects per request", maxObjects)
	}

	entries := make([]tle.Entry, 0, len(names)+len(ids))
	for _, name := range names {
		e, err := catalog.ResolveByName(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	for _, v := range ids {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, badRequest("invalid norad_id %q", v)
		}
		e, err := catalog.ResolveByNORADID(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
