package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/smurphboy/Sat-Track/internal/cache"
	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/httputil"
	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/report"
	"github.com/smurphboy/Sat-Track/internal/stream"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/trajectory"
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		budget *budgetError
		perr   *geometry.PropagationError
	)
	switch {
	case errors.As(err, &budget),
		errors.Is(err, errBadRequest),
		errors.Is(err, passes.ErrInvalidWindow),
		errors.Is(err, passes.ErrInvalidElevation),
		errors.Is(err, trajectory.ErrInvalidStep):
		return http.StatusBadRequest
	case errors.Is(err, tle.ErrNotFound), errors.Is(err, passes.ErrNoSuchPass):
		return http.StatusNotFound
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNoCatalog),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError writes err as {"error": ...}. Budget errors also carry max_samples.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "component", "api", "error", err)
	}

	var budget *budgetError
	if errors.As(err, &budget) {
		httputil.WriteJSON(w, status, map[string]any{
			"error":       err.Error(),
			"requested":   budget.requested,
			"max_samples": budget.max,
		})
		return
	}
	httputil.WriteError(w, status, err.Error())
}

func (s *Server) dataset() (*tle.Dataset, error) {
	ds := s.store.Get()
	if ds == nil {
		return nil, errNoCatalog
	}
	return ds, nil
}

type catalogResponse struct {
	Source     string      `json:"source"`
	LoadedAt   time.Time   `json:"loaded_at"`
	AgeSeconds int         `json:"age_seconds"`
	Count      int         `json:"count"`
	EpochRange epochRange  `json:"epoch_range"`
	Names      []string    `json:"names"`
	Cache      cache.Stats `json:"cache"`
}

type epochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// GET /api/v1/catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset()
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := catalogResponse{
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
		AgeSeconds: int(s.store.AgeSeconds()),
		Count:      len(ds.Catalog),
		EpochRange: epochRange{Min: ds.EpochRange.Min, Max: ds.EpochRange.Max},
		Names:      ds.Catalog.Names(),
	}
	if s.cache != nil {
		resp.Cache = s.cache.Stats()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type passesResponse struct {
	Observer     report.ObserverExport `json:"observer"`
	Start        time.Time             `json:"start"`
	End          time.Time             `json:"end"`
	MinElevation float64               `json:"min_elevation"`
	Results      []passes.Result       `json:"results"`
}

// GET /api/v1/passes?name=ISS%20(ZARYA)&name=NOAA%2019&min_elevation=10&complete=true
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset()
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()

	entries, err := resolveAll(ds.Catalog, q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	observer, err := s.observer(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	start, end, err := s.window(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	minEl, err := s.minElevation(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	completeOnly, err := parseBool(q, "complete")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := passes.ValidateElevation(minEl); err != nil {
		s.writeError(w, err)
		return
	}
	if !start.Before(end) {
		s.writeError(w, passes.ErrInvalidWindow)
		return
	}

	results := s.finder.Predict(r.Context(), passes.Request{
		Observer:     observer,
		Entries:      entries,
		Start:        start,
		End:          end,
		MinElevation: minEl,
		SearchStep:   s.defaults.SearchStep,
		Workers:      s.defaults.Workers,
	})

	// A single object has nothing to report alongside its failure.
	if len(results) == 1 && results[0].Err != nil {
		s.writeError(w, results[0].Err)
		return
	}

	for i := range results {
		if results[i].Err != nil {
			continue
		}
		if completeOnly {
			results[i].Passes = passes.CompletePasses(results[i].Passes)
		}
		if results[i].Events == nil {
			results[i].Events = []passes.Event{}
		}
		if results[i].Passes == nil {
			results[i].Passes = []passes.Pass{}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, passesResponse{
		Observer:     report.ObserverExport{Lat: observer.LatDeg, Lon: observer.LonDeg, Alt: observer.AltM},
		Start:        start,
		End:          end,
		MinElevation: minEl,
		Results:      results,
	})
}

// planTrajectory resolves a trajectory request. With pass=N the interval is
// the N-th complete pass in the window; otherwise start and end are required.
func (s *Server) planTrajectory(r *http.Request) (stream.Plan, error) {
	ds, err := s.dataset()
	if err != nil {
		return stream.Plan{}, err
	}
	q := r.URL.Query()

	entry, err := resolve(ds.Catalog, q)
	if err != nil {
		return stream.Plan{}, err
	}
	observer, err := s.observer(q)
	if err != nil {
		return stream.Plan{}, err
	}
	step, err := parseStep(q, s.defaults.Step)
	if err != nil {
		return stream.Plan{}, err
	}
	if step <= 0 {
		return stream.Plan{}, trajectory.ErrInvalidStep
	}

	var opts []geometry.Option
	if s.defaults.SearchStep > 0 {
		opts = append(opts, geometry.WithSearchStep(s.defaults.SearchStep))
	}
	geom, err := geometry.NewSGP4(entry, observer, opts...)
	if err != nil {
		return stream.Plan{}, err
	}

	plan := stream.Plan{Entry: entry, Observer: observer, Geometry: geom, Step: step}

	if q.Has("pass") {
		n, err := strconv.Atoi(q.Get("pass"))
		if err != nil || n < 0 {
			return stream.Plan{}, badRequest("invalid pass %q", q.Get("pass"))
		}
		minEl, err := s.minElevation(q)
		if err != nil {
			return stream.Plan{}, err
		}
		start, end, err := s.window(q)
		if err != nil {
			return stream.Plan{}, err
		}
		list, err := s.finder.Passes(r.Context(), geom, start, end, minEl)
		if err != nil {
			return stream.Plan{}, err
		}
		pass, err := passes.Select(list, n)
		if err != nil {
			return stream.Plan{}, err
		}
		plan.Pass = &pass
		plan.Start, plan.End = pass.Rise.Time, pass.Set.Time
	} else {
		start, okStart, err := parseTime(q, "start")
		if err != nil {
			return stream.Plan{}, err
		}
		end, okEnd, err := parseTime(q, "end")
		if err != nil {
			return stream.Plan{}, err
		}
		if !okStart || !okEnd {
			return stream.Plan{}, badRequest("start and end are required without pass")
		}
		start = trajectory.CeilSecond(start)
		if !start.Before(end) {
			return stream.Plan{}, passes.ErrInvalidWindow
		}
		plan.Start, plan.End = start, end
	}

	if n := trajectory.Count(plan.Start, plan.End, plan.Step); s.defaults.MaxSamples > 0 && n > s.defaults.MaxSamples {
		return stream.Plan{}, &budgetError{requested: n, max: s.defaults.MaxSamples}
	}
	return plan, nil
}

// GET /api/v1/trajectory?name=ISS%20(ZARYA)&pass=0&min_elevation=10
// GET /api/v1/trajectory?name=ISS%20(ZARYA)&start=...&end=...&step=5s&format=csv
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := report.ParseFormat(v)
		if err != nil || f == report.FormatTable {
			s.writeError(w, badRequest("invalid format %q, must be json or csv", v))
			return
		}
		format = f
	}

	plan, err := s.planTrajectory(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	compute := func(ctx context.Context) ([]trajectory.Sample, error) {
		return trajectory.Collect(ctx, plan.Geometry, plan.Start, plan.End, plan.Step)
	}

	var (
		samples []trajectory.Sample
		hit     bool
	)
	if s.cache != nil {
		key := cache.Key{
			NORADID: plan.Entry.NORADID,
			Lat:     plan.Observer.LatDeg,
			Lon:     plan.Observer.LonDeg,
			Alt:     plan.Observer.AltM,
			Start:   plan.Start,
			End:     plan.End,
			Step:    plan.Step,
		}
		samples, hit, err = s.cache.GetOrCompute(r.Context(), key, compute)
	} else {
		samples, err = compute(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	doc := report.NewDocument(plan.Entry, plan.Observer, plan.Start, plan.End, plan.Step, plan.Pass, samples)
	if format == report.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := doc.WriteCSV(w); err != nil {
			s.logger.Warn("csv write failed", "component", "api", "error", err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}
