package passes

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// Request holds the parameters for a multi-object prediction.
type Request struct {
	Observer     transform.Observer
	Entries      []tle.Entry
	Start        time.Time
	End          time.Time
	MinElevation float64       // degrees
	SearchStep   time.Duration // zero uses geometry.DefaultSearchStep
	Workers      int           // zero uses runtime.NumCPU
}

// Result holds the prediction for one entry. Error is set instead of
// Events and Passes when that entry failed.
type Result struct {
	Object  string  `json:"object"`
	NORADID int     `json:"norad_id"`
	Events  []Event `json:"events"`
	Passes  []Pass  `json:"passes"`
	Error   string  `json:"error,omitempty"`
	Err     error   `json:"-"`
}

// Predict runs Passes for every entry in req concurrently. Results are in
// entry order; one entry failing does not affect the others.
func (f *Finder) Predict(ctx context.Context, req Request) []Result {
	results := make([]Result, len(req.Entries))

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var opts []geometry.Option
	if req.SearchStep > 0 {
		opts = append(opts, geometry.WithSearchStep(req.SearchStep))
	}

	var g errgroup.Group
	g.SetLimit(workers)
	// Each entry records its own failure in results, so no goroutine
	// returns an error and Wait only blocks until all are done.
	for i, entry := range req.Entries {
		g.Go(func() error {
			results[i] = f.predictOne(ctx, req, entry, opts)
			return nil
		})
	}
	g.Wait()
	return results
}

func (f *Finder) predictOne(ctx context.Context, req Request, entry tle.Entry, opts []geometry.Option) Result {
	res := Result{Object: entry.Name, NORADID: entry.NORADID}
	fail := func(err error) Result {
		res.Err = err
		res.Error = err.Error()
		f.logger.Warn("prediction failed", "object", entry.Name, "norad_id", entry.NORADID, "error", err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	geom, err := geometry.NewSGP4(entry, req.Observer, opts...)
	if err != nil {
		return fail(err)
	}
	events, err := f.Events(ctx, geom, req.Start, req.End, req.MinElevation)
	if err != nil {
		return fail(err)
	}
	res.Events = events
	res.Passes = Group(events)
	return res
}
