package trajectory

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smurphboy/Sat-Track/internal/geometry"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

type batchJob struct {
	idx      int
	interval Interval
}

// SampleBatch collects samples for each interval using a fixed pool of
// workers. Results are in interval order. The first error cancels the
// remaining work and is returned alone.
func SampleBatch(ctx context.Context, g geometry.Geometry, intervals []Interval, step time.Duration, workers int) ([][]Sample, error) {
	if len(intervals) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(intervals))

	results := make([][]Sample, len(intervals))
	jobs := make(chan batchJob, workers*2)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(jobs)
		for i, iv := range intervals {
			select {
			case jobs <- batchJob{idx: i, interval: iv}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range workers {
		eg.Go(func() error {
			for job := range jobs {
				samples, err := Collect(ctx, g, job.interval.Start, job.interval.End, step)
				if err != nil {
					return err
				}
				results[job.idx] = samples
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
