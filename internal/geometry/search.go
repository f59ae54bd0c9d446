package geometry

import (
	"context"
	"sort"
	"time"
)

// LookFunc evaluates look angles at an instant.
type LookFunc func(time.Time) (Look, error)

type point struct {
	t    time.Time
	look Look
}

type searcher struct {
	look  LookFunc
	minEl float64
}

func (s searcher) at(t time.Time) (point, error) {
	l, err := s.look(t)
	if err != nil {
		return point{}, err
	}
	return point{t: t, look: l}, nil
}

func (s searcher) above(p point) bool {
	return p.look.Elevation >= s.minEl
}

// Search finds threshold crossings and elevation maxima of look within
// [start, end] by scanning at step and refining to whole seconds.
//
// The window is shrunk to whole seconds (start rounded up, end down). The
// scan grid always includes end. Each interior grid maximum is refined by
// ternary search before crossings are located, so a pass that peaks above
// the threshold between two grid points below it is still found. A maximum
// between an edge of the window and its neighbour is found the same way. Crossings
// are located by bisection. Every look failure is returned unchanged.
func Search(ctx context.Context, look LookFunc, start, end time.Time, minElevation float64, step time.Duration) ([]Crossing, error) {
	start = ceilSecond(start.UTC())
	end = end.UTC().Truncate(time.Second)
	if end.Before(start) {
		return nil, nil
	}
	step = step.Truncate(time.Second)
	if step < time.Second {
		step = time.Second
	}

	s := searcher{look: look, minEl: minElevation}

	var grid []point
	for i := 0; ; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := start.Add(time.Duration(i) * step)
		if t.After(end) {
			t = end
		}
		p, err := s.at(t)
		if err != nil {
			return nil, err
		}
		grid = append(grid, p)
		if t.Equal(end) {
			break
		}
	}

	points := append([]point(nil), grid...)
	var peaks []point
	last := len(grid) - 1
	for i := 0; i < len(grid) && last > 0; i++ {
		el := grid[i].look.Elevation
		if i > 0 && el < grid[i-1].look.Elevation {
			continue
		}
		if i < last && el <= grid[i+1].look.Elevation {
			continue
		}
		lo, hi := grid[max(i-1, 0)].t, grid[min(i+1, last)].t
		pk, err := s.refinePeak(lo, hi, grid[i])
		if err != nil {
			return nil, err
		}
		// A window edge is only a maximum if something inside beats it.
		if (i == 0 || i == last) && pk.t.Equal(grid[i].t) {
			continue
		}
		peaks = append(peaks, pk)
		points = append(points, pk)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].t.Before(points[j].t) })
	points = dedupe(points)

	var out []Crossing
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if s.above(prev) == s.above(cur) {
			continue
		}
		first, err := s.bisect(prev, cur)
		if err != nil {
			return nil, err
		}
		kind := Descending
		if s.above(cur) {
			kind = Ascending
		}
		out = append(out, Crossing{Time: first.t, Kind: kind, Look: first.look})
	}
	for _, pk := range peaks {
		out = append(out, Crossing{Time: pk.t, Kind: Peak, Look: pk.look})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time.Equal(out[j].Time) {
			return out[i].Kind != Peak && out[j].Kind == Peak
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

// bisect returns the first whole second after a whose threshold state
// matches b. a and b must differ in state.
func (s searcher) bisect(a, b point) (point, error) {
	lo, hi := a, b
	for hi.t.Sub(lo.t) > time.Second {
		mid := lo.t.Add((hi.t.Sub(lo.t) / 2).Truncate(time.Second))
		p, err := s.at(mid)
		if err != nil {
			return point{}, err
		}
		if s.above(p) == s.above(lo) {
			lo = p
		} else {
			hi = p
		}
	}
	return hi, nil
}

// refinePeak locates the maximum elevation in [a, b] to the second. best is
// the grid point the range was built around; it is kept unless beaten.
func (s searcher) refinePeak(a, b time.Time, best point) (point, error) {
	eval := func(sec int) (point, error) {
		return s.at(a.Add(time.Duration(sec) * time.Second))
	}

	lo, hi := 0, int(b.Sub(a)/time.Second)
	for hi-lo > 2 {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		p1, err := eval(m1)
		if err != nil {
			return point{}, err
		}
		p2, err := eval(m2)
		if err != nil {
			return point{}, err
		}
		if p1.look.Elevation < p2.look.Elevation {
			lo = m1 + 1
		} else {
			hi = m2
		}
	}
	for sec := lo; sec <= hi; sec++ {
		p, err := eval(sec)
		if err != nil {
			return point{}, err
		}
		if p.look.Elevation > best.look.Elevation {
			best = p
		}
	}
	return best, nil
}

func ceilSecond(t time.Time) time.Time {
	tr := t.Truncate(time.Second)
	if tr.Before(t) {
		return tr.Add(time.Second)
	}
	return tr
}

func dedupe(points []point) []point {
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.t.Equal(out[len(out)-1].t) {
			continue
		}
		out = append(out, p)
	}
	return out
}
