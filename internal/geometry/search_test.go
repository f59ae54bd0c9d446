package geometry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

func secs(t time.Time) float64 { return t.Sub(t0).Seconds() }

// parabola peaks at peakSec with peakEl, dropping by one degree per
// (width seconds)^2 from the peak, floored at -10.
func parabola(peakSec, peakEl, width float64) LookFunc {
	return func(t time.Time) (Look, error) {
		d := (secs(t) - peakSec) / width
		return Look{Azimuth: 180, Elevation: math.Max(-10, peakEl-d*d), RangeKm: 1000}, nil
	}
}

func vee(peakSec, peakEl, slope float64) LookFunc {
	return func(t time.Time) (Look, error) {
		return Look{Elevation: peakEl - slope*math.Abs(secs(t)-peakSec)}, nil
	}
}

type want struct {
	sec  float64
	kind CrossingKind
}

func check(t *testing.T, got []Crossing, expected []want) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("got %d crossings %v, want %d", len(got), got, len(expected))
	}
	for i, w := range expected {
		if got[i].Kind != w.kind || secs(got[i].Time) != w.sec {
			t.Errorf("crossing %d = %s at %.0fs, want %s at %.0fs", i, got[i].Kind, secs(got[i].Time), w.kind, w.sec)
		}
	}
}

func TestSearchSinglePass(t *testing.T) {
	// 30 - ((s-1005)/20)^2 >= 0 for s in [896, 1114].
	got, err := Search(context.Background(), parabola(1005, 30, 20), t0, t0.Add(time.Hour), 0, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{896, Ascending}, {1005, Peak}, {1115, Descending}})

	if got[1].Look.Elevation != 30 {
		t.Errorf("peak elevation = %v, want 30", got[1].Look.Elevation)
	}
	if got[0].Look.Elevation < 0 {
		t.Errorf("ascending crossing elevation %v below threshold", got[0].Look.Elevation)
	}
	if got[2].Look.Elevation >= 0 {
		t.Errorf("descending crossing elevation %v not below threshold", got[2].Look.Elevation)
	}
}

func TestSearchPassBetweenGridPoints(t *testing.T) {
	// Above zero only for s in [1001, 1009]; every grid point is below.
	got, err := Search(context.Background(), vee(1005, 2, 0.5), t0, t0.Add(time.Hour), 0, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{1001, Ascending}, {1005, Peak}, {1010, Descending}})
}

func TestSearchWindowStartsMidPass(t *testing.T) {
	got, err := Search(context.Background(), parabola(1005, 30, 20), t0.Add(1000*time.Second), t0.Add(time.Hour), 0, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{1005, Peak}, {1115, Descending}})
}

func TestSearchWindowEndsMidPass(t *testing.T) {
	got, err := Search(context.Background(), parabola(1005, 30, 20), t0, t0.Add(950*time.Second), 0, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{896, Ascending}})
}

func TestSearchPeakBelowThreshold(t *testing.T) {
	got, err := Search(context.Background(), parabola(1005, 30, 20), t0, t0.Add(time.Hour), 40, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{1005, Peak}})
}

func TestSearchWholeSecondQueries(t *testing.T) {
	base := parabola(1005, 30, 20)
	look := func(tm time.Time) (Look, error) {
		if tm.Nanosecond() != 0 {
			t.Fatalf("queried fractional instant %s", tm)
		}
		return base(tm)
	}
	start := t0.Add(500*time.Second + 500*time.Millisecond)
	end := t0.Add(2000*time.Second + 900*time.Millisecond)
	got, err := Search(context.Background(), look, start, end, 0, 7*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	check(t, got, []want{{896, Ascending}, {1005, Peak}, {1115, Descending}})
}

func TestSearchIncludesEnd(t *testing.T) {
	var last time.Time
	look := func(tm time.Time) (Look, error) {
		if tm.After(last) {
			last = tm
		}
		return Look{Elevation: -5}, nil
	}
	end := t0.Add(95 * time.Second)
	if _, err := Search(context.Background(), look, t0, end, 0, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	if !last.Equal(end) {
		t.Errorf("last query at %s, want %s", last, end)
	}
}

func TestSearchDegenerateWindow(t *testing.T) {
	look := parabola(1005, 30, 20)
	got, err := Search(context.Background(), look, t0.Add(time.Hour), t0, 0, 10*time.Second)
	if err != nil || got != nil {
		t.Errorf("reversed window: got %v, %v", got, err)
	}
	got, err = Search(context.Background(), look, t0.Add(1005*time.Second), t0.Add(1005*time.Second), 0, 10*time.Second)
	if err != nil || len(got) != 0 {
		t.Errorf("instant window: got %v, %v", got, err)
	}
}

func TestSearchLookError(t *testing.T) {
	sentinel := errors.New("decayed")
	look := func(tm time.Time) (Look, error) {
		if secs(tm) >= 600 {
			return Look{}, sentinel
		}
		return Look{Elevation: -5}, nil
	}
	_, err := Search(context.Background(), look, t0, t0.Add(time.Hour), 0, 10*time.Second)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want %v", err, sentinel)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, parabola(1005, 30, 20), t0, t0.Add(time.Hour), 0, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchMultiplePasses(t *testing.T) {
	a := parabola(1005, 30, 20)
	b := parabola(5000, 12, 30)
	look := func(tm time.Time) (Look, error) {
		la, _ := a(tm)
		lb, _ := b(tm)
		if lb.Elevation > la.Elevation {
			return lb, nil
		}
		return la, nil
	}
	got, err := Search(context.Background(), look, t0, t0.Add(3*time.Hour), 5, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("got %d crossings, want 6: %v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Time.After(got[i-1].Time) {
			t.Errorf("crossing %d at %s not after %s", i, got[i].Time, got[i-1].Time)
		}
	}
	kinds := []CrossingKind{Ascending, Peak, Descending, Ascending, Peak, Descending}
	for i, k := range kinds {
		if got[i].Kind != k {
			t.Errorf("crossing %d kind = %s, want %s", i, got[i].Kind, k)
		}
	}
}
