package propagation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

var iss = tle.Entry{
	NORADID: 25544,
	Name:    "ISS (ZARYA)",
	Line1:   "1 25544U 98067A   24061.50000000  .00020000  00000+0  35000-3 0  9990",
	Line2:   "2 25544  51.6410 120.0000 0005000  60.0000 300.0000 15.50000000440005",
	Epoch:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
}

func TestPropagateNearEpoch(t *testing.T) {
	p, err := New(iss)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NORADID() != 25544 || p.Name() != "ISS (ZARYA)" {
		t.Errorf("identity = %d/%q", p.NORADID(), p.Name())
	}

	target := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	teme, err := p.Propagate(target)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	// ~420 km above a 6371 km Earth.
	mag := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	if mag < 6600 || mag > 7000 {
		t.Errorf("TEME radius = %.1f km, expected ISS orbit", mag)
	}
	speed := math.Sqrt(teme.VX*teme.VX + teme.VY*teme.VY + teme.VZ*teme.VZ)
	if speed < 7.4 || speed > 7.9 {
		t.Errorf("TEME speed = %.3f km/s, expected ~7.66", speed)
	}

	ecef, err := p.PropagateECEF(target)
	if err != nil {
		t.Fatalf("PropagateECEF: %v", err)
	}
	if !ecef.Plausible() {
		t.Errorf("ECEF position implausible: %+v", ecef)
	}
	if math.Abs(ecef.Radius()/1000-mag) > 0.01 {
		t.Errorf("ECEF radius %.3f km differs from TEME radius %.3f km", ecef.Radius()/1000, mag)
	}
	geo := transform.ECEFToGeodetic(ecef)
	if math.Abs(geo.LatDeg) > 52 {
		t.Errorf("sub-satellite latitude %.2f exceeds inclination", geo.LatDeg)
	}
}

func TestPropagateIgnoresSubSecond(t *testing.T) {
	p, err := New(iss)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	a, err := p.Propagate(base)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Propagate(base.Add(900 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("sub-second offset changed the state: %+v vs %+v", a, b)
	}
}

func TestNewRejectsMalformedLines(t *testing.T) {
	tests := []struct {
		name  string
		entry tle.Entry
		want  string
	}{
		{
			name:  "garbage",
			entry: tle.Entry{NORADID: 99999, Line1: "invalid line 1", Line2: "invalid line 2"},
			want:  "line1 length",
		},
		{
			name: "short line2",
			entry: tle.Entry{
				NORADID: 99999,
				Line1:   "1 99999U 00000A   25045.00000000  .00000000  00000+0  00000+0 0  0000",
				Line2:   "2 99999   0.0000   0.0000 0000000   0.0000   0.0000  0.00000000 0000",
			},
			want: "line2 length",
		},
		{
			name:  "swapped lines",
			entry: tle.Entry{NORADID: 25544, Line1: iss.Line2, Line2: iss.Line1},
			want:  "line1 must start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entry)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func BenchmarkPropagateECEF(b *testing.B) {
	p, err := New(iss)
	if err != nil {
		b.Fatal(err)
	}
	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.PropagateECEF(start.Add(time.Duration(i%86400) * time.Second)); err != nil {
			b.Fatal(err)
		}
	}
}
