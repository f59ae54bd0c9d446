// Package propagation wraps github.com/joshuaferrara/go-satellite so the rest
// of the module can ask for an object's TEME state at a UTC instant and get an
// error, rather than garbage or a dead process, when the model cannot answer.
package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// go-satellite notes:
//
// TLEToSat calls log.Fatal on lines it cannot parse, so lines are checked
// here first. Propagate takes the Satellite by value and never reports the
// SGP4 error code, so failures are detected from the output instead: NaN/Inf
// components or a radius no Earth orbit can have. Propagate also takes whole
// seconds; sub-second parts of an instant are dropped.

// Propagator computes positions for a single catalog entry.
// It is immutable after construction and safe for concurrent use.
type Propagator struct {
	sat     satellite.Satellite
	noradID int
	name    string
}

// New initialises SGP4 for entry.
func New(entry tle.Entry) (*Propagator, error) {
	if err := validateLines(entry.Line1, entry.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", entry.NORADID, err)
	}

	sat := satellite.TLEToSat(entry.Line1, entry.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", entry.NORADID, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, noradID: entry.NORADID, name: entry.Name}, nil
}

// NORADID returns the catalog number the propagator was built from.
func (p *Propagator) NORADID() int { return p.noradID }

// Name returns the display name the propagator was built from.
func (p *Propagator) Name() string { return p.name }

func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// Propagate returns the TEME state at t (km, km/s).
func (p *Propagator) Propagate(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	for _, v := range [...]float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return transform.PositionTEME{}, fmt.Errorf("sgp4 output is NaN/Inf for NORAD %d", p.noradID)
		}
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 position magnitude %.1f km implausible for NORAD %d", mag, p.noradID)
	}

	return transform.PositionTEME{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		VX: vel.X, VY: vel.Y, VZ: vel.Z,
	}, nil
}

// PropagateECEF returns the Earth-fixed state at t (m, m/s).
func (p *Propagator) PropagateECEF(t time.Time) (transform.PositionECEF, error) {
	teme, err := p.Propagate(t)
	if err != nil {
		return transform.PositionECEF{}, err
	}
	return transform.TEMEToECEF(teme, t.UTC().Truncate(time.Second)), nil
}
