package passes

import (
	"fmt"
	"time"
)

// Kind classifies a visibility event.
type Kind int

const (
	Rise Kind = iota
	Culminate
	Set
)

var kindNames = [...]string{Rise: "rise", Culminate: "culminate", Set: "set"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind as its lowercase name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a lowercase kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if string(b) == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// Event is a rise above, culmination over, or set below the elevation
// threshold. Time is UTC with whole-second resolution.
type Event struct {
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"kind"`
	Azimuth   float64   `json:"azimuth"`
	Elevation float64   `json:"elevation"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s az=%.1f el=%.1f", e.Time.Format(time.RFC3339), e.Kind, e.Azimuth, e.Elevation)
}
