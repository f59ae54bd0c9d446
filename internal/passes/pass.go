package passes

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIncompletePass is returned for a pass lacking a rise, a set, or a
	// single culmination.
	ErrIncompletePass = errors.New("incomplete pass")
	// ErrNoSuchPass is returned by Select when the index is out of range.
	ErrNoSuchPass = errors.New("no such pass")
)

// Pass groups the events of one visibility interval. A pass cut by the
// search window may lack its Rise or its Set. Culminate is the highest
// culmination seen; Culminations counts all of them.
type Pass struct {
	Rise         *Event `json:"rise,omitempty"`
	Culminate    *Event `json:"culminate,omitempty"`
	Set          *Event `json:"set,omitempty"`
	Culminations int    `json:"culminations"`
}

// Complete reports whether the pass has a rise, a set and exactly one
// culmination.
func (p Pass) Complete() bool {
	return p.Err() == nil
}

// Err explains why the pass is incomplete, or returns nil.
func (p Pass) Err() error {
	switch {
	case p.Rise == nil:
		return fmt.Errorf("%w: no rise", ErrIncompletePass)
	case p.Set == nil:
		return fmt.Errorf("%w: no set", ErrIncompletePass)
	case p.Culminations == 0:
		return fmt.Errorf("%w: no culmination", ErrIncompletePass)
	case p.Culminations > 1:
		return fmt.Errorf("%w: %d culminations", ErrIncompletePass, p.Culminations)
	}
	return nil
}

// Duration is Set minus Rise, or zero if either is missing.
func (p Pass) Duration() time.Duration {
	if p.Rise == nil || p.Set == nil {
		return 0
	}
	return p.Set.Time.Sub(p.Rise.Time)
}

// Group pairs an ordered event list into passes. A Rise opens a pass and a
// Set closes one; events with no open pass start a truncated one. Nothing is
// dropped.
func Group(events []Event) []Pass {
	var (
		out []Pass
		cur *Pass
	)
	for i := range events {
		e := events[i]
		switch e.Kind {
		case Rise:
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &Pass{Rise: &e}
		case Culminate:
			if cur == nil {
				cur = &Pass{}
			}
			if cur.Culminate == nil || e.Elevation > cur.Culminate.Elevation {
				cur.Culminate = &e
			}
			cur.Culminations++
		case Set:
			if cur == nil {
				cur = &Pass{}
			}
			cur.Set = &e
			out = append(out, *cur)
			cur = nil
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// CompletePasses returns the complete passes in order.
func CompletePasses(passes []Pass) []Pass {
	var out []Pass
	for _, p := range passes {
		if p.Complete() {
			out = append(out, p)
		}
	}
	return out
}

// Select returns the n-th (zero-based) complete pass.
func Select(passes []Pass, n int) (Pass, error) {
	complete := CompletePasses(passes)
	if n < 0 || n >= len(complete) {
		return Pass{}, fmt.Errorf("%w: index %d, %d complete passes", ErrNoSuchPass, n, len(complete))
	}
	return complete[n], nil
}
