package tle

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a catalog has no entry for the requested object.
var ErrNotFound = errors.New("object not found in catalog")

// Catalog is an ordered list of element sets, in the order they were loaded.
type Catalog []Entry

// ResolveByName returns the first entry whose display name equals name exactly.
// The comparison is case-sensitive.
func (c Catalog) ResolveByName(name string) (Entry, error) {
	for _, e := range c {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: name %q", ErrNotFound, name)
}

// ResolveByNORADID returns the first entry with the given catalog number.
func (c Catalog) ResolveByNORADID(id int) (Entry, error) {
	for _, e := range c {
		if e.NORADID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: NORAD %d", ErrNotFound, id)
}

// Names returns the display names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}
