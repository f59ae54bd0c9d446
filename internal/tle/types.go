package tle

import "time"

// Entry is one object's two-line element set as loaded from a catalog file.
// Entries are values; nothing in this module mutates one after Parse returns it.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a catalog together with where and when it was loaded.
type Dataset struct {
	Source     string
	LoadedAt   time.Time
	EpochRange EpochRange
	Catalog    Catalog
}

// NewDataset wraps a catalog and computes its epoch range.
func NewDataset(source string, loadedAt time.Time, catalog Catalog) *Dataset {
	ds := &Dataset{
		Source:   source,
		LoadedAt: loadedAt,
		Catalog:  catalog,
	}
	for i, e := range catalog {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}
