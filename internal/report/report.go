// Package report renders pass predictions and trajectory samples for the
// command line and for external plotting tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/trajectory"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// Format selects how samples are written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a -format style value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or csv)", s)
}

// Title is the heading a renderer puts above a pass plot.
func Title(name string, start time.Time) string {
	return fmt.Sprintf("Satellite Pass Prediction for %s starting on %s",
		name, start.UTC().Format("2006-01-02 15:04:05 UTC"))
}

// ObserverExport is the JSON form of an observer location.
type ObserverExport struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// PassExport is the JSON form of a complete pass.
type PassExport struct {
	Rise            passes.Event `json:"rise"`
	Culminate       passes.Event `json:"culminate"`
	Set             passes.Event `json:"set"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// Document is a sampled trajectory together with what a plotter needs to
// label it.
type Document struct {
	Object      string              `json:"object"`
	NORADID     int                 `json:"norad_id"`
	Title       string              `json:"title"`
	Observer    ObserverExport      `json:"observer"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	StepSeconds float64             `json:"step_seconds"`
	Pass        *PassExport         `json:"pass,omitempty"`
	Samples     []trajectory.Sample `json:"samples"`
}

// NewDocument builds a Document. pass may be nil when the interval was
// given explicitly.
func NewDocument(entry tle.Entry, observer transform.Observer, start, end time.Time, step time.Duration, pass *passes.Pass, samples []trajectory.Sample) *Document {
	if samples == nil {
		samples = []trajectory.Sample{}
	}
	doc := &Document{
		Object:  entry.Name,
		NORADID: entry.NORADID,
		Title:   Title(entry.Name, start),
		Observer: ObserverExport{
			Lat: observer.LatDeg,
			Lon: observer.LonDeg,
			Alt: observer.AltM,
		},
		Start:       start.UTC(),
		End:         end.UTC(),
		StepSeconds: step.Seconds(),
		Samples:     samples,
	}
	if pass != nil && pass.Complete() {
		doc.Pass = &PassExport{
			Rise:            *pass.Rise,
			Culminate:       *pass.Culminate,
			Set:             *pass.Set,
			DurationSeconds: pass.Duration().Seconds(),
		}
	}
	return doc
}

// WriteJSON writes the document as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteCSV writes one row per sample under a time,azimuth,elevation,range_km header.
func (d *Document) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "azimuth", "elevation", "range_km"}); err != nil {
		return err
	}
	for _, s := range d.Samples {
		err := cw.Write([]string{
			s.Time.Format(time.RFC3339),
			strconv.FormatFloat(s.Azimuth, 'f', 3, 64),
			strconv.FormatFloat(s.Elevation, 'f', 3, 64),
			strconv.FormatFloat(s.RangeKm, 'f', 3, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamples writes the document in the given format. FormatTable prints
// one aligned line per sample.
func WriteSamples(w io.Writer, d *Document, format Format) error {
	switch format {
	case FormatJSON:
		return d.WriteJSON(w)
	case FormatCSV:
		return d.WriteCSV(w)
	case FormatTable:
		return writeSampleTable(w, d)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeSampleTable(w io.Writer, d *Document) error {
	if _, err := fmt.Fprintln(w, d.Title); err != nil {
		return err
	}
	fmt.Fprintf(w, "%-20s %9s %9s %10s\n", "Time (UTC)", "Az", "El", "Range km")
	for _, s := range d.Samples {
		fmt.Fprintf(w, "%-20s %8.2f° %8.2f° %10.1f\n",
			s.Time.Format("2006-01-02 15:04:05"), s.Azimuth, s.Elevation, s.RangeKm)
	}
	_, err := fmt.Fprintf(w, "\n%d samples\n", len(d.Samples))
	return err
}
