// Command skypass predicts the visible passes of one satellite over an
// observer and prints the sampled track of a chosen pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"github.com/smurphboy/Sat-Track/internal/config"
	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/report"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/trajectory"
)

// flagKeys maps flags that mirror configuration keys. Only flags given on
// the command line are passed to config.Load, so unset flags never mask
// the file or the environment.
var flagKeys = map[string]string{
	"tle":           config.KeyTLEPath,
	"sat":           config.KeySatellite,
	"lat":           config.KeyObserverLat,
	"lon":           config.KeyObserverLon,
	"alt":           config.KeyObserverAlt,
	"min-elevation": config.KeyMinElevation,
	"window":        config.KeyWindow,
	"step":          config.KeyStep,
	"search-step":   config.KeySearchStep,
	"workers":       config.KeyWorkers,
	"log-level":     config.KeyLogLevel,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "skypass:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("skypass", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "config file (TOML, YAML or JSON); defaults to $SKYPASS_CONFIG")
	fs.String("tle", "", "TLE file, or a directory holding the latest one")
	fs.String("sat", "", "satellite name as it appears in the TLE file")
	fs.String("lat", "", "observer latitude, degrees north")
	fs.String("lon", "", "observer longitude, degrees east")
	fs.String("alt", "", "observer height above the ellipsoid, metres")
	fs.String("min-elevation", "", "minimum elevation in degrees for a pass to count (required)")
	fs.String("window", "", "search window length (default 48h)")
	fs.String("step", "", "trajectory sampling step (default 1s)")
	fs.String("search-step", "", "coarse pass search step (default 10s)")
	fs.String("workers", "", "concurrent passes sampled with -all (default: CPU count)")
	fs.String("log-level", "", "debug, info, warn or error")
	startFlag := fs.String("start", "", "window start, RFC3339 (default now)")
	passIndex := fs.Int("pass", 0, "index of the complete pass to sample")
	formatFlag := fs.String("format", "table", "sample output: table, json or csv")
	all := fs.Bool("all", false, "sample every complete pass in the window")

	if err := fs.Parse(args); err != nil {
		return err
	}

	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})

	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		return err
	}
	if err := cfg.RequireRun(); err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(time.Second)
	if *startFlag != "" {
		if start, err = time.Parse(time.RFC3339, *startFlag); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		start = start.UTC()
	}
	end := start.Add(cfg.Window)

	ds, err := tle.Load(cfg.TLEPath, logger)
	if err != nil {
		return err
	}
	entry, err := ds.Catalog.ResolveByName(cfg.Satellite)
	if err != nil {
		return err
	}
	observer, _ := cfg.Observer()
	geom, err := geometry.NewSGP4(entry, observer, geometry.WithSearchStep(cfg.SearchStep))
	if err != nil {
		return err
	}

	finder := passes.NewFinder(logger)
	events, err := finder.Events(ctx, geom, start, end, *cfg.MinElevation)
	if err != nil {
		return err
	}
	list := passes.Group(events)

	if format == report.FormatTable {
		opts := report.TableOptions{Styled: isTerminal(stdout), Selected: *passIndex}
		if *all {
			opts.Selected = -1
		}
		report.WriteEvents(stdout, entry.Name, events, opts)
		fmt.Fprintln(stdout)
		report.WritePasses(stdout, entry.Name, list, opts)
		fmt.Fprintln(stdout)
	}

	if *all {
		complete := passes.CompletePasses(list)
		intervals := make([]trajectory.Interval, len(complete))
		for i, p := range complete {
			intervals[i] = trajectory.Interval{Start: p.Rise.Time, End: p.Set.Time}
		}
		batches, err := trajectory.SampleBatch(ctx, geom, intervals, cfg.Step, cfg.Workers)
		if err != nil {
			return err
		}
		for i := range complete {
			doc := report.NewDocument(entry, observer, intervals[i].Start, intervals[i].End, cfg.Step, &complete[i], batches[i])
			if err := report.WriteSamples(stdout, doc, format); err != nil {
				return err
			}
		}
		return nil
	}

	pass, err := passes.Select(list, *passIndex)
	if err != nil {
		return err
	}
	samples, err := trajectory.Collect(ctx, geom, pass.Rise.Time, pass.Set.Time, cfg.Step)
	if err != nil {
		return err
	}
	doc := report.NewDocument(entry, observer, pass.Rise.Time, pass.Set.Time, cfg.Step, &pass, samples)
	return report.WriteSamples(stdout, doc, format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
