package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smurphboy/Sat-Track/internal/passes"
)

const issTLE = `ISS (ZARYA)
1 25544U 98067A   24061.50000000  .00020000  00000+0  35000-3 0  9990
2 25544  51.6410 120.0000 0005000  60.0000 300.0000 15.50000000440005
`

func writeTLE(t *testing.T) string {
	t.Helper()
	t.Setenv("SKYPASS_CONFIG", "")
	path := filepath.Join(t.TempDir(), "stations.tle")
	if err := os.WriteFile(path, []byte(issTLE), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseArgs(path string) []string {
	return []string{
		"-tle", path,
		"-sat", "ISS (ZARYA)",
		"-lat", "51.392028",
		"-lon", "-2.79528",
		"-start", "2024-03-02T00:00:00Z",
		"-log-level", "error",
	}
}

func TestRunCSV(t *testing.T) {
	args := append(baseArgs(writeTLE(t)), "-min-elevation", "5", "-format", "csv")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if lines[0] != "time,azimuth,elevation,range_km" {
		t.Fatalf("first line = %q, want csv header", lines[0])
	}
	if len(lines) < 60 {
		t.Errorf("only %d sample rows for a pass", len(lines)-1)
	}
}

func TestRunTable(t *testing.T) {
	args := append(baseArgs(writeTLE(t)), "-min-elevation", "5")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Events for ISS (ZARYA)", "Passes for ISS (ZARYA)", "Satellite Pass Prediction for ISS (ZARYA)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunAllJSON(t *testing.T) {
	args := append(baseArgs(writeTLE(t)), "-min-elevation", "5", "-format", "json", "-all", "-workers", "2")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if n := strings.Count(stdout.String(), `"title": "Satellite Pass Prediction`); n < 2 {
		t.Errorf("got %d documents, want one per complete pass (at least 2 in 48h)", n)
	}
}

func TestRunErrors(t *testing.T) {
	path := writeTLE(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), baseArgs(path), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "min_elevation") {
		t.Errorf("missing min elevation: err = %v", err)
	}

	err = run(context.Background(), append(baseArgs(path), "-min-elevation", "5", "-pass", "500"), &stdout, &stderr)
	if !errors.Is(err, passes.ErrNoSuchPass) {
		t.Errorf("pass out of range: err = %v, want ErrNoSuchPass", err)
	}

	err = run(context.Background(), append(baseArgs(path), "-min-elevation", "5", "-format", "xml"), &stdout, &stderr)
	if err == nil {
		t.Error("unknown format accepted")
	}

	err = run(context.Background(), append(baseArgs(path), "-min-elevation", "95"), &stdout, &stderr)
	if err == nil {
		t.Error("min elevation 95 accepted")
	}
}
