package tle

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Load reads a catalog from path. If path is a directory, the most recently
// modified *.tle or *.txt file in it is used. The returned dataset's LoadedAt
// is the file's modification time, so reloading an unchanged file yields an
// equal dataset timestamp.
func Load(path string, logger *slog.Logger) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog path: %w", err)
	}

	file := path
	modTime := info.ModTime()
	if info.IsDir() {
		latest, err := latestFile(path)
		if err != nil {
			return nil, err
		}
		file = filepath.Join(path, latest.name)
		modTime = latest.modTime
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	catalog, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("no element sets in %s", file)
	}

	logger.Debug("catalog loaded", "file", file, "count", len(catalog))
	return NewDataset(file, modTime.UTC(), catalog), nil
}

type catalogFile struct {
	name    string
	modTime time.Time
}

func latestFile(dir string) (catalogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return catalogFile{}, fmt.Errorf("listing catalog dir: %w", err)
	}

	var files []catalogFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".tle") && !strings.HasSuffix(name, ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, catalogFile{name: name, modTime: info.ModTime()})
	}

	if len(files) == 0 {
		return catalogFile{}, fmt.Errorf("no catalog files in %s", dir)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].name < files[j].name
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	return files[len(files)-1], nil
}
