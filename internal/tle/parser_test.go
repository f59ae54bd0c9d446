package tle

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issLine1 = "1 25544U 98067A   24061.50000000  .00020000  00000+0  35000-3 0  9990"
	issLine2 = "2 25544  51.6410 120.0000 0005000  60.0000 300.0000 15.50000000440005"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

func TestParseThreeLine(t *testing.T) {
	data := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n" +
		"STARLINK-1007\r\n" + starlinkLine1 + "\r\n" + starlinkLine2 + "\r\n"

	catalog, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("got %d entries, want 2", len(catalog))
	}

	iss := catalog[0]
	if iss.Name != "ISS (ZARYA)" || iss.NORADID != 25544 {
		t.Errorf("first entry = %q/%d, want ISS (ZARYA)/25544", iss.Name, iss.NORADID)
	}
	wantEpoch := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !iss.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", iss.Epoch, wantEpoch)
	}
	if catalog[1].Name != "STARLINK-1007" {
		t.Errorf("second entry name = %q", catalog[1].Name)
	}
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantNames []string
	}{
		{
			name:      "two-line set named by catalog number",
			data:      issLine1 + "\n" + issLine2 + "\n",
			wantNames: []string{"25544"},
		},
		{
			name:      "zero-prefixed name line",
			data:      "0 ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n",
			wantNames: []string{"ISS (ZARYA)"},
		},
		{
			name:      "blank lines ignored",
			data:      "\n\nISS (ZARYA)\n\n" + issLine1 + "\n" + issLine2 + "\n\n",
			wantNames: []string{"ISS (ZARYA)"},
		},
		{
			name:      "garbage before a valid entry is skipped",
			data:      "garbage\nmore garbage\nISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n",
			wantNames: []string{"ISS (ZARYA)"},
		},
		{
			name:      "mismatched catalog numbers rejected",
			data:      "MIXED\n" + issLine1 + "\n" + starlinkLine2 + "\n",
			wantNames: nil,
		},
		{
			name:      "truncated entry",
			data:      "ISS (ZARYA)\n" + issLine1 + "\n",
			wantNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := Parse(strings.NewReader(tt.data), testLogger)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got := catalog.Names()
			if len(got) != len(tt.wantNames) {
				t.Fatalf("names = %q, want %q", got, tt.wantNames)
			}
			for i := range got {
				if got[i] != tt.wantNames[i] {
					t.Errorf("name[%d] = %q, want %q", i, got[i], tt.wantNames[i])
				}
			}
		})
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"24061.50000000", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"99001.00000000", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"57001.25000000", time.Date(1957, 1, 1, 6, 0, 0, 0, time.UTC), false},
		{"56365.00000000", time.Date(2056, 12, 30, 0, 0, 0, 0, time.UTC), false},
		{"2406", time.Time{}, true},
		{"xx061.5", time.Time{}, true},
		{"24000.50000000", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEpoch(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEpoch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
