package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smurphboy/Sat-Track/internal/passes"
)

// Table colors
const (
	colorHeader   = "135"
	colorDim      = "60"
	colorHigh     = "#7CFC00" // culmination above 45°
	colorMedium   = "#FFD700" // 20-45°
	colorLow      = "#FF6347" // below 20°
	colorSelected = "#9D4EDD"
)

const timeLayout = "2006-01-02 15:04:05"

// TableOptions controls pass table rendering.
type TableOptions struct {
	// Styled enables lipgloss colors. Callers set it when stdout is a terminal.
	Styled bool
	// Selected marks the index of the pass that will be sampled; -1 for none.
	Selected int
}

type tableStyles struct {
	header, dim, selected lipgloss.Style
	styled                bool
}

func newTableStyles(styled bool) tableStyles {
	if !styled {
		return tableStyles{}
	}
	return tableStyles{
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorHeader)).Bold(true),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color(colorSelected)).Bold(true),
		styled:   true,
	}
}

func (s tableStyles) render(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return style.Render(text)
}

func (s tableStyles) elevation(el float64) string {
	text := fmt.Sprintf("%5.1f°", el)
	if !s.styled {
		return text
	}
	color := colorLow
	switch {
	case el >= 45:
		color = colorHigh
	case el >= 20:
		color = colorMedium
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// WriteEvents writes the raw rise/culminate/set sequence.
func WriteEvents(w io.Writer, name string, events []passes.Event, opts TableOptions) {
	st := newTableStyles(opts.Styled)

	fmt.Fprintln(w, st.render(st.header, fmt.Sprintf("Events for %s", name)))
	fmt.Fprintln(w, strings.Repeat("─", 50))
	if len(events) == 0 {
		fmt.Fprintln(w, st.render(st.dim, "No events in window"))
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-9s  az %6.1f°  el %s\n",
			e.Time.Format(timeLayout), e.Kind, e.Azimuth, st.elevation(e.Elevation))
	}
}

// WritePasses writes one row per grouped pass. Incomplete passes are listed
// dimmed with what they are missing.
func WritePasses(w io.Writer, name string, list []passes.Pass, opts TableOptions) {
	st := newTableStyles(opts.Styled)

	fmt.Fprintln(w, st.render(st.header, fmt.Sprintf("Passes for %s", name)))
	fmt.Fprintln(w, strings.Repeat("─", 78))
	if len(list) == 0 {
		fmt.Fprintln(w, st.render(st.dim, "No passes in window"))
		return
	}

	fmt.Fprintf(w, "%-3s %-19s  %-19s  %-7s  %-8s  %s\n",
		"#", "Rise (UTC)", "Set (UTC)", "Max El", "Duration", "Max El at")

	complete := 0
	for _, p := range list {
		if !p.Complete() {
			fmt.Fprintln(w, st.render(st.dim, fmt.Sprintf("--  %s", p.Err())))
			continue
		}
		row := fmt.Sprintf("%-3d %-19s  %-19s  ", complete,
			p.Rise.Time.Format(timeLayout), p.Set.Time.Format(timeLayout))
		if complete == opts.Selected {
			row = st.render(st.selected, row)
		}
		fmt.Fprintf(w, "%s%s  %8s  %s (az %.0f°)\n",
			row, st.elevation(p.Culminate.Elevation), p.Duration(),
			p.Culminate.Time.Format("15:04:05"), p.Culminate.Azimuth)
		complete++
	}
	fmt.Fprintf(w, "\nTotal: %d complete of %d passes\n", complete, len(list))
}
