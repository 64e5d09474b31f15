package format

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vincentbai/rrweb-viewer/internal/stats"
)

const unknown = "Unknown"

// Row is one label/value line of the stats panel.
type Row struct {
	Label string
	Value string
}

// PanelRows lays the recording info out in the order the viewer page shows it.
func PanelRows(s stats.RecordingStats) []Row {
	url := unknown
	if s.URL != nil {
		url = *s.URL
	}
	viewport := unknown
	if s.Viewport != nil {
		viewport = fmt.Sprintf("%d × %d", s.Viewport.Width, s.Viewport.Height)
	}
	recorded := unknown
	if s.StartTime != nil {
		recorded = s.StartTime.Local().Format(time.DateOnly)
	}

	return []Row{
		{"URL", url},
		{"Duration", stats.FormatDuration(s.Duration)},
		{"Viewport", viewport},
		{"Recorded", recorded},
		{"Total Events", stats.FormatCount(s.TotalEvents)},
		{"File Size", stats.FormatBytes(s.FileSize)},
		{"DOM Mutations", stats.FormatCount(s.EventTypes[stats.CategoryIncremental])},
		{"Clicks", stats.FormatCount(s.Interactions.Clicks)},
		{"Scrolls", stats.FormatCount(s.Interactions.Scrolls)},
		{"Inputs", stats.FormatCount(s.Interactions.Inputs)},
		{"Mouse Moves", stats.FormatCount(s.Interactions.MouseMoves)},
		{"Touch Moves", stats.FormatCount(s.Interactions.TouchMoves)},
	}
}

// WriteStats writes the stats panel to w in the requested format.
func WriteStats(w io.Writer, s stats.RecordingStats, format string) error {
	switch format {
	case "table", "":
		return writeStatsTable(w, s)
	case "json":
		return writeStatsJSON(w, s)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeStatsTable(w io.Writer, s stats.RecordingStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "Recording Info"); err != nil {
		return err
	}
	for _, row := range PanelRows(s) {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row.Label, row.Value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(tw); err != nil {
		return err
	}
	for _, category := range stats.Categories {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", category, stats.FormatCount(s.EventTypes[category])); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeStatsJSON(w io.Writer, s stats.RecordingStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
