package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/linuxmatters/jivemix/internal/pipeline"
)

var nameSeparators = strings.NewReplacer("_", " ", ".", " ")

// DisplayName turns a track path into a readable title: directory and
// extension dropped, underscores spaced, words title-cased.
func DisplayName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Join(strings.Fields(nameSeparators.Replace(base)), " ")
	if base == "" {
		return path
	}
	return cases.Title(language.Und, cases.NoLower).String(base)
}

// TrackTable renders the per-track tempo decisions of a run
func TrackTable(report *pipeline.Report) string {
	if report == nil || len(report.Tracks) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Track", "Detected", "Used", "Ratio", "Length", "Starts"})

	starts := append([]time.Duration{0}, report.Transitions()...)
	for i, tr := range report.Tracks {
		tw.AppendRow(table.Row{
			i + 1,
			DisplayName(tr.Path),
			fmt.Sprintf("%.1f", tr.DetectedBPM),
			fmt.Sprintf("%g", tr.BPM),
			fmt.Sprintf("%.4f", tr.Ratio),
			FormatDuration(tr.Duration),
			startLabel(starts[i]),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func startLabel(d time.Duration) string {
	if d == 0 {
		return "0:00"
	}
	return FormatDuration(d)
}
