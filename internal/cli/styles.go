package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/jivemix/internal/pipeline"
)

// Color palette
var (
	primaryColor   = NeonMagenta
	accentColor    = NeonCyan
	successColor   = lipgloss.Color("#00C853") // Green
	mutedColor     = SmokeGray
	highlightColor = NeonAmber
	textColor      = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// Highlight style for important values
	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Box style for framed content
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

const (
	appName    = "Jivemix 🎧"
	appTagline = "Beat-match a folder of tracks into one continuous, crossfaded DJ set."
)

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Println(TitleStyle.Render(appName))
	fmt.Println(SubtitleStyle.Render(appTagline))
	fmt.Println()
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(appName))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// PrintInfo prints an informational message
func PrintInfo(key, value string) {
	fmt.Printf("%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Println(HeaderStyle.Render(title))
}

// FormatDuration formats a duration as m:ss, or milliseconds under a second
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatBPM formats a tempo with one decimal place when it has a fraction
func FormatBPM(bpm float64) string {
	if bpm == float64(int64(bpm)) {
		return fmt.Sprintf("%d BPM", int64(bpm))
	}
	return fmt.Sprintf("%.1f BPM", bpm)
}

// FormatRatio formats a retime ratio as a speed multiplier
func FormatRatio(ratio float64) string {
	return fmt.Sprintf("×%.4f", ratio)
}

// FormatBytes formats bytes into human-readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// PrintBox prints content in a styled box
func PrintBox(content string) {
	fmt.Println(BoxStyle.Render(content))
}

// PrintEvent writes a one-line progress note for finished per-track stages.
// Used when the interactive display is off.
func PrintEvent(w io.Writer, ev pipeline.Event) {
	if !ev.Done || ev.Index < 0 {
		return
	}
	prefix := KeyStyle.Render(fmt.Sprintf("[%d/%d]", ev.Index+1, ev.Total))
	switch ev.Stage {
	case pipeline.StageEstimate:
		fmt.Fprintf(w, "%s %s detected %s\n", prefix, DisplayName(ev.Path), HighlightStyle.Render(FormatBPM(ev.DetectedBPM)))
	case pipeline.StageRetime:
		fmt.Fprintf(w, "%s %s %s → %s %s\n", prefix, DisplayName(ev.Path),
			FormatBPM(ev.DetectedBPM), ValueStyle.Render(FormatBPM(ev.BPM)), KeyStyle.Render(FormatRatio(ev.Ratio)))
	}
}

// PrintMixSummary prints the finished set: headline figures in a box,
// then the per-track table
func PrintMixSummary(report *pipeline.Report, fileSize int64) {
	var b strings.Builder

	b.WriteString(SuccessStyle.Render("✓ Mix Complete!"))
	b.WriteString("\n\n")

	reference := FormatBPM(report.ReferenceBPM)
	if report.ReferenceOverridden {
		reference += " (override)"
	}

	rows := [][2]string{
		{"Output:    ", report.Output},
		{"Tracks:    ", fmt.Sprintf("%d", len(report.Tracks))},
		{"Tempo:     ", reference},
		{"Crossfade: ", FormatDuration(report.Crossfade)},
		{"Duration:  ", FormatDuration(report.MixDuration)},
		{"File Size: ", FormatBytes(fileSize)},
		{"Elapsed:   ", report.Elapsed.Round(100 * time.Millisecond).String()},
	}
	for i, row := range rows {
		b.WriteString(KeyStyle.Render(row[0]))
		b.WriteString(ValueStyle.Render(row[1]))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}

	PrintBox(b.String())
	fmt.Println(TrackTable(report))
}
