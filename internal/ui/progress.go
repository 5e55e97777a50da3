package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/jivemix/internal/pipeline"
)

// Club lighting palette
var (
	neonCyan    = lipgloss.Color("#00E5FF")
	neonViolet  = lipgloss.Color("#B388FF")
	neonMagenta = lipgloss.Color("#FF3EA5")
	neonAmber   = lipgloss.Color("#FFB300")
	dimGray     = lipgloss.Color("#3A3A3A")
)

// EventMsg carries a pipeline progress event into the program
type EventMsg pipeline.Event

// DoneMsg signals the end of the run
type DoneMsg struct {
	Report *pipeline.Report
	Err    error
}

// progressQuitMsg is sent when it's time to quit after showing completion
type progressQuitMsg struct{}

// trackState is what the display knows about one track
type trackState struct {
	name        string
	stage       pipeline.Stage
	done        bool
	detectedBPM float64
	bpm         float64
	ratio       float64
	duration    time.Duration
}

// Model is the Bubbletea model for a mixing run
type Model struct {
	progressBar progress.Model

	tracks    []trackState
	reference float64
	stage     pipeline.Stage
	units     int // Finished units of work
	output    string

	report *pipeline.Report
	err    error

	startTime       time.Time
	width           int
	completionDelay time.Duration
	cancel          func()
	interrupted     bool
}

// NewModel creates a progress model for the given track paths. cancel is
// called when the user interrupts the run.
func NewModel(paths []string, cancel func()) *Model {
	p := progress.New(
		progress.WithGradient(string(neonCyan), string(neonMagenta)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	tracks := make([]trackState, len(paths))
	for i, path := range paths {
		base := filepath.Base(path)
		tracks[i] = trackState{name: strings.TrimSuffix(base, filepath.Ext(base))}
	}

	return &Model{
		progressBar:     p,
		tracks:          tracks,
		startTime:       time.Now(),
		completionDelay: time.Second,
		cancel:          cancel,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(10, min(msg.Width-30, 50))
		return m, nil

	case EventMsg:
		m.apply(pipeline.Event(msg))
		return m, nil

	case DoneMsg:
		m.report = msg.Report
		m.err = msg.Err
		if m.err != nil || m.interrupted {
			return m, tea.Quit
		}
		return m, tea.Tick(m.completionDelay, func(time.Time) tea.Msg {
			return progressQuitMsg{}
		})

	case progressQuitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.report != nil {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	}

	return m, nil
}

// apply folds one event into the display state
func (m *Model) apply(ev pipeline.Event) {
	m.stage = ev.Stage
	if ev.Index < 0 {
		if ev.Stage == pipeline.StageExport {
			m.output = ev.Path
		}
		if ev.Done {
			m.units++
		}
		return
	}
	if ev.Index >= len(m.tracks) {
		return
	}

	tr := &m.tracks[ev.Index]
	tr.stage = ev.Stage
	tr.done = ev.Done
	if ev.DetectedBPM > 0 {
		tr.detectedBPM = ev.DetectedBPM
	}
	if ev.Done {
		m.units++
		switch ev.Stage {
		case pipeline.StageRetime:
			tr.bpm = ev.BPM
			tr.ratio = ev.Ratio
			tr.duration = ev.Duration
			if ev.Index == 0 && m.reference == 0 && ev.Ratio > 0 {
				m.reference = ev.BPM * ev.Ratio
			}
		case pipeline.StageLoad:
			tr.duration = ev.Duration
		}
	}
}

// Percent is the share of finished work: load, estimate and retime per
// track, then sequence and export
func (m *Model) Percent() float64 {
	total := 3*len(m.tracks) + 2
	if total == 0 {
		return 0
	}
	return min(1, float64(m.units)/float64(total))
}

// Interrupted reports whether the user asked to stop the run
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// View renders the UI
func (m *Model) View() string {
	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(neonMagenta).Render("Jivemix 🎧"))
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(neonViolet).Render(m.stageLabel()))
	s.WriteString("\n\n")

	percent := m.Percent()
	if m.report != nil {
		percent = 1
	}
	s.WriteString("Progress: ")
	s.WriteString(m.progressBar.ViewAs(percent))
	s.WriteString(fmt.Sprintf("  %d%%", int(percent*100)))
	s.WriteString("\n\n")

	elapsed := time.Since(m.startTime)
	timing := fmt.Sprintf("Time: %s", formatDuration(elapsed))
	if percent > 0 && percent < 1 {
		eta := time.Duration(float64(elapsed)/percent) - elapsed
		timing += fmt.Sprintf("  │  ETA: %s", formatDuration(eta))
	}
	if m.reference > 0 {
		timing += fmt.Sprintf("  │  Reference: %g BPM", m.reference)
	}
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(timing))
	s.WriteString("\n\n")

	m.renderTracks(&s)

	if len(m.tracks) > 1 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Tempo map:"))
		s.WriteString("\n")
		s.WriteString(renderTempoMap(m.tracks))
	}

	border := neonCyan
	if m.err != nil {
		border = neonMagenta
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Render(s.String())
}

func (m *Model) stageLabel() string {
	switch {
	case m.err != nil:
		return "Mix failed"
	case m.interrupted:
		return "Stopping..."
	case m.report != nil:
		return "✓ Mix complete"
	}
	switch m.stage {
	case pipeline.StageLoad, pipeline.StageEstimate:
		return "Analysing tempo"
	case pipeline.StageRetime:
		return "Retiming tracks"
	case pipeline.StageSequence:
		return "Crossfading"
	case pipeline.StageExport:
		if m.output != "" {
			return "Exporting " + filepath.Base(m.output)
		}
		return "Exporting"
	}
	return "Starting..."
}

func (m *Model) renderTracks(s *strings.Builder) {
	labelStyle := lipgloss.NewStyle().Faint(true)
	activeStyle := lipgloss.NewStyle().Foreground(neonAmber)
	doneStyle := lipgloss.NewStyle().Foreground(neonCyan)

	nameWidth := 28
	if m.width > 0 {
		nameWidth = max(12, min(40, m.width-50))
	}

	for i, tr := range m.tracks {
		status := labelStyle.Render("·")
		switch {
		case tr.stage == pipeline.StageRetime && tr.done:
			status = doneStyle.Render("✓")
		case tr.stage != "":
			status = activeStyle.Render("♪")
		}

		detail := labelStyle.Render(string(tr.stage))
		switch {
		case tr.bpm > 0:
			detail = fmt.Sprintf("%6.1f → %-3g BPM  ×%.4f  %s",
				tr.detectedBPM, tr.bpm, tr.ratio, formatDuration(tr.duration))
		case tr.detectedBPM > 0:
			detail = fmt.Sprintf("%6.1f BPM", tr.detectedBPM)
		}

		s.WriteString(fmt.Sprintf("  %s %2d %s  %s\n",
			status, i+1, labelStyle.Render(truncate(tr.name, nameWidth)), detail))
	}
}

// renderTempoMap draws one bar per track, height proportional to the tempo used
func renderTempoMap(tracks []trackState) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	colors := []lipgloss.Color{neonCyan, neonViolet, neonMagenta, neonAmber}

	maxBPM := 0.0
	for _, tr := range tracks {
		maxBPM = max(maxBPM, tr.bpm)
	}

	var b strings.Builder
	for i, tr := range tracks {
		if tr.bpm <= 0 || maxBPM == 0 {
			b.WriteString(lipgloss.NewStyle().Foreground(dimGray).Render("░░"))
			continue
		}
		level := int(tr.bpm / maxBPM * float64(len(blocks)-1))
		level = max(0, min(level, len(blocks)-1))
		bar := strings.Repeat(string(blocks[level]), 2)
		b.WriteString(lipgloss.NewStyle().Foreground(colors[i%len(colors)]).Render(bar))
	}
	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s + strings.Repeat(" ", width-len(r))
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
