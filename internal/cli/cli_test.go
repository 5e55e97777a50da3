package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/linuxmatters/jivemix/internal/pipeline"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/music/daft_punk_around_the_world.flac", "Daft Punk Around The World"},
		{"set/DJ_intro.mp3", "DJ Intro"},
		{"track01.wav", "Track01"},
		{"/music/so what.m4a", "So What"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.path); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{6 * time.Second, "0:06"},
		{3*time.Minute + 25*time.Second, "3:25"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBPM(t *testing.T) {
	if got := FormatBPM(128); got != "128 BPM" {
		t.Errorf("FormatBPM(128) = %q", got)
	}
	if got := FormatBPM(127.46); got != "127.5 BPM" {
		t.Errorf("FormatBPM(127.46) = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(512); got != "512 B" {
		t.Errorf("FormatBytes(512) = %q", got)
	}
	if got := FormatBytes(3 * 1024 * 1024); got != "3.0 MB" {
		t.Errorf("FormatBytes(3MiB) = %q", got)
	}
}

func TestTrackTable(t *testing.T) {
	report := &pipeline.Report{
		ReferenceBPM: 120,
		Crossfade:    6 * time.Second,
		Tracks: []pipeline.Track{
			{Path: "/music/opener.mp3", DetectedBPM: 120.2, BPM: 120, Ratio: 1, Duration: 3 * time.Minute},
			{Path: "/music/closer.mp3", DetectedBPM: 199.8, BPM: 100, Ratio: 1.2, Duration: 2 * time.Minute},
		},
	}

	out := TrackTable(report)
	for _, want := range []string{"Opener", "Closer", "120.2", "1.2000", "2:54", "3:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}

	if TrackTable(&pipeline.Report{}) != "" {
		t.Error("Expected empty table for an empty report")
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer

	PrintEvent(&buf, pipeline.Event{Stage: pipeline.StageLoad, Index: 0, Total: 2, Path: "a.mp3"})
	if buf.Len() != 0 {
		t.Errorf("Stage starts should print nothing, got %q", buf.String())
	}

	PrintEvent(&buf, pipeline.Event{
		Stage: pipeline.StageRetime, Done: true, Index: 1, Total: 2,
		Path: "/music/closer.mp3", DetectedBPM: 200, BPM: 100, Ratio: 1.2,
	})
	out := buf.String()
	for _, want := range []string{"[2/2]", "Closer", "200 BPM", "100 BPM", "×1.2000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

type helpArgs struct {
	Files     []string `arg:"" optional:"" help:"Tracks"`
	Crossfade int      `help:"Crossfade length" default:"6000" placeholder:"MS" group:"Mix"`
	Output    string   `short:"o" help:"Output file" placeholder:"PATH" group:"Output"`
	Version   bool     `help:"Show version information"`
}

func TestStyledHelpPrinter(t *testing.T) {
	var out bytes.Buffer
	exited := false
	parser, err := kong.New(&helpArgs{},
		kong.Name("jivemix"),
		kong.Help(StyledHelpPrinter(kong.HelpOptions{})),
		kong.Writers(&out, &out),
		kong.Exit(func(int) { exited = true }),
	)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	_, _ = parser.Parse([]string{"--help"})

	if !exited {
		t.Error("Expected help to exit")
	}
	help := out.String()
	for _, want := range []string{"jivemix <track>... [flags]", "Mix:", "--crossfade=MS", "(default: 6000)", "-o, --output=PATH", "General:", "--version"} {
		if !strings.Contains(help, want) {
			t.Errorf("Expected %q in help:\n%s", want, help)
		}
	}
	if strings.Index(help, "Mix:") > strings.Index(help, "General:") {
		t.Error("Grouped flags should come before General")
	}
}

func TestGroupFlags(t *testing.T) {
	parser, err := kong.New(&helpArgs{})
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}

	order, groups := groupFlags(parser.Model.Node.Flags)
	want := []string{"Mix", "Output", generalGroup}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected sections %v, got %v", want, order)
	}
	// help and version
	if len(groups[generalGroup]) != 2 {
		t.Errorf("Expected 2 general flags, got %d", len(groups[generalGroup]))
	}
	if groups["Mix"][0].label != "    --crossfade=MS" {
		t.Errorf("Unexpected label %q", groups["Mix"][0].label)
	}
}
