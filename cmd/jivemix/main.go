package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/cli"
	"github.com/linuxmatters/jivemix/internal/config"
	"github.com/linuxmatters/jivemix/internal/encoder"
	"github.com/linuxmatters/jivemix/internal/logging"
	"github.com/linuxmatters/jivemix/internal/pipeline"
	"github.com/linuxmatters/jivemix/internal/renderer"
	"github.com/linuxmatters/jivemix/internal/tempo"
	"github.com/linuxmatters/jivemix/internal/ui"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// cliArgs holds the command line. Pointer flags are nil unless given, so
// they only override values that were actually set.
type cliArgs struct {
	Files        []string `arg:"" name:"files" help:"Tracks to mix, in play order" optional:""`
	Output       *string  `short:"o" help:"Output file" placeholder:"PATH" group:"Output"`
	Crossfade    *int     `help:"Crossfade length in milliseconds (default 6000)" placeholder:"MS" group:"Mix"`
	Bitrate      *string  `help:"Bitrate for lossy formats (default 320k)" placeholder:"RATE" group:"Output"`
	Format       *string  `help:"Output format: mp3, wav, flac, ogg, opus, m4a or aac (default: from output extension)" placeholder:"FORMAT" group:"Output"`
	Config       string   `short:"c" help:"TOML set list with files and settings" placeholder:"FILE" type:"path"`
	Jobs         *int     `short:"j" help:"Tracks to analyse in parallel" placeholder:"N" group:"Mix"`
	ReferenceBPM *float64 `name:"reference-bpm" help:"Target tempo instead of the first track's" placeholder:"BPM" group:"Mix"`
	Waveform     *string  `help:"Also write a PNG overview of the mix" placeholder:"PATH" group:"Output"`
	FFmpeg       *string  `name:"ffmpeg" help:"ffmpeg binary" placeholder:"PATH" group:"Tools"`
	FFprobe      *string  `name:"ffprobe" help:"ffprobe binary" placeholder:"PATH" group:"Tools"`
	NoTUI        bool     `name:"no-tui" help:"Disable the interactive progress display" group:"Display"`
	LogLevel     *string  `help:"Log level: debug, info, warn or error" placeholder:"LEVEL" group:"Display"`
	LogFormat    *string  `help:"Log format: console or json" placeholder:"FORMAT" group:"Display"`
	Encoders     bool     `help:"Show which output encoders are available and exit"`
	Version      bool     `help:"Show version information"`
}

var CLI cliArgs

func main() {
	kong.Parse(&CLI,
		kong.Name("jivemix"),
		kong.Description("Beat-match tracks into one continuous DJ set."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	cfg, err := buildConfig(CLI)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if CLI.Encoders {
		fmt.Print(encoder.EncoderStatus(ctx, cfg.FFmpeg))
		os.Exit(0)
	}

	if len(cfg.Files) == 0 {
		cli.PrintError("no tracks given: pass files as arguments or list them in --config")
		os.Exit(1)
	}

	os.Exit(run(ctx, cfg, !CLI.NoTUI && cli.IsTerminal(os.Stdout) && cfg.LogFormat != "json"))
}

// buildConfig layers the config file, then any flags that were given
func buildConfig(args cliArgs) (config.Config, error) {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return config.Config{}, err
	}

	if len(args.Files) > 0 {
		cfg.Files = append([]string(nil), args.Files...)
	}
	setString(&cfg.Output, args.Output)
	setString(&cfg.Bitrate, args.Bitrate)
	setString(&cfg.Format, args.Format)
	setString(&cfg.Waveform, args.Waveform)
	setString(&cfg.FFmpeg, args.FFmpeg)
	setString(&cfg.FFprobe, args.FFprobe)
	setString(&cfg.LogLevel, args.LogLevel)
	setString(&cfg.LogFormat, args.LogFormat)
	if args.Crossfade != nil {
		cfg.CrossfadeMS = *args.Crossfade
	}
	if args.Jobs != nil {
		cfg.Jobs = *args.Jobs
	}
	if args.ReferenceBPM != nil {
		cfg.ReferenceBPM = *args.ReferenceBPM
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setString(dst *string, flag *string) {
	if flag != nil {
		*dst = *flag
	}
}

// run mixes the set and returns the process exit code
func run(ctx context.Context, cfg config.Config, interactive bool) int {
	// The progress display owns the terminal; console logs would tear it
	var logOutput io.Writer = os.Stderr
	if interactive {
		logOutput = io.Discard
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: logOutput,
		Color:  cli.IsTerminal(os.Stderr),
	})
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	loader := audio.FileLoader{Options: audio.LoadOptions{FFmpeg: cfg.FFmpeg, FFprobe: cfg.FFprobe}}
	exporter := encoder.New(cfg.FFmpeg, logger)
	estimator := tempo.NewEstimator()

	var report *pipeline.Report
	if interactive {
		report, err = runInteractive(ctx, cfg, loader, estimator, exporter, logger)
	} else {
		cli.PrintBanner()
		cli.PrintInfo("Tracks", fmt.Sprintf("%d", len(cfg.Files)))
		cli.PrintInfo("Output", cfg.Output)
		cli.PrintSection("Analysing")
		driver := pipeline.New(loader, estimator, exporter,
			pipeline.WithLogger(logger),
			pipeline.WithProgress(func(ev pipeline.Event) { cli.PrintEvent(os.Stdout, ev) }),
		)
		report, err = driver.Run(ctx, cfg)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			cli.PrintError("interrupted, nothing was written")
			return 130
		}
		cli.PrintError(err.Error())
		return 1
	}

	if cfg.Waveform != "" {
		if err := renderer.Save(cfg.Waveform, report); err != nil {
			cli.PrintWarning(fmt.Sprintf("waveform not written: %v", err))
		} else {
			logger.Info("waveform written", slog.String("path", cfg.Waveform))
		}
	}

	var size int64
	if info, err := os.Stat(report.Output); err == nil {
		size = info.Size()
	}
	cli.PrintMixSummary(report, size)
	cli.PrintSuccess(fmt.Sprintf("Done! Output: %s", report.Output))
	return 0
}

// runInteractive runs the pipeline behind the Bubbletea progress display
func runInteractive(ctx context.Context, cfg config.Config, loader pipeline.Loader, estimator pipeline.Estimator, exporter pipeline.Exporter, logger *slog.Logger) (*pipeline.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(cfg.Files, cancel)
	p := tea.NewProgram(model)

	driver := pipeline.New(loader, estimator, exporter,
		pipeline.WithLogger(logger),
		pipeline.WithProgress(func(ev pipeline.Event) { p.Send(ui.EventMsg(ev)) }),
	)

	var (
		report *pipeline.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = driver.Run(ctx, cfg)
		p.Send(ui.DoneMsg{Report: report, Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("running UI: %w", err)
	}

	// The display may exit before the run, e.g. on a signal
	cancel()
	<-done
	return report, runErr
}
