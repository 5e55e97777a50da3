package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Analysis settings
const (
	AnalysisSampleRate = 22050 // Beat tracking works on this rate
	FFTSize            = 2048
	HopSize            = 512
)

// Tempo search and sanity ranges
const (
	MinSearchBPM = 30.0  // Slowest tempo the estimator will consider
	MaxSearchBPM = 320.0 // Fastest tempo the estimator will consider
	PriorBPM     = 120.0 // Centre of the log-normal tempo prior
	PriorOctaves = 1.0   // Standard deviation of the prior in octaves

	MinSaneBPM = 60.0  // Below this the sanitizer doubles
	MaxSaneBPM = 180.0 // Above this the sanitizer halves
)

// Defaults
const (
	DefaultCrossfadeMS = 6000
	DefaultOutput      = "DJ_SET_FINAL.mp3"
	DefaultBitrate     = "320k"
	DefaultJobs        = 1
	DefaultFFmpeg      = "ffmpeg"
	DefaultFFprobe     = "ffprobe"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Config is the explicit run configuration handed to the pipeline driver.
type Config struct {
	Files        []string `toml:"files"`
	CrossfadeMS  int      `toml:"crossfade_ms"`
	Output       string   `toml:"output"`
	Bitrate      string   `toml:"bitrate"`
	Format       string   `toml:"format"`
	Jobs         int      `toml:"jobs"`
	ReferenceBPM float64  `toml:"reference_bpm"`
	FFmpeg       string   `toml:"ffmpeg"`
	FFprobe      string   `toml:"ffprobe"`
	Waveform     string   `toml:"waveform"`
	LogLevel     string   `toml:"log_level"`
	LogFormat    string   `toml:"log_format"`
}

// Default returns a configuration populated with the stock values.
func Default() Config {
	return Config{
		CrossfadeMS: DefaultCrossfadeMS,
		Output:      DefaultOutput,
		Bitrate:     DefaultBitrate,
		Jobs:        DefaultJobs,
		FFmpeg:      DefaultFFmpeg,
		FFprobe:     DefaultFFprobe,
		LogLevel:    envStr("JIVEMIX_LOG_LEVEL", DefaultLogLevel),
		LogFormat:   DefaultLogFormat,
	}
}

// Load reads a TOML set list over the defaults. An empty path returns the
// defaults. Relative track paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, f := range cfg.Files {
		f = strings.TrimSpace(f)
		if f != "" && !filepath.IsAbs(f) {
			f = filepath.Join(base, f)
		}
		cfg.Files[i] = f
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize trims string fields and fills blanks with defaults.
func (c *Config) Normalize() {
	files := c.Files[:0:0]
	for _, f := range c.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	c.Files = files

	c.Output = strings.TrimSpace(c.Output)
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	c.Bitrate = strings.TrimSpace(c.Bitrate)
	if c.Bitrate == "" {
		c.Bitrate = DefaultBitrate
	}
	c.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Format), "."))
	if c.Jobs <= 0 {
		c.Jobs = DefaultJobs
	}
	if strings.TrimSpace(c.FFmpeg) == "" {
		c.FFmpeg = DefaultFFmpeg
	}
	if strings.TrimSpace(c.FFprobe) == "" {
		c.FFprobe = DefaultFFprobe
	}
	c.Waveform = strings.TrimSpace(c.Waveform)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Validate reports configuration values the pipeline cannot work with.
// An empty file list is not a configuration error: the driver reports it.
func (c *Config) Validate() error {
	if c.CrossfadeMS < 0 {
		return fmt.Errorf("crossfade_ms must not be negative, got %d", c.CrossfadeMS)
	}
	if c.ReferenceBPM < 0 {
		return fmt.Errorf("reference_bpm must not be negative, got %g", c.ReferenceBPM)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if c.Waveform != "" && !strings.EqualFold(filepath.Ext(c.Waveform), ".png") {
		return fmt.Errorf("waveform must be a .png path, got %q", c.Waveform)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	return nil
}

// Crossfade returns the crossfade window as a duration.
func (c Config) Crossfade() time.Duration {
	return time.Duration(c.CrossfadeMS) * time.Millisecond
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
