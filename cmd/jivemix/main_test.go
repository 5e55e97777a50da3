package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := buildConfig(cliArgs{Files: []string{"a.mp3", "b.mp3"}})
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if len(cfg.Files) != 2 || cfg.Output != "DJ_SET_FINAL.mp3" || cfg.CrossfadeMS != 6000 || cfg.Bitrate != "320k" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.toml")
	content := `files = ["one.flac", "two.flac"]
crossfade_ms = 4000
output = "friday.mp3"
jobs = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	zero := 0
	out := "saturday.wav"
	bpm := 124.0
	cfg, err := buildConfig(cliArgs{
		Config:       path,
		Crossfade:    &zero,
		Output:       &out,
		ReferenceBPM: &bpm,
	})
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}

	if cfg.CrossfadeMS != 0 {
		t.Errorf("Explicit zero crossfade was not applied: %d", cfg.CrossfadeMS)
	}
	if cfg.Output != out {
		t.Errorf("Expected output %q, got %q", out, cfg.Output)
	}
	if cfg.ReferenceBPM != bpm {
		t.Errorf("Expected reference %v, got %v", bpm, cfg.ReferenceBPM)
	}
	if cfg.Jobs != 2 {
		t.Errorf("File value lost: jobs = %d", cfg.Jobs)
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != filepath.Join(dir, "one.flac") {
		t.Errorf("Expected files from the set list, got %v", cfg.Files)
	}
}

func TestBuildConfigPositionalFilesReplaceSetList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.toml")
	if err := os.WriteFile(path, []byte(`files = ["one.flac"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(cliArgs{Config: path, Files: []string{"x.mp3", "y.mp3"}})
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != "x.mp3" {
		t.Errorf("Expected positional files, got %v", cfg.Files)
	}
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	neg := -100
	if _, err := buildConfig(cliArgs{Crossfade: &neg}); err == nil {
		t.Error("Expected error for negative crossfade")
	}

	format := "xml"
	if _, err := buildConfig(cliArgs{LogFormat: &format}); err == nil {
		t.Error("Expected error for unknown log format")
	}

	if _, err := buildConfig(cliArgs{Config: filepath.Join(t.TempDir(), "missing.toml")}); err == nil {
		t.Error("Expected error for missing config file")
	}
}
