package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/livecut/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
	if !CheckFile("test", f).Passed {
		t.Fatal("expected file check to pass")
	}
	if CheckFile("test", filepath.Dir(f)).Passed {
		t.Fatal("expected file check to reject a directory")
	}
}

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	results := CheckBinaries([]Requirement{
		{Name: "present", Command: bin},
		{Name: "missing", Command: filepath.Join(dir, "nope")},
		{Name: "unset", Command: " "},
	})
	if !results[0].Passed || results[0].Detail != bin {
		t.Fatalf("present: %+v", results[0])
	}
	if results[1].Passed || !strings.Contains(results[1].Detail, "not found") {
		t.Fatalf("missing: %+v", results[1])
	}
	if results[2].Passed || results[2].Detail != "command not configured" {
		t.Fatalf("unset: %+v", results[2])
	}
}

func TestRunAllAndErr(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tool")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	model := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(model, []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Tools.FFmpeg, cfg.Tools.FFprobe, cfg.Tools.WhisperBin = bin, bin, bin
	cfg.Tools.YTDLP = filepath.Join(dir, "missing-yt-dlp")
	cfg.Tools.WhisperModel = model
	cfg.Paths.OutDir, cfg.Paths.CacheDir = dir, dir

	if err := Err(RunAll(&cfg, false)); err != nil {
		t.Fatalf("local input should not need yt-dlp: %v", err)
	}
	err := Err(RunAll(&cfg, true))
	if err == nil || !strings.Contains(err.Error(), "yt-dlp") {
		t.Fatalf("expected yt-dlp failure, got %v", err)
	}

	cfg.Tools.WhisperModel = filepath.Join(dir, "absent.bin")
	if err := Err(RunAll(&cfg, false)); err == nil || !strings.Contains(err.Error(), "Whisper model") {
		t.Fatalf("expected model failure, got %v", err)
	}
}
