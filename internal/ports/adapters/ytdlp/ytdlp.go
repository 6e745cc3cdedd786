// Package ytdlp resolves inputs to local video files, downloading URLs with
// yt-dlp and passing local paths through.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultFormat = "best[height<=720]/best"

type Adapter struct {
	bin    string
	format string
}

func New(binPath, format string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if strings.TrimSpace(format) == "" {
		format = defaultFormat
	}
	return &Adapter{bin: binPath, format: format}
}

// IsURL reports whether input should be downloaded rather than read from disk.
func IsURL(input string) bool {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (a *Adapter) Fetch(ctx context.Context, input, workDir string) (string, error) {
	if !IsURL(input) {
		abs, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		st, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("input video: %w", err)
		}
		if st.IsDir() {
			return "", fmt.Errorf("input video %s is a directory", abs)
		}
		return abs, nil
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", err
	}
	if p, ok := existingDownload(workDir); ok {
		return p, nil
	}
	cmd := exec.CommandContext(ctx, a.bin, a.args(input, workDir)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, string(b))
	}
	p, ok := existingDownload(workDir)
	if !ok {
		return "", errors.New("yt-dlp finished but produced no source file")
	}
	return p, nil
}

func (a *Adapter) args(input, workDir string) []string {
	return []string{
		"--no-playlist",
		"--no-progress",
		"-f", a.format,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(workDir, "source.%(ext)s"),
		input,
	}
}

// existingDownload finds a completed source.* file so reruns reuse it.
func existingDownload(workDir string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(workDir, "source.*"))
	for _, m := range matches {
		ext := filepath.Ext(m)
		if ext == ".part" || ext == ".ytdl" {
			continue
		}
		return m, true
	}
	return "", false
}
