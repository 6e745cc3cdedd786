// Package preflight checks the external binaries, model files and
// directories a run depends on before any work starts, so a missing
// ffmpeg fails in milliseconds instead of after transcription.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/forPelevin/livecut/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Requirement defines an external binary livecut shells out to.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// CheckBinaries resolves every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Result {
	results := make([]Result, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		res := Result{Name: req.Name, Optional: req.Optional}
		switch {
		case cmd == "":
			res.Detail = "command not configured"
		default:
			path, err := exec.LookPath(cmd)
			if err != nil {
				res.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				res.Passed = true
				res.Detail = path
			}
		}
		results = append(results, res)
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFile verifies that path is a readable regular file.
func CheckFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// RunAll checks everything a run needs. yt-dlp is only required when the
// input is a URL.
func RunAll(cfg *config.Config, needDownloader bool) []Result {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe},
		{Name: "whisper.cpp", Command: cfg.Tools.WhisperBin},
		{Name: "yt-dlp", Command: cfg.Tools.YTDLP, Optional: !needDownloader},
	}
	results := CheckBinaries(reqs)
	results = append(results, CheckFile("Whisper model", cfg.Tools.WhisperModel))
	if cfg.LLM.PromptFile != "" {
		results = append(results, CheckFile("Prompt template", cfg.LLM.PromptFile))
	}
	results = append(results,
		CheckDirectoryAccess("Output directory", cfg.Paths.OutDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	)
	return results
}

// Err joins the failed required checks, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %w", errors.Join(errs...))
}
