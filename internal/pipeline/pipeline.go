package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/livecut/internal/config"
	"github.com/forPelevin/livecut/internal/logging"
	"github.com/forPelevin/livecut/internal/ports"
	"github.com/forPelevin/livecut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/livecut/internal/ports/adapters/openai"
	"github.com/forPelevin/livecut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/livecut/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/livecut/internal/preflight"
	"github.com/forPelevin/livecut/internal/store"
	"github.com/forPelevin/livecut/internal/types"
	"github.com/forPelevin/livecut/internal/usecase"
)

const ManifestFile = "manifest.json"

// ErrCacheBusy is returned when another run holds the scratch dir of the
// same input.
var ErrCacheBusy = errors.New("input is being processed by another run")

type Options struct {
	Input  string
	Config *config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

type Outcome struct {
	RunID        string
	RunDir       string
	ManifestPath string
	Result       usecase.Result
}

// Run wires the adapters for one input, prepares the run and cache
// directories and executes the use case. The scratch dir is removed at the
// end unless render.keep_temp is set.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	cfg := opts.Config
	if cfg == nil {
		return Outcome{}, errors.New("pipeline: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	input := strings.TrimSpace(opts.Input)
	if input == "" {
		return Outcome{}, errors.New("input is empty")
	}
	isURL := ytdlp.IsURL(input)
	if !isURL {
		abs, err := filepath.Abs(input)
		if err != nil {
			return Outcome{}, err
		}
		if _, err := os.Stat(abs); err != nil {
			return Outcome{}, fmt.Errorf("stat input: %w", err)
		}
		input = abs
	}

	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logging.NewComponentLogger(logger, "pipeline").With(logging.String(logging.FieldRunID, runID))

	cacheDir := filepath.Join(cfg.Paths.CacheDir, "runs", hash(input))
	runDir := buildRunOutDir(cfg.Paths.OutDir, input, now().UTC())
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.OutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Outcome{}, fmt.Errorf("create dir: %w", err)
		}
	}
	if err := preflight.Err(preflight.RunAll(cfg, isURL)); err != nil {
		return Outcome{}, err
	}
	for _, dir := range []string{cacheDir, runDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Outcome{}, fmt.Errorf("create dir: %w", err)
		}
	}

	lock := flock.New(filepath.Join(cacheDir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrCacheBusy, cacheDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("release cache lock failed", logging.Error(err))
		}
		if cfg.Render.KeepTemp {
			log.Info("scratch kept", logging.String("path", cacheDir))
			return
		}
		if err := os.RemoveAll(cacheDir); err != nil {
			log.Warn("remove scratch failed", logging.String("path", cacheDir), logging.Error(err))
		}
	}()

	ledger, err := store.Open(ctx, filepath.Join(runDir, store.FileName))
	if err != nil {
		return Outcome{}, err
	}
	defer ledger.Close()
	if err := ledger.StartRun(ctx, runID, opts.Input, ""); err != nil {
		return Outcome{}, err
	}
	finish := func(cause error) {
		if err := ledger.FinishRun(context.WithoutCancel(ctx), runID, cause); err != nil {
			log.Warn("ledger finish failed", logging.Error(err))
		}
	}

	model, err := openai.New(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		BaseURL:      cfg.LLM.BaseURL,
		AllowedHosts: cfg.LLM.AllowedHosts,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      cfg.LLMTimeout(),
		MaxRetries:   cfg.LLM.MaxRetries,
		PromptFile:   cfg.LLM.PromptFile,
		MinSeconds:   int(cfg.MinDuration().Seconds()),
		MaxSeconds:   int(cfg.ShortDuration().Seconds()),
	})
	if err != nil {
		cerr := &config.Error{Field: "llm", Msg: "client setup failed", Err: err}
		finish(cerr)
		return Outcome{RunID: runID, RunDir: runDir}, cerr
	}
	video := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)

	uc := usecase.New(usecase.Deps{
		Source: ytdlp.New(cfg.Tools.YTDLP, cfg.Tools.YTDLPFormat),
		Video:  video,
		ASR:    whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, cfg.Tools.WhisperLanguage),
		Model:  model,
		Ledger: ledger,
		Logger: logger,
		Now:    now,
	})

	log.Info("run started",
		logging.String("input", opts.Input),
		logging.String("run_dir", runDir),
		logging.String("cache", cacheDir),
	)
	res, err := uc.Run(ctx, usecase.Input{
		Source:             input,
		RunID:              runID,
		RunDir:             runDir,
		WorkDir:            cacheDir,
		MinDuration:        cfg.MinDuration(),
		DefaultTitle:       cfg.Moments.DefaultTitle,
		ShortDuration:      cfg.ShortDuration(),
		MaxShorts:          cfg.Moments.MaxShorts,
		Individual:         cfg.Render.Individual,
		Compilation:        cfg.Render.Compilation,
		Captions:           cfg.Render.Captions,
		IndividualOverlay:  types.OverlayPosition(cfg.Render.IndividualOverlay),
		CompilationOverlay: types.OverlayPosition(cfg.Render.CompilationOverlay),
		Workers:            cfg.Render.Workers,
	})
	out := Outcome{RunID: runID, RunDir: runDir, Result: res}
	if err != nil {
		finish(err)
		return out, err
	}

	// Downloads live in scratch; the manifest points at the original input.
	if isURL && !cfg.Render.KeepTemp {
		res.Manifest.Source.Path = ""
	}
	manifestPath := filepath.Join(runDir, ManifestFile)
	if err := writeManifest(manifestPath, res.Manifest); err != nil {
		finish(err)
		return out, err
	}
	out.ManifestPath = manifestPath
	out.Result = res
	finish(nil)
	log.Info("manifest written",
		logging.Int("shorts", len(res.Manifest.Shorts)),
		logging.String("path", manifestPath),
	)
	return out, nil
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := normalizePathSegment(inputName(input))
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

// inputName is the file stem of a local path or of a URL's last path
// element, falling back to the host.
func inputName(input string) string {
	if ytdlp.IsURL(input) {
		u, err := url.Parse(input)
		if err != nil {
			return ""
		}
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return u.Hostname()
		}
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

func normalizePathSegment(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

var (
	_ ports.VideoTool   = (*ffmpeg.Adapter)(nil)
	_ ports.ASR         = (*whispercpp.Adapter)(nil)
	_ ports.MomentModel = (*openai.Adapter)(nil)
	_ ports.MediaSource = (*ytdlp.Adapter)(nil)
)
