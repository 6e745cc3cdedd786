package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/livecut/internal/domain/moments"
	"github.com/forPelevin/livecut/internal/domain/timeline"
	"github.com/forPelevin/livecut/internal/domain/transcript"
	"github.com/forPelevin/livecut/internal/logging"
	"github.com/forPelevin/livecut/internal/ports"
	"github.com/forPelevin/livecut/internal/render"
	"github.com/forPelevin/livecut/internal/types"
)

const (
	AnalysisFile   = "analysis.json"
	TranscriptFile = "transcription.txt"
	ShortsDir      = "shorts"

	CompilationName = "compilation_short"

	longSourceWarning = 2 * time.Hour
)

type Deps struct {
	Source ports.MediaSource
	Video  ports.VideoTool
	ASR    ports.ASR
	Model  ports.MomentModel
	// Ledger is optional.
	Ledger render.Ledger
	Logger *slog.Logger
	Now    func() time.Time
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Now == nil {
		d.Now = time.Now
	}
	return Usecase{d: d}
}

type Input struct {
	// Source is a local path or an http(s) URL.
	Source string
	RunID  string
	// RunDir receives transcription.txt, analysis.json and shorts/.
	RunDir string
	// WorkDir holds downloads, audio and render scratch.
	WorkDir string

	MinDuration   time.Duration
	DefaultTitle  string
	ShortDuration time.Duration
	MaxShorts     int

	Individual         bool
	Compilation        bool
	Captions           bool
	IndividualOverlay  types.OverlayPosition
	CompilationOverlay types.OverlayPosition
	Workers            int
}

type Result struct {
	SourcePath string
	Media      types.MediaInfo
	Transcript types.Transcript
	Ranked     []types.Candidate
	Dropped    []*moments.MalformedCandidateError
	Summary    string
	Renders    []render.Result
	Manifest   types.Manifest
}

// Run executes every stage for one input. A model response with no usable
// moments is not an error: the analysis is written empty and no shorts are
// rendered. Individual render failures are reported in the result and the
// manifest, never as the returned error.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	base := u.d.Logger
	if base == nil {
		base = logging.NewNop()
	}
	if in.RunID != "" {
		base = base.With(logging.String(logging.FieldRunID, in.RunID))
	}
	log := logging.NewComponentLogger(base, "usecase")
	res := Result{}

	for _, dir := range []string{in.RunDir, in.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("create dir: %w", err)
		}
	}

	stage := stageLogger(log, "ingest")
	src, err := u.d.Source.Fetch(ctx, in.Source, in.WorkDir)
	if err != nil {
		return res, fmt.Errorf("fetch source: %w", err)
	}
	res.SourcePath = src
	media, err := u.d.Video.Probe(ctx, src)
	if err != nil {
		return res, fmt.Errorf("probe source: %w", err)
	}
	res.Media = media
	stage.Info("source ready",
		logging.String("path", src),
		logging.Duration("duration", media.Duration.Round(time.Second)),
		logging.String("resolution", fmt.Sprintf("%dx%d", media.Width, media.Height)),
		logging.String("format", media.Format),
	)
	if media.Duration > longSourceWarning {
		stage.Warn("source is longer than 2h; transcription will be slow",
			logging.Duration("duration", media.Duration.Round(time.Second)))
	}

	stage = stageLogger(log, "transcribe")
	wav := filepath.Join(in.WorkDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, src, wav); err != nil {
		return res, fmt.Errorf("extract audio: %w", err)
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	if err != nil {
		return res, fmt.Errorf("transcribe: %w", err)
	}
	res.Transcript = tr
	if err := writeTranscript(filepath.Join(in.RunDir, TranscriptFile), tr); err != nil {
		return res, err
	}
	stage.Info("transcript written",
		logging.Int("segments", len(tr.Segments)),
		logging.String("language", tr.Language),
	)

	stage = stageLogger(log, "analyze")
	resp, err := u.d.Model.IdentifyMoments(ctx, tr)
	if err != nil {
		return res, fmt.Errorf("identify moments: %w", err)
	}
	res.Summary = resp.Summary
	if resp.Rejected > 0 {
		stage.Warn("model entries did not decode", logging.Int("rejected", resp.Rejected))
	}
	if resp.Summary != "" {
		stage.Info("model summary", logging.String("summary", resp.Summary))
	}

	cands, dropped, err := moments.NormalizeBatch(resp.Moments, moments.Options{
		MinDuration:  in.MinDuration,
		DefaultTitle: in.DefaultTitle,
	})
	res.Dropped = dropped
	for _, d := range dropped {
		stage.Warn("moment dropped", logging.Int("moment", d.Index+1), logging.Error(d))
	}
	if errors.Is(err, moments.ErrNoCandidates) {
		stage.Warn("no shorts created", logging.Error(err))
		if err := writeJSON(filepath.Join(in.RunDir, AnalysisFile), moments.ToAnalysis(nil, resp.Summary, u.d.Now())); err != nil {
			return res, err
		}
		res.Manifest = buildManifest(in, res, nil, nil)
		return res, nil
	}
	if err != nil {
		return res, err
	}

	cands, unanchored := moments.MapSegments(cands, tr)
	for _, i := range unanchored {
		stage.Warn("moment has no transcript segments",
			logging.String("title", cands[i].Title),
			logging.Float64("start", cands[i].Start.Seconds()),
		)
	}
	ranked := moments.Rank(cands)
	res.Ranked = ranked
	if err := writeJSON(filepath.Join(in.RunDir, AnalysisFile), moments.ToAnalysis(ranked, resp.Summary, u.d.Now())); err != nil {
		return res, err
	}
	stage.Info("moments ranked", logging.Int("kept", len(ranked)), logging.Int("dropped", len(dropped)))

	stage = stageLogger(log, "render")
	jobs := planJobs(ranked, in)
	if len(jobs) == 0 {
		stage.Warn("nothing to render")
		res.Manifest = buildManifest(in, res, nil, nil)
		return res, nil
	}
	pool := &render.Pool{
		Renderer: &render.VideoRenderer{
			Tool:       u.d.Video,
			Source:     src,
			Transcript: tr,
			Captions:   in.Captions,
			WorkDir:    filepath.Join(in.WorkDir, "render"),
		},
		Workers: in.Workers,
		Ledger:  u.d.Ledger,
		RunID:   in.RunID,
		Logger:  base,
	}
	results, err := pool.Run(ctx, jobs, filepath.Join(in.RunDir, ShortsDir))
	if err != nil {
		return res, fmt.Errorf("render: %w", err)
	}
	res.Renders = results
	res.Manifest = buildManifest(in, res, jobs, results)

	failures := render.Failures(results)
	stage.Info("render finished",
		logging.Int("produced", len(render.Produced(results))),
		logging.Int("failed", len(failures)),
	)
	return res, nil
}

func stageLogger(log *slog.Logger, name string) *slog.Logger {
	return log.With(logging.String(logging.FieldStage, name))
}

// planJobs names individual shorts by rank index and adds the compilation
// when more than one candidate exists.
func planJobs(ranked []types.Candidate, in Input) []render.Job {
	limit := in.ShortDuration
	if limit <= 0 {
		limit = timeline.DefaultShortDuration
	}
	b := timeline.Builder{
		ShortDuration:      limit,
		IndividualOverlay:  in.IndividualOverlay,
		CompilationOverlay: in.CompilationOverlay,
	}
	var jobs []render.Job
	if in.Individual {
		n := min(in.MaxShorts, len(ranked))
		for i := 0; i < n; i++ {
			c := ranked[i]
			jobs = append(jobs, render.Job{
				Seq:   len(jobs) + 1,
				Name:  fmt.Sprintf("short_%02d", i+1),
				Kind:  render.KindIndividual,
				Title: c.Title,
				Plans: []types.RenderPlan{b.Individual(c)},
			})
		}
	}
	if in.Compilation && len(ranked) > 1 {
		plan := timeline.Pack(ranked, limit, b)
		if !plan.Empty() {
			jobs = append(jobs, render.Job{
				Seq:   len(jobs) + 1,
				Name:  CompilationName,
				Kind:  render.KindCompilation,
				Title: "Compilation",
				Plans: plan.Plans,
			})
		}
	}
	return jobs
}

func buildManifest(in Input, res Result, jobs []render.Job, results []render.Result) types.Manifest {
	m := types.Manifest{
		RunID: in.RunID,
		Input: in.Source,
		Source: types.ManifestSource{
			Path:        res.SourcePath,
			DurationSec: res.Media.Duration.Seconds(),
			Width:       res.Media.Width,
			Height:      res.Media.Height,
			Format:      res.Media.Format,
		},
		Shorts: []types.ManifestShort{},
	}
	for i, j := range jobs {
		s := types.ManifestShort{
			ID:          j.Name,
			Kind:        string(j.Kind),
			StartSec:    j.Plans[0].SourceStart.Seconds(),
			EndSec:      j.Plans[len(j.Plans)-1].SourceEnd.Seconds(),
			DurationSec: j.Duration().Seconds(),
			Title:       j.Title,
			Parts:       len(j.Plans),
			Status:      "failed",
		}
		if i < len(results) {
			r := results[i]
			if r.OK() {
				s.Status = "complete"
				s.File = filepath.ToSlash(filepath.Join(ShortsDir, j.FileName()))
			} else if r.Err != nil {
				s.Error = r.Err.Error()
			}
		}
		m.Shorts = append(m.Shorts, s)
	}
	return m
}

func writeTranscript(path string, tr types.Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := transcript.WriteText(f, tr); err != nil {
		_ = f.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
