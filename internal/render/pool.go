// Package render runs render jobs on a bounded worker pool. Each job writes
// to a partial file that is renamed into place only after the renderer
// succeeds, so an output path that exists is always complete.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/livecut/internal/logging"
	"github.com/forPelevin/livecut/internal/store"
	"github.com/forPelevin/livecut/internal/types"
)

const DefaultWorkers = 2

type Kind string

const (
	KindIndividual  Kind = "individual"
	KindCompilation Kind = "compilation"
)

// Job is one output file. Individual jobs carry one plan; compilation jobs
// carry the packed entries in order.
type Job struct {
	Seq   int
	Name  string
	Kind  Kind
	Title string
	Plans []types.RenderPlan
}

func (j Job) FileName() string { return j.Name + ".mp4" }

func (j Job) partialName() string { return j.Name + ".partial.mp4" }

// Duration is the summed output length of the job.
func (j Job) Duration() time.Duration {
	var d time.Duration
	for _, p := range j.Plans {
		d += p.OutputDuration
	}
	return d
}

// Failure is a render error local to one job.
type Failure struct {
	Job string
	Err error
}

func (f *Failure) Error() string { return fmt.Sprintf("render %s: %v", f.Job, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

type Result struct {
	Job  Job
	Path string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil && r.Path != "" }

// Renderer produces the media for job at outPath.
type Renderer interface {
	Render(ctx context.Context, job Job, outPath string) error
}

// Ledger receives job state transitions. Write errors are logged only.
type Ledger interface {
	RecordJob(ctx context.Context, j store.Job) error
	MarkRendering(ctx context.Context, runID, name string) error
	MarkComplete(ctx context.Context, runID, name, outputPath string) error
	MarkFailed(ctx context.Context, runID, name string, cause error) error
}

type Pool struct {
	Renderer Renderer
	Workers  int
	Ledger   Ledger
	RunID    string
	Logger   *slog.Logger
}

// Run renders every job into outDir and returns one result per job in job
// order. A failing job never stops its siblings. Jobs not yet started when
// ctx is done fail with the context error; finished outputs are kept.
func (p *Pool) Run(ctx context.Context, jobs []Job, outDir string) ([]Result, error) {
	if p.Renderer == nil {
		return nil, errors.New("render pool: renderer is nil")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	logger := logging.NewComponentLogger(p.Logger, "render")
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	// Ledger writes must outlive a cancelled run.
	ledgerCtx := context.WithoutCancel(ctx)
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if _, dup := seen[j.Name]; dup {
			return nil, fmt.Errorf("render pool: duplicate job name %q", j.Name)
		}
		seen[j.Name] = struct{}{}
		p.ledger(logger.With(logging.String(logging.FieldJob, j.Name)), p.recordFn(ledgerCtx, j))
	}

	results := make([]Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = p.runOne(ctx, ledgerCtx, logger, j, outDir)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (p *Pool) runOne(ctx, ledgerCtx context.Context, logger *slog.Logger, j Job, outDir string) Result {
	log := logger.With(logging.String(logging.FieldJob, j.Name))
	fail := func(err error) Result {
		f := &Failure{Job: j.Name, Err: err}
		p.ledger(log, func() error { return p.Ledger.MarkFailed(ledgerCtx, p.RunID, j.Name, err) })
		log.Warn("render failed", logging.Error(err))
		return Result{Job: j, Err: f}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if len(j.Plans) == 0 {
		return fail(errors.New("job has no render plans"))
	}

	final := filepath.Join(outDir, j.FileName())
	partial := filepath.Join(outDir, j.partialName())
	_ = os.Remove(partial)

	p.ledger(log, func() error { return p.Ledger.MarkRendering(ledgerCtx, p.RunID, j.Name) })
	log.Info("render started",
		logging.String("kind", string(j.Kind)),
		logging.Int("parts", len(j.Plans)),
		logging.Duration("duration", j.Duration()),
	)
	started := time.Now()

	if err := p.Renderer.Render(ctx, j, partial); err != nil {
		_ = os.Remove(partial)
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(partial)
		return fail(err)
	}
	if st, err := os.Stat(partial); err != nil || st.Size() == 0 {
		_ = os.Remove(partial)
		return fail(errors.New("renderer produced no output"))
	}
	if err := os.Rename(partial, final); err != nil {
		_ = os.Remove(partial)
		return fail(fmt.Errorf("finalize output: %w", err))
	}

	p.ledger(log, func() error { return p.Ledger.MarkComplete(ledgerCtx, p.RunID, j.Name, final) })
	log.Info("render complete",
		logging.String("path", final),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return Result{Job: j, Path: final}
}

func (p *Pool) recordFn(ctx context.Context, j Job) func() error {
	return func() error {
		var start, end float64
		if len(j.Plans) > 0 {
			start = j.Plans[0].SourceStart.Seconds()
			end = j.Plans[len(j.Plans)-1].SourceEnd.Seconds()
		}
		return p.Ledger.RecordJob(ctx, store.Job{
			RunID:       p.RunID,
			Name:        j.Name,
			Kind:        string(j.Kind),
			Seq:         j.Seq,
			Title:       j.Title,
			StartSec:    start,
			EndSec:      end,
			DurationSec: j.Duration().Seconds(),
			Parts:       len(j.Plans),
		})
	}
}

func (p *Pool) ledger(log *slog.Logger, fn func() error) {
	if p.Ledger == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("ledger update failed", logging.Error(err))
	}
}

// Produced returns the output paths of successful results, in job order.
func Produced(results []Result) []string {
	var out []string
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Path)
		}
	}
	return out
}

// Failures returns the failed results' errors, in job order.
func Failures(results []Result) []*Failure {
	var out []*Failure
	for _, r := range results {
		var f *Failure
		if errors.As(r.Err, &f) {
			out = append(out, f)
		}
	}
	return out
}
