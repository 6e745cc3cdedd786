package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forPelevin/livecut/internal/store"
	"github.com/forPelevin/livecut/internal/types"
)

type fakeRenderer struct {
	mu      sync.Mutex
	fail    map[string]error
	delay   time.Duration
	calls   []string
	active  atomic.Int32
	maxSeen atomic.Int32
	onStart func(Job)
}

func (f *fakeRenderer) Render(ctx context.Context, job Job, outPath string) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, job.Name)
	f.mu.Unlock()
	if f.onStart != nil {
		f.onStart(job)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := os.WriteFile(outPath, []byte("mp4:"+job.Name), 0o644); err != nil {
		return err
	}
	if err := f.fail[job.Name]; err != nil {
		return err
	}
	return nil
}

func testJobs(names ...string) []Job {
	out := make([]Job, 0, len(names))
	for i, n := range names {
		out = append(out, Job{
			Seq:  i + 1,
			Name: n,
			Kind: KindIndividual,
			Plans: []types.RenderPlan{{
				SourceStart:    time.Duration(i*30) * time.Second,
				SourceEnd:      time.Duration(i*30+20) * time.Second,
				OutputDuration: 20 * time.Second,
				TargetAspect:   types.Vertical,
			}},
		})
	}
	return out
}

func TestPool_ResultsInJobOrder(t *testing.T) {
	out := t.TempDir()
	r := &fakeRenderer{delay: 5 * time.Millisecond}
	p := &Pool{Renderer: r, Workers: 3}

	jobs := testJobs("short_01", "short_02", "short_03", "short_04", "compilation_short")
	results, err := p.Run(context.Background(), jobs, out)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("results: got %d want %d", len(results), len(jobs))
	}
	for i, res := range results {
		if res.Job.Name != jobs[i].Name {
			t.Fatalf("result %d: got %s want %s", i, res.Job.Name, jobs[i].Name)
		}
		if !res.OK() {
			t.Fatalf("result %d failed: %v", i, res.Err)
		}
		want := filepath.Join(out, jobs[i].Name+".mp4")
		if res.Path != want {
			t.Fatalf("path: got %s want %s", res.Path, want)
		}
	}
	if got := r.maxSeen.Load(); got > 3 {
		t.Fatalf("concurrency exceeded: %d", got)
	}
	if got := len(Produced(results)); got != 5 {
		t.Fatalf("produced: got %d", got)
	}
}

func TestPool_FailureIsLocal(t *testing.T) {
	out := t.TempDir()
	boom := errors.New("ffmpeg exploded")
	r := &fakeRenderer{fail: map[string]error{"short_02": boom}}
	p := &Pool{Renderer: r, Workers: 2}

	results, err := p.Run(context.Background(), testJobs("short_01", "short_02", "short_03"), out)
	if err != nil {
		t.Fatal(err)
	}
	produced := Produced(results)
	if len(produced) != 2 {
		t.Fatalf("produced: %v", produced)
	}
	failures := Failures(results)
	if len(failures) != 1 || failures[0].Job != "short_02" || !errors.Is(failures[0], boom) {
		t.Fatalf("failures: %+v", failures)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".partial") {
			t.Fatalf("partial file left behind: %s", e.Name())
		}
		if e.Name() == "short_02.mp4" {
			t.Fatalf("failed job produced an output")
		}
	}
}

func TestPool_EmptyOutputFails(t *testing.T) {
	out := t.TempDir()
	p := &Pool{Renderer: rendererFunc(func(context.Context, Job, string) error { return nil })}

	results, err := p.Run(context.Background(), testJobs("short_01"), out)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].OK() {
		t.Fatalf("expected failure when renderer writes nothing")
	}
}

func TestPool_CancelledJobsFail(t *testing.T) {
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeRenderer{onStart: func(j Job) {
		if j.Name == "short_01" {
			cancel()
		}
	}}
	p := &Pool{Renderer: r, Workers: 1}

	results, err := p.Run(ctx, testJobs("short_01", "short_02", "short_03"), out)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.OK() {
			t.Fatalf("%s: expected cancellation failure", res.Job.Name)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("%s: got %v", res.Job.Name, res.Err)
		}
	}
	if len(r.calls) != 1 {
		t.Fatalf("renderer called for jobs after cancel: %v", r.calls)
	}
}

func TestPool_RejectsDuplicateNames(t *testing.T) {
	p := &Pool{Renderer: &fakeRenderer{}}
	if _, err := p.Run(context.Background(), testJobs("a", "a"), t.TempDir()); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestPool_NoPlansFails(t *testing.T) {
	p := &Pool{Renderer: &fakeRenderer{}}
	results, err := p.Run(context.Background(), []Job{{Name: "empty", Kind: KindCompilation}}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].OK() {
		t.Fatalf("expected failure")
	}
}

func TestPool_WritesLedger(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ledger, err := store.Open(ctx, filepath.Join(dir, store.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	if err := ledger.StartRun(ctx, "run-1", "in.mp4", "/src/in.mp4"); err != nil {
		t.Fatal(err)
	}

	r := &fakeRenderer{fail: map[string]error{"short_02": errors.New("bad cut")}}
	p := &Pool{Renderer: r, Workers: 2, Ledger: ledger, RunID: "run-1"}
	if _, err := p.Run(ctx, testJobs("short_01", "short_02"), filepath.Join(dir, "out")); err != nil {
		t.Fatal(err)
	}

	jobs, err := ledger.Jobs(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs: %+v", jobs)
	}
	if jobs[0].Name != "short_01" || jobs[0].Status != store.StatusComplete || jobs[0].Attempts != 1 {
		t.Fatalf("short_01: %+v", jobs[0])
	}
	if !strings.HasSuffix(jobs[0].OutputPath, "short_01.mp4") {
		t.Fatalf("output path: %s", jobs[0].OutputPath)
	}
	if jobs[1].Status != store.StatusFailed || !strings.Contains(jobs[1].Error, "bad cut") {
		t.Fatalf("short_02: %+v", jobs[1])
	}
	if jobs[1].StartSec != 30 || jobs[1].EndSec != 50 || jobs[1].DurationSec != 20 {
		t.Fatalf("short_02 window: %+v", jobs[1])
	}
}

type rendererFunc func(ctx context.Context, job Job, outPath string) error

func (f rendererFunc) Render(ctx context.Context, job Job, outPath string) error {
	return f(ctx, job, outPath)
}
