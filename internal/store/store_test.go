package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "run", FileName))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	if err := l.StartRun(context.Background(), "run-1", "in.mp4", "/abs/in.mp4"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	return l
}

func TestLedger_Lifecycle(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	jobs := []Job{
		{RunID: "run-1", Name: "short_01", Kind: "individual", Seq: 0, Title: "a", StartSec: 10, EndSec: 40, DurationSec: 30},
		{RunID: "run-1", Name: "short_02", Kind: "individual", Seq: 1, StartSec: 50, EndSec: 70, DurationSec: 20},
		{RunID: "run-1", Name: "compilation_short", Kind: "compilation", Seq: 2, DurationSec: 50, Parts: 2},
	}
	for _, j := range jobs {
		if err := l.RecordJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.MarkRendering(ctx, "run-1", "short_01"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkComplete(ctx, "run-1", "short_01", "/out/short_01.mp4"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkRendering(ctx, "run-1", "short_02"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkFailed(ctx, "run-1", "short_02", errors.New("ffmpeg exploded")); err != nil {
		t.Fatal(err)
	}
	if err := l.FinishRun(ctx, "run-1", nil); err != nil {
		t.Fatal(err)
	}
	run, err := l.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunComplete || run.Error != "" || run.FinishedAt.IsZero() || run.SourcePath != "/abs/in.mp4" {
		t.Fatalf("unexpected run: %+v", run)
	}

	got, err := l.Jobs(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(got))
	}
	if got[0].Status != StatusComplete || got[0].OutputPath != "/out/short_01.mp4" || got[0].Attempts != 1 {
		t.Fatalf("unexpected first job: %+v", got[0])
	}
	if got[1].Status != StatusFailed || got[1].Error != "ffmpeg exploded" || got[1].OutputPath != "" {
		t.Fatalf("unexpected second job: %+v", got[1])
	}
	if got[2].Status != StatusQueued || got[2].Parts != 2 || got[2].Kind != "compilation" {
		t.Fatalf("unexpected third job: %+v", got[2])
	}
	if got[0].UpdatedAt.IsZero() {
		t.Fatalf("updated_at not parsed")
	}
}

func TestLedger_RunOutcome(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	run, err := l.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunRunning || !run.FinishedAt.IsZero() {
		t.Fatalf("fresh run should be running and unfinished: %+v", run)
	}

	if err := l.FinishRun(ctx, "run-1", errors.New("transcribe: whisper exited 1")); err != nil {
		t.Fatal(err)
	}
	run, err = l.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunFailed || run.Error != "transcribe: whisper exited 1" || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected failed run: %+v", run)
	}

	if err := l.FinishRun(ctx, "missing", nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestLedger_UnknownJob(t *testing.T) {
	l := openTestLedger(t)
	err := l.MarkRendering(context.Background(), "run-1", "nope")
	if !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestLedger_ReopenKeepsJobs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)
	l, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.StartRun(ctx, "r", "in", ""); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordJob(ctx, Job{RunID: "r", Name: "short_01", Kind: "individual"}); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	l, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	got, err := l.Jobs(ctx, "r")
	if err != nil || len(got) != 1 {
		t.Fatalf("jobs after reopen: %v, %v", got, err)
	}
}

func TestLedger_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	const n = 16
	for i := 0; i < n; i++ {
		if err := l.RecordJob(ctx, Job{RunID: "run-1", Name: fmt.Sprintf("short_%02d", i+1), Kind: "individual", Seq: i}); err != nil {
			t.Fatal(err)
		}
	}
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("short_%02d", i+1)
			if err := l.MarkRendering(ctx, "run-1", name); err != nil {
				errs <- err
				return
			}
			if err := l.MarkComplete(ctx, "run-1", name, name+".mp4"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	got, err := l.Jobs(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range got {
		if j.Status != StatusComplete {
			t.Fatalf("job %s not complete: %s", j.Name, j.Status)
		}
	}
}
