package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

type clipCall struct {
	plan    types.RenderPlan
	out     string
	assPath string
	ass     string
}

type fakeTool struct {
	clips     []clipCall
	concat    []string
	failClip  int
	concatErr error
}

func (f *fakeTool) Probe(context.Context, string) (types.MediaInfo, error) {
	return types.MediaInfo{}, nil
}

func (f *fakeTool) ExtractAudioMono16k(context.Context, string, string) error { return nil }

func (f *fakeTool) RenderClip(_ context.Context, _ string, plan types.RenderPlan, out, ass string) error {
	call := clipCall{plan: plan, out: out, assPath: ass}
	if ass != "" {
		b, err := os.ReadFile(ass)
		if err != nil {
			return err
		}
		call.ass = string(b)
	}
	f.clips = append(f.clips, call)
	if f.failClip > 0 && len(f.clips) == f.failClip {
		return errors.New("clip failed")
	}
	return os.WriteFile(out, []byte("clip"), 0o644)
}

func (f *fakeTool) Concat(_ context.Context, parts []string, out string) error {
	for _, p := range parts {
		if _, err := os.Stat(p); err != nil {
			return err
		}
	}
	f.concat = append([]string(nil), parts...)
	if f.concatErr != nil {
		return f.concatErr
	}
	return os.WriteFile(out, []byte("compilation"), 0o644)
}

func vplan(start, dur time.Duration, title string, pos types.OverlayPosition) types.RenderPlan {
	return types.RenderPlan{
		SourceStart:     start,
		SourceEnd:       start + dur,
		OutputDuration:  dur,
		OverlayText:     title,
		OverlayPosition: pos,
		TargetAspect:    types.Vertical,
	}
}

func TestVideoRenderer_Individual(t *testing.T) {
	work := t.TempDir()
	tool := &fakeTool{}
	r := &VideoRenderer{Tool: tool, Source: "/src/in.mp4", WorkDir: work}

	job := Job{Name: "short_01", Kind: KindIndividual, Plans: []types.RenderPlan{vplan(5*time.Second, 20*time.Second, "Cat falls", types.OverlayTop)}}
	out := filepath.Join(t.TempDir(), "short_01.partial.mp4")
	if err := r.Render(context.Background(), job, out); err != nil {
		t.Fatal(err)
	}
	if len(tool.clips) != 1 {
		t.Fatalf("clips: %d", len(tool.clips))
	}
	c := tool.clips[0]
	if c.out != out || c.plan.SourceStart != 5*time.Second {
		t.Fatalf("unexpected call: %+v", c)
	}
	if c.assPath != filepath.Join(work, "short_01.ass") || !strings.Contains(c.ass, "TitleTop,,0,0,0,,Cat falls") {
		t.Fatalf("overlay not written: %q %q", c.assPath, c.ass)
	}
}

func TestVideoRenderer_NoOverlayPassesNoScript(t *testing.T) {
	tool := &fakeTool{}
	r := &VideoRenderer{Tool: tool, Source: "in.mp4", WorkDir: t.TempDir()}
	job := Job{Name: "short_01", Kind: KindIndividual, Plans: []types.RenderPlan{vplan(0, 10*time.Second, "", types.OverlayTop)}}
	if err := r.Render(context.Background(), job, filepath.Join(t.TempDir(), "o.mp4")); err != nil {
		t.Fatal(err)
	}
	if tool.clips[0].assPath != "" {
		t.Fatalf("expected no overlay script, got %s", tool.clips[0].assPath)
	}
}

func TestVideoRenderer_Compilation(t *testing.T) {
	work := t.TempDir()
	tool := &fakeTool{}
	r := &VideoRenderer{Tool: tool, Source: "in.mp4", WorkDir: work}
	job := Job{Name: "compilation_short", Kind: KindCompilation, Plans: []types.RenderPlan{
		vplan(100*time.Second, 40*time.Second, "First", types.OverlayBottom),
		vplan(300*time.Second, 20*time.Second, "Second", types.OverlayBottom),
	}}
	out := filepath.Join(t.TempDir(), "compilation_short.partial.mp4")
	if err := r.Render(context.Background(), job, out); err != nil {
		t.Fatal(err)
	}
	if len(tool.clips) != 2 || len(tool.concat) != 2 {
		t.Fatalf("clips=%d concat=%v", len(tool.clips), tool.concat)
	}
	wantParts := []string{
		filepath.Join(work, "compilation_short_part_01.mp4"),
		filepath.Join(work, "compilation_short_part_02.mp4"),
	}
	for i, p := range wantParts {
		if tool.concat[i] != p {
			t.Fatalf("part %d: got %s want %s", i, tool.concat[i], p)
		}
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("part %s not cleaned up", p)
		}
	}
	if !strings.Contains(tool.clips[1].ass, "TitleBottom,,0,0,0,,Second") {
		t.Fatalf("second overlay: %q", tool.clips[1].ass)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("compilation output: %v", err)
	}
}

func TestVideoRenderer_CompilationPartFailure(t *testing.T) {
	work := t.TempDir()
	tool := &fakeTool{failClip: 2}
	r := &VideoRenderer{Tool: tool, Source: "in.mp4", WorkDir: work}
	job := Job{Name: "compilation_short", Kind: KindCompilation, Plans: []types.RenderPlan{
		vplan(0, 10*time.Second, "a", types.OverlayBottom),
		vplan(20*time.Second, 10*time.Second, "b", types.OverlayBottom),
	}}
	err := r.Render(context.Background(), job, filepath.Join(t.TempDir(), "c.mp4"))
	if err == nil || !strings.Contains(err.Error(), "part 2") {
		t.Fatalf("expected part 2 error, got %v", err)
	}
	if tool.concat != nil {
		t.Fatalf("concat should not run")
	}
	if _, err := os.Stat(filepath.Join(work, "compilation_short_part_01.mp4")); !os.IsNotExist(err) {
		t.Fatalf("part 1 not cleaned up")
	}
}

func TestVideoRenderer_Errors(t *testing.T) {
	tests := []struct {
		name string
		r    *VideoRenderer
		job  Job
	}{
		{"nil tool", &VideoRenderer{}, Job{Kind: KindIndividual}},
		{"unknown kind", &VideoRenderer{Tool: &fakeTool{}}, Job{Kind: "teaser", Plans: []types.RenderPlan{vplan(0, time.Second, "", types.OverlayTop)}}},
		{"individual with two plans", &VideoRenderer{Tool: &fakeTool{}}, Job{Kind: KindIndividual, Plans: []types.RenderPlan{
			vplan(0, time.Second, "", types.OverlayTop), vplan(2*time.Second, time.Second, "", types.OverlayTop),
		}}},
		{"zero duration", &VideoRenderer{Tool: &fakeTool{}}, Job{Kind: KindIndividual, Plans: []types.RenderPlan{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.r.WorkDir = t.TempDir()
			if err := tt.r.Render(context.Background(), tt.job, filepath.Join(t.TempDir(), "o.mp4")); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
