package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/livecut/internal/domain/subtitles"
	"github.com/forPelevin/livecut/internal/ports"
	"github.com/forPelevin/livecut/internal/types"
)

// VideoRenderer renders jobs with a VideoTool. Compilation jobs render each
// entry to a scratch part and concatenate the parts.
type VideoRenderer struct {
	Tool       ports.VideoTool
	Source     string
	Transcript types.Transcript
	Captions   bool
	// WorkDir holds overlay scripts and compilation parts.
	WorkDir string
}

func (r *VideoRenderer) Render(ctx context.Context, job Job, outPath string) error {
	if r.Tool == nil {
		return errors.New("video tool is nil")
	}
	if err := os.MkdirAll(r.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	switch job.Kind {
	case KindIndividual:
		if len(job.Plans) != 1 {
			return fmt.Errorf("individual job has %d plans", len(job.Plans))
		}
		return r.renderPlan(ctx, job.Plans[0], job.Name, outPath)
	case KindCompilation:
		return r.renderCompilation(ctx, job, outPath)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (r *VideoRenderer) renderCompilation(ctx context.Context, job Job, outPath string) error {
	if len(job.Plans) == 0 {
		return errors.New("compilation has no entries")
	}
	parts := make([]string, 0, len(job.Plans))
	defer func() {
		for _, p := range parts {
			_ = os.Remove(p)
		}
	}()
	for i, plan := range job.Plans {
		name := fmt.Sprintf("%s_part_%02d", job.Name, i+1)
		part := filepath.Join(r.WorkDir, name+".mp4")
		parts = append(parts, part)
		if err := r.renderPlan(ctx, plan, name, part); err != nil {
			return fmt.Errorf("part %d: %w", i+1, err)
		}
	}
	if err := r.Tool.Concat(ctx, parts, outPath); err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	return nil
}

func (r *VideoRenderer) renderPlan(ctx context.Context, plan types.RenderPlan, name, outPath string) error {
	ass, err := subtitles.RenderOverlayASS(plan, r.Transcript, r.Captions)
	if err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	var assPath string
	if subtitles.HasEvents(ass) {
		assPath = filepath.Join(r.WorkDir, name+".ass")
		if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
	}
	return r.Tool.RenderClip(ctx, r.Source, plan, outPath, assPath)
}
