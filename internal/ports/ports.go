package ports

import (
	"context"

	"github.com/forPelevin/livecut/internal/types"
)

// MediaSource resolves an input (local path or URL) to a local video file
// inside workDir.
type MediaSource interface {
	Fetch(ctx context.Context, input, workDir string) (string, error)
}

type VideoTool interface {
	Probe(ctx context.Context, inPath string) (types.MediaInfo, error)
	ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error
	// RenderClip cuts [plan.SourceStart, plan.SourceStart+plan.OutputDuration),
	// crops it to the plan's aspect and burns burnASS when non-empty.
	RenderClip(ctx context.Context, inPath string, plan types.RenderPlan, outMP4, burnASS string) error
	Concat(ctx context.Context, parts []string, outMP4 string) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error)
}

type MomentModel interface {
	IdentifyMoments(ctx context.Context, tr types.Transcript) (types.ModelResponse, error)
}
