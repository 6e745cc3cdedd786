package timeline

import (
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

const DefaultShortDuration = 60 * time.Second

// Builder turns candidates into render plans. The zero value is usable and
// falls back to a 60s ceiling, titles on top for shorts and at the bottom
// for compilation entries.
type Builder struct {
	ShortDuration      time.Duration
	IndividualOverlay  types.OverlayPosition
	CompilationOverlay types.OverlayPosition
}

func (b Builder) withDefaults() Builder {
	if b.ShortDuration <= 0 {
		b.ShortDuration = DefaultShortDuration
	}
	if !b.IndividualOverlay.Valid() {
		b.IndividualOverlay = types.OverlayTop
	}
	if !b.CompilationOverlay.Valid() {
		b.CompilationOverlay = types.OverlayBottom
	}
	return b
}

// Individual builds the plan for a standalone short. Output keeps the head
// of the candidate window and drops whatever exceeds ShortDuration.
func (b Builder) Individual(c types.Candidate) types.RenderPlan {
	b = b.withDefaults()
	out := c.Duration()
	if out > b.ShortDuration {
		out = b.ShortDuration
	}
	if out < 0 {
		out = 0
	}
	return types.RenderPlan{
		SourceStart:     c.Start,
		SourceEnd:       c.End,
		OutputDuration:  out,
		OverlayText:     c.Title,
		OverlayPosition: b.IndividualOverlay,
		TargetAspect:    types.Vertical,
	}
}

// CompilationEntry builds the plan for one packed interval [c.Start, c.Start+take).
// take is bounded by the candidate duration.
func (b Builder) CompilationEntry(c types.Candidate, take time.Duration) types.RenderPlan {
	b = b.withDefaults()
	if take > c.Duration() {
		take = c.Duration()
	}
	if take < 0 {
		take = 0
	}
	return types.RenderPlan{
		SourceStart:     c.Start,
		SourceEnd:       c.Start + take,
		OutputDuration:  take,
		OverlayText:     c.Title,
		OverlayPosition: b.CompilationOverlay,
		TargetAspect:    types.Vertical,
	}
}
