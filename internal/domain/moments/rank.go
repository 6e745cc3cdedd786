package moments

import (
	"sort"
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

// Rank orders candidates by priority, highest first. Equal priorities keep
// their input order, so ranking the same model output twice is reproducible.
func Rank(cands []types.Candidate) []types.Candidate {
	out := make([]types.Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// ToAnalysis builds the persisted audit document for a ranked list.
func ToAnalysis(ranked []types.Candidate, summary string, at time.Time) types.Analysis {
	ms := make([]types.AnalysisMoment, 0, len(ranked))
	for _, c := range ranked {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		segs := c.Segments
		if segs == nil {
			segs = []types.Segment{}
		}
		ms = append(ms, types.AnalysisMoment{
			Start:       c.Start.Seconds(),
			End:         c.End.Seconds(),
			Duration:    c.Duration().Seconds(),
			Title:       c.Title,
			Description: c.Description,
			Reason:      c.Reason,
			Priority:    c.Priority,
			Tags:        tags,
			Segments:    segs,
		})
	}
	return types.Analysis{
		Moments:           ms,
		TotalMoments:      len(ms),
		AnalysisTimestamp: at.Format(time.RFC3339),
		Summary:           summary,
	}
}
