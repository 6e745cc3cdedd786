package moments

import (
	"sort"
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

// Overlaps reports whether seg intersects the half-open window [start, end).
// Touching boundaries do not overlap.
func Overlaps(seg types.Segment, start, end time.Duration) bool {
	return seg.StartDur() < end && seg.EndDur() > start
}

// SegmentsIn returns the transcript segments overlapping [start, end).
// segs must be sorted by start and non-overlapping.
func SegmentsIn(segs []types.Segment, start, end time.Duration) []types.Segment {
	// Segments are disjoint and sorted, so their ends are sorted too.
	i := sort.Search(len(segs), func(i int) bool { return segs[i].EndDur() > start })
	out := []types.Segment{}
	for ; i < len(segs); i++ {
		if segs[i].StartDur() >= end {
			break
		}
		if Overlaps(segs[i], start, end) {
			out = append(out, segs[i])
		}
	}
	return out
}

// MapSegments attaches overlapping segments to every candidate. It returns
// the indices of candidates that matched no segment at all, which usually
// means the model invented the time range.
func MapSegments(cands []types.Candidate, tr types.Transcript) ([]types.Candidate, []int) {
	out := make([]types.Candidate, len(cands))
	var unanchored []int
	for i, c := range cands {
		c.Segments = SegmentsIn(tr.Segments, c.Start, c.End)
		if len(c.Segments) == 0 {
			unanchored = append(unanchored, i)
		}
		out[i] = c
	}
	return out, unanchored
}
