package timeline

import (
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

// Pack fills a compilation of at most limit from ranked, highest priority
// first. The candidate that crosses the limit is truncated to fit and
// nothing after it is admitted. An empty ranked list or a non-positive limit
// yields an empty plan.
//
// Rank order wins over total duration utilization.
func Pack(ranked []types.Candidate, limit time.Duration, b Builder) types.CompilationPlan {
	var plan types.CompilationPlan
	if limit <= 0 {
		return plan
	}
	var used time.Duration
	for _, c := range ranked {
		if used >= limit {
			break
		}
		take := c.Duration()
		if remaining := limit - used; take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		plan.Plans = append(plan.Plans, b.CompilationEntry(c, take))
		used += take
	}
	plan.Total = used
	return plan
}
