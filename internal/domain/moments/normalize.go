package moments

import (
	"math"
	"strings"
	"time"

	"github.com/forPelevin/livecut/internal/domain/timecode"
	"github.com/forPelevin/livecut/internal/types"
)

const (
	DefaultMinDuration = 10 * time.Second
	DefaultPriority    = 5
	DefaultTitle       = "Funny moment"

	minPriority = 1
	maxPriority = 10
)

type Options struct {
	MinDuration time.Duration
	// DefaultTitle replaces a missing or blank title.
	DefaultTitle string
}

func (o Options) withDefaults() Options {
	if o.MinDuration < 0 {
		o.MinDuration = 0
	}
	if strings.TrimSpace(o.DefaultTitle) == "" {
		o.DefaultTitle = DefaultTitle
	}
	return o
}

// Normalize validates one raw model entry. The returned candidate has no
// segments attached; see MapSegments.
func Normalize(idx int, raw types.RawMoment, opts Options) (types.Candidate, error) {
	c, merr := normalize(idx, raw, opts.withDefaults())
	if merr != nil {
		return types.Candidate{}, merr
	}
	return c, nil
}

func normalize(idx int, raw types.RawMoment, opts Options) (types.Candidate, *MalformedCandidateError) {
	start, err := timecode.Parse(raw.StartTime)
	if err != nil {
		return types.Candidate{}, &MalformedCandidateError{Index: idx, Reason: "start_time", Err: err}
	}
	end, err := timecode.Parse(raw.EndTime)
	if err != nil {
		return types.Candidate{}, &MalformedCandidateError{Index: idx, Reason: "end_time", Err: err}
	}
	if end <= start {
		return types.Candidate{}, &MalformedCandidateError{Index: idx, Reason: "end_time is not after start_time"}
	}
	if end-start < opts.MinDuration {
		return types.Candidate{}, &MalformedCandidateError{
			Index:  idx,
			Reason: "shorter than " + opts.MinDuration.String() + " (" + (end - start).String() + ")",
		}
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = opts.DefaultTitle
	}

	return types.Candidate{
		Start:       start,
		End:         end,
		Title:       title,
		Description: strings.TrimSpace(raw.Description),
		Reason:      strings.TrimSpace(raw.Reason),
		Priority:    clampPriority(raw.Priority),
		Tags:        normalizeTags(raw.Tags),
	}, nil
}

// NormalizeBatch keeps every valid entry in arrival order. Individual failures
// are returned as dropped; the error is non-nil only when nothing survives.
func NormalizeBatch(raws []types.RawMoment, opts Options) ([]types.Candidate, []*MalformedCandidateError, error) {
	opts = opts.withDefaults()
	out := make([]types.Candidate, 0, len(raws))
	var dropped []*MalformedCandidateError
	for i, raw := range raws {
		c, merr := normalize(i, raw, opts)
		if merr != nil {
			dropped = append(dropped, merr)
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, dropped, &NoCandidatesError{Received: len(raws), Dropped: dropped}
	}
	return out, dropped, nil
}

func clampPriority(p *float64) int {
	if p == nil || math.IsNaN(*p) {
		return DefaultPriority
	}
	v := math.Round(*p)
	if v < minPriority {
		return minPriority
	}
	if v > maxPriority {
		return maxPriority
	}
	return int(v)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
