package types

import "time"

type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Segment is a transcript fragment. Start and End are seconds from the
// beginning of the source media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (s Segment) StartDur() time.Duration { return Seconds(s.Start) }
func (s Segment) EndDur() time.Duration   { return Seconds(s.End) }

// RawMoment is one entry of the model response, decoded but not validated.
type RawMoment struct {
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reason      string   `json:"reason"`
	Priority    *float64 `json:"priority"`
	Tags        []string `json:"tags"`
}

type ModelResponse struct {
	Moments []RawMoment
	Summary string
	// Rejected counts entries that did not decode into RawMoment.
	Rejected int
}

type Candidate struct {
	Start time.Duration
	End   time.Duration

	Title       string
	Description string
	Reason      string
	Priority    int
	Tags        []string

	Segments []Segment
}

func (c Candidate) Duration() time.Duration { return c.End - c.Start }

type OverlayPosition string

const (
	OverlayTop    OverlayPosition = "top"
	OverlayBottom OverlayPosition = "bottom"
	OverlayCenter OverlayPosition = "center"
)

func (p OverlayPosition) Valid() bool {
	switch p {
	case OverlayTop, OverlayBottom, OverlayCenter:
		return true
	default:
		return false
	}
}

type AspectRatio struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Vertical is the only aspect a RenderPlan targets.
var Vertical = AspectRatio{W: 9, H: 16}

// RenderPlan describes one output clip. The renderer cuts
// [SourceStart, SourceStart+OutputDuration) from the source.
type RenderPlan struct {
	SourceStart     time.Duration
	SourceEnd       time.Duration
	OutputDuration  time.Duration
	OverlayText     string
	OverlayPosition OverlayPosition
	TargetAspect    AspectRatio
}

type CompilationPlan struct {
	Plans []RenderPlan
	Total time.Duration
}

func (p CompilationPlan) Empty() bool { return len(p.Plans) == 0 }

type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	Format   string
}

type Analysis struct {
	Moments           []AnalysisMoment `json:"moments"`
	TotalMoments      int              `json:"total_moments"`
	AnalysisTimestamp string           `json:"analysis_timestamp"`
	Summary           string           `json:"summary,omitempty"`
}

type AnalysisMoment struct {
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Duration    float64   `json:"duration"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reason      string    `json:"reason"`
	Priority    int       `json:"priority"`
	Tags        []string  `json:"tags"`
	Segments    []Segment `json:"segments"`
}

type Manifest struct {
	RunID  string          `json:"run_id"`
	Input  string          `json:"input"`
	Source ManifestSource  `json:"source"`
	Shorts []ManifestShort `json:"shorts"`
}

type ManifestSource struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"`
}

type ManifestShort struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	File        string  `json:"file,omitempty"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	Title       string  `json:"title"`
	Parts       int     `json:"parts"`
}

// Seconds converts fractional seconds into a time.Duration.
func Seconds(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
