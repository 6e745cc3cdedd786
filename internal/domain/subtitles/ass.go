package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

// Canvas matches the 9:16 render output.
const (
	CanvasW = 1080
	CanvasH = 1920
)

// RenderOverlayASS builds the subtitle file burned into one clip: the title
// card at the plan's overlay position for the whole clip and, when captions
// is set, the transcript words spoken inside the clip window. Event times are
// clip-local.
func RenderOverlayASS(plan types.RenderPlan, tr types.Transcript, captions bool) (string, error) {
	if plan.OutputDuration <= 0 {
		return "", fmt.Errorf("render plan has no output duration")
	}
	if !plan.OverlayPosition.Valid() && plan.OverlayText != "" {
		return "", fmt.Errorf("unknown overlay position %q", plan.OverlayPosition)
	}

	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	if title := sanitizeASS(plan.OverlayText); title != "" {
		fmt.Fprintf(&b, "Dialogue: 1,%s,%s,%s,,0,0,0,,%s\n",
			assTime(0), assTime(plan.OutputDuration), titleStyle(plan.OverlayPosition), title)
	}

	if captions {
		start := plan.SourceStart
		end := plan.SourceStart + plan.OutputDuration
		words := collectWords(tr, start, end)
		if len(words) > 0 {
			for _, ln := range packWords(words) {
				b.WriteString("Dialogue: 0,")
				b.WriteString(assTime(ln.Start))
				b.WriteString(",")
				b.WriteString(assTime(ln.End))
				b.WriteString(",")
				b.WriteString(captionStyle(plan.OverlayPosition))
				b.WriteString(",,0,0,0,,")
				for _, w := range ln.Words {
					cs := int((w.End - w.Start) / (10 * time.Millisecond))
					if cs < 1 {
						cs = 1
					}
					fmt.Fprintf(&b, "{\\k%d}%s ", cs, w.Text)
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}

func titleStyle(p types.OverlayPosition) string {
	switch p {
	case types.OverlayBottom:
		return "TitleBottom"
	case types.OverlayCenter:
		return "TitleCenter"
	default:
		return "TitleTop"
	}
}

// Captions sit above a bottom title and in the lower third otherwise.
func captionStyle(p types.OverlayPosition) string {
	if p == types.OverlayBottom {
		return "CaptionRaised"
	}
	return "Caption"
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

// collectWords spreads each segment's duration evenly over its words, since
// the transcript carries segment timing only.
func collectWords(tr types.Transcript, start, end time.Duration) []wword {
	var out []wword
	for _, s := range tr.Segments {
		ss, se := s.StartDur(), s.EndDur()
		if se <= start || ss >= end || se <= ss {
			continue
		}
		fields := strings.Fields(s.Text)
		if len(fields) == 0 {
			continue
		}
		step := (se - ss) / time.Duration(len(fields))
		for i, f := range fields {
			ws := ss + time.Duration(i)*step
			we := ws + step
			if we <= start || ws >= end {
				continue
			}
			if ws < start {
				ws = start
			}
			if we > end {
				we = end
			}
			text := sanitizeASS(f)
			if text == "" {
				continue
			}
			out = append(out, wword{Start: ws - start, End: we - start, Text: text})
		}
	}
	return out
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	// Narrow canvas: short lines.
	charBudget := 28
	wordBudget := 6
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func assHeader() string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: TitleTop, Inter, 72, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,8, 60,60,140,1
Style: TitleBottom, Inter, 72, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 60,60,140,1
Style: TitleCenter, Inter, 72, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,5, 60,60,0,1
Style: Caption, Inter, 64, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 80,80,420,1
Style: CaptionRaised, Inter, 64, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 80,80,640,1
`, CanvasW, CanvasH))
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// HasEvents reports whether an overlay script would draw anything.
func HasEvents(ass string) bool {
	return strings.Contains(ass, "\nDialogue: ")
}
