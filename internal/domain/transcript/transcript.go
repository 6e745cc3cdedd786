// Package transcript renders transcripts as plain text for people and for
// the moment model.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/forPelevin/livecut/internal/domain/timecode"
	"github.com/forPelevin/livecut/internal/types"
)

var rule = strings.Repeat("=", 50)

// WriteText writes the transcription.txt layout: one timed line per segment,
// then the full text.
func WriteText(w io.Writer, tr types.Transcript) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "VIDEO TRANSCRIPT\n%s\n\n", rule)
	for _, s := range tr.Segments {
		fmt.Fprintf(bw, "[%s - %s] %s\n", timecode.Format(s.StartDur()), timecode.Format(s.EndDur()), clean(s.Text))
	}
	fmt.Fprintf(bw, "\n%s\nFULL TEXT\n%s\n\n", rule, rule)
	bw.WriteString(FullText(tr))
	bw.WriteString("\n")
	return bw.Flush()
}

// PromptLines renders "[HH:MM:SS] text" lines, one per non-empty segment.
func PromptLines(tr types.Transcript) string {
	var b strings.Builder
	for _, s := range tr.Segments {
		text := clean(s.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", timecode.Format(s.StartDur()), text)
	}
	return b.String()
}

func FullText(tr types.Transcript) string {
	parts := make([]string, 0, len(tr.Segments))
	for _, s := range tr.Segments {
		if t := clean(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Excerpt joins segment texts and cuts the result at limit runes.
func Excerpt(segs []types.Segment, limit int) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := clean(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, " ")
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return text
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
