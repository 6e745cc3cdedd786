package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/livecut/internal/types"
)

// Output canvas for 9:16 renders.
const (
	outW = 1080
	outH = 1920
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) RenderClip(ctx context.Context, inPath string, plan types.RenderPlan, outMP4, burnASS string) error {
	args, err := renderArgs(inPath, plan, outMP4, burnASS)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, string(b))
	}
	return nil
}

func renderArgs(inPath string, plan types.RenderPlan, outMP4, burnASS string) ([]string, error) {
	if plan.OutputDuration <= 0 {
		return nil, errors.New("render plan has no output duration")
	}
	if plan.TargetAspect != types.Vertical {
		return nil, fmt.Errorf("unsupported target aspect %d:%d", plan.TargetAspect.W, plan.TargetAspect.H)
	}
	return []string{
		"-y",
		"-ss", fmtSeconds(plan.SourceStart),
		"-i", inPath,
		"-t", fmtSeconds(plan.OutputDuration),
		"-vf", videoFilter(burnASS),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		outMP4,
	}, nil
}

// videoFilter scales to cover the canvas and center-crops the overflow.
func videoFilter(burnASS string) string {
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1", outW, outH, outW, outH)
	if burnASS != "" {
		vf += ",subtitles=" + escapeFilterPath(burnASS)
	}
	return vf
}

// Concat joins parts with the concat demuxer. Parts share codec settings so
// streams are copied.
func (a *Adapter) Concat(ctx context.Context, parts []string, outMP4 string) error {
	if len(parts) == 0 {
		return errors.New("ffmpeg concat: no parts")
	}
	list, err := os.CreateTemp("", "livecut-concat-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())
	if _, err := list.WriteString(concatList(parts)); err != nil {
		list.Close()
		return err
	}
	if err := list.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		"-movflags", "+faststart",
		"-f", "mp4",
		outMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func concatList(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func (a *Adapter) Probe(ctx context.Context, inPath string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", inPath,
	)
	b, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(b)
}

func parseProbe(b []byte) (types.MediaInfo, error) {
	var r probeResult
	if err := json.Unmarshal(b, &r); err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	s := strings.TrimSpace(r.Format.Duration)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	info := types.MediaInfo{
		Duration: types.Seconds(sec),
		Format:   r.Format.FormatName,
	}
	for _, st := range r.Streams {
		if strings.EqualFold(st.CodecType, "video") {
			info.Width, info.Height = st.Width, st.Height
			break
		}
	}
	return info, nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
