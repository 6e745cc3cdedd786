package config

import "strings"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides config values with the non-empty environment variables
// livecut recognizes.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("OPENAI_API_KEY", &c.LLM.APIKey)
	set("OPENAI_API_BASE", &c.LLM.BaseURL)
	set("OPENAI_MODEL", &c.LLM.Model)
	set("FFMPEG_PATH", &c.Tools.FFmpeg)
	set("FFPROBE_PATH", &c.Tools.FFprobe)
	set("YTDLP_PATH", &c.Tools.YTDLP)
	set("WHISPER_BIN", &c.Tools.WhisperBin)
	set("WHISPER_MODEL", &c.Tools.WhisperModel)

	if v, ok := lookup("OPENAI_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		c.LLM.AllowedHosts = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
