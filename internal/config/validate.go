package config

import (
	"fmt"
	"strings"

	"github.com/forPelevin/livecut/internal/logging"
	"github.com/forPelevin/livecut/internal/ports/adapters/openai"
	"github.com/forPelevin/livecut/internal/types"
)

// Error reports an unusable configuration value. It is fatal and returned
// before any processing starts.
type Error struct {
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *Error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() *Error{
		c.validateMoments,
		c.validateRender,
		c.validateLLM,
		c.validateTools,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateMoments() *Error {
	if c.Moments.MinDurationSeconds <= 0 {
		return invalid("moments.min_duration_seconds", "must be > 0")
	}
	if c.Moments.MaxShorts <= 0 {
		return invalid("moments.max_shorts", "must be > 0")
	}
	return nil
}

func (c *Config) validateRender() *Error {
	if c.Render.ShortDurationSeconds <= 0 {
		return invalid("render.short_duration_seconds", "must be > 0")
	}
	if c.Moments.MinDurationSeconds > c.Render.ShortDurationSeconds {
		return invalid("render.short_duration_seconds", "must be >= moments.min_duration_seconds (%gs)", c.Moments.MinDurationSeconds)
	}
	if c.Render.Workers <= 0 {
		return invalid("render.workers", "must be > 0")
	}
	if !types.OverlayPosition(c.Render.IndividualOverlay).Valid() {
		return invalid("render.individual_overlay", "unknown position %q (top, bottom, center)", c.Render.IndividualOverlay)
	}
	if !types.OverlayPosition(c.Render.CompilationOverlay).Valid() {
		return invalid("render.compilation_overlay", "unknown position %q (top, bottom, center)", c.Render.CompilationOverlay)
	}
	return nil
}

func (c *Config) validateLLM() *Error {
	if c.LLM.APIKey == "" {
		return invalid("llm.api_key", "is required; set OPENAI_API_KEY (a .env file works)")
	}
	if err := openai.ValidateBaseURL(c.LLM.BaseURL, c.LLM.AllowedHosts); err != nil {
		return &Error{Field: "llm.base_url", Msg: "rejected", Err: err}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid("llm.temperature", "must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return invalid("llm.max_tokens", "must be > 0")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return invalid("llm.timeout_seconds", "must be > 0")
	}
	if c.LLM.MaxRetries < 0 {
		return invalid("llm.max_retries", "must be >= 0")
	}
	return nil
}

func (c *Config) validateTools() *Error {
	required := []struct{ field, value string }{
		{"tools.ffmpeg", c.Tools.FFmpeg},
		{"tools.ffprobe", c.Tools.FFprobe},
		{"tools.whisper_bin", c.Tools.WhisperBin},
		{"tools.whisper_model", c.Tools.WhisperModel},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "must be set")
		}
	}
	return nil
}

func (c *Config) validateLogging() *Error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return &Error{Field: "logging.level", Msg: "invalid", Err: err}
	}
	switch c.Logging.Format {
	case "", "auto", "console", "json":
		return nil
	default:
		return invalid("logging.format", "unknown format %q (auto, console, json)", c.Logging.Format)
	}
}
