package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ProjectFile is the config file picked up from the working directory.
const ProjectFile = "livecut.toml"

// Paths contains the output and scratch locations.
type Paths struct {
	OutDir   string `toml:"out_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Moments contains candidate normalization and selection settings.
type Moments struct {
	MinDurationSeconds float64 `toml:"min_duration_seconds"`
	MaxShorts          int     `toml:"max_shorts"`
	DefaultTitle       string  `toml:"default_title"`
}

// Render contains output clip settings. ShortDurationSeconds bounds both an
// individual short and the whole compilation.
type Render struct {
	ShortDurationSeconds float64 `toml:"short_duration_seconds"`
	Workers              int     `toml:"workers"`
	Individual           bool    `toml:"individual"`
	Compilation          bool    `toml:"compilation"`
	Captions             bool    `toml:"captions"`
	IndividualOverlay    string  `toml:"individual_overlay"`
	CompilationOverlay   string  `toml:"compilation_overlay"`
	KeepTemp             bool    `toml:"keep_temp"`
}

// LLM contains the OpenAI-compatible endpoint settings.
type LLM struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	AllowedHosts   []string `toml:"allowed_hosts"`
	Model          string   `toml:"model"`
	Temperature    float64  `toml:"temperature"`
	MaxTokens      int      `toml:"max_tokens"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxRetries     int      `toml:"max_retries"`
	PromptFile     string   `toml:"prompt_file"`
}

// Tools contains external binary locations.
type Tools struct {
	FFmpeg          string `toml:"ffmpeg"`
	FFprobe         string `toml:"ffprobe"`
	YTDLP           string `toml:"ytdlp"`
	YTDLPFormat     string `toml:"ytdlp_format"`
	WhisperBin      string `toml:"whisper_bin"`
	WhisperModel    string `toml:"whisper_model"`
	WhisperLanguage string `toml:"whisper_language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for livecut.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Moments Moments `toml:"moments"`
	Render  Render  `toml:"render"`
	LLM     LLM     `toml:"llm"`
	Tools   Tools   `toml:"tools"`
	Logging Logging `toml:"logging"`
}

// Load reads the config file (if any) over the defaults and applies
// environment overrides. It does not validate; flags may still change the
// result. The resolved path and whether it existed are returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		dec := toml.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		projectPath, err := filepath.Abs(ProjectFile)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
		return projectPath, false, nil
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// An explicit path must exist.
			return "", false, fmt.Errorf("config file %s: %w", expanded, err)
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutDir, err = expandPath(strings.TrimSpace(c.Paths.OutDir)); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.LLM.PromptFile, err = expandPath(strings.TrimSpace(c.LLM.PromptFile)); err != nil {
		return fmt.Errorf("llm.prompt_file: %w", err)
	}
	if c.Tools.WhisperModel, err = expandPath(strings.TrimSpace(c.Tools.WhisperModel)); err != nil {
		return fmt.Errorf("tools.whisper_model: %w", err)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	c.Render.IndividualOverlay = strings.ToLower(strings.TrimSpace(c.Render.IndividualOverlay))
	c.Render.CompilationOverlay = strings.ToLower(strings.TrimSpace(c.Render.CompilationOverlay))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

func (c *Config) MinDuration() time.Duration { return seconds(c.Moments.MinDurationSeconds) }

func (c *Config) ShortDuration() time.Duration { return seconds(c.Render.ShortDurationSeconds) }

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules to flag handling.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
