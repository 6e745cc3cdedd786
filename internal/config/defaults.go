package config

const (
	defaultOutDir         = "out"
	defaultCacheDir       = ".cache"
	defaultMinDuration    = 10
	defaultMaxShorts      = 5
	defaultShortDuration  = 60
	defaultWorkers        = 2
	defaultTemperature    = 0.7
	defaultMaxTokens      = 1000
	defaultTimeoutSeconds = 90
	defaultMaxRetries     = 2
	defaultModel          = "gpt-4o-mini"
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultWhisperBin     = "whisper-cli"
	defaultWhisperModel   = ".cache/models/ggml-base.bin"
	defaultYTDLPFormat    = "best[height<=720]/best"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir,
		},
		Moments: Moments{
			MinDurationSeconds: defaultMinDuration,
			MaxShorts:          defaultMaxShorts,
			DefaultTitle:       "Funny moment",
		},
		Render: Render{
			ShortDurationSeconds: defaultShortDuration,
			Workers:              defaultWorkers,
			Individual:           true,
			Compilation:          true,
			IndividualOverlay:    "top",
			CompilationOverlay:   "bottom",
		},
		LLM: LLM{
			BaseURL:        defaultBaseURL,
			Model:          defaultModel,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxRetries:     defaultMaxRetries,
		},
		Tools: Tools{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			YTDLP:        "yt-dlp",
			YTDLPFormat:  defaultYTDLPFormat,
			WhisperBin:   defaultWhisperBin,
			WhisperModel: defaultWhisperModel,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}
