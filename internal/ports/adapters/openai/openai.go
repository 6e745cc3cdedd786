package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/forPelevin/livecut/internal/domain/transcript"
	"github.com/forPelevin/livecut/internal/types"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	defaultTimeout = 90 * time.Second
)

type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	AllowedHosts []string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	PromptFile   string
	// Duration hints rendered into the prompt.
	MinSeconds int
	MaxSeconds int

	HTTPClient *http.Client
}

type Adapter struct {
	client  openaisdk.Client
	cfg     Config
	prompt  *Prompt
	timeout time.Duration
}

func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	baseURL, err := ResolveBaseURL(cfg.BaseURL, cfg.AllowedHosts)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = baseURL
	prompt, err := LoadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL + "/"),
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if strings.Contains(cfg.BaseURL, "openrouter.ai") {
		opts = append(opts,
			option.WithHeader("HTTP-Referer", "https://github.com/forPelevin/livecut"),
			option.WithHeader("X-Title", "livecut"),
		)
	}
	return &Adapter{
		client:  openaisdk.NewClient(opts...),
		cfg:     cfg,
		prompt:  prompt,
		timeout: cfg.Timeout,
	}, nil
}

func (a *Adapter) IdentifyMoments(ctx context.Context, tr types.Transcript) (types.ModelResponse, error) {
	lines := transcript.PromptLines(tr)
	if lines == "" {
		return types.ModelResponse{}, errors.New("openai: transcript is empty")
	}
	user, err := a.prompt.Render(PromptVars{
		Transcript: lines,
		MinSeconds: a.cfg.MinSeconds,
		MaxSeconds: a.cfg.MaxSeconds,
	})
	if err != nil {
		return types.ModelResponse{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if a.prompt.Role != "" {
		msgs = append(msgs, openaisdk.SystemMessage(a.prompt.Role))
	}
	msgs = append(msgs, openaisdk.UserMessage(user))

	resp, err := a.client.Chat.Completions.New(reqCtx, openaisdk.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       a.cfg.Model,
		Temperature: openaisdk.Float(a.cfg.Temperature),
		MaxTokens:   openaisdk.Int(int64(a.cfg.MaxTokens)),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return types.ModelResponse{}, fmt.Errorf("openai timeout after %s (model=%s)", a.timeout, a.cfg.Model)
		}
		if ctx.Err() != nil {
			return types.ModelResponse{}, ctx.Err()
		}
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return types.ModelResponse{}, fmt.Errorf("openai status %d: %s", apiErr.StatusCode, truncate(redactSecrets(apiErr.Error(), a.cfg.APIKey), 400))
		}
		return types.ModelResponse{}, fmt.Errorf("openai request: %s", truncate(redactSecrets(err.Error(), a.cfg.APIKey), 400))
	}
	if len(resp.Choices) == 0 {
		return types.ModelResponse{}, errors.New("openai: response has no choices")
	}
	return DecodeResponse(resp.Choices[0].Message.Content)
}
