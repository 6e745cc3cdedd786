package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/forPelevin/livecut/internal/types"
)

// DecodeResponse parses the model's message content. A missing "moments"
// key yields no moments; entries that do not decode are counted in
// Rejected and skipped.
func DecodeResponse(content string) (types.ModelResponse, error) {
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.ModelResponse{}, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &top); err != nil {
		return types.ModelResponse{}, fmt.Errorf("model response is not a JSON object: %w", err)
	}

	var out types.ModelResponse
	if raw, ok := top["summary"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			out.Summary = strings.TrimSpace(s)
		}
	}

	raw, ok := top["moments"]
	if !ok || string(raw) == "null" {
		return out, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return types.ModelResponse{}, fmt.Errorf("model response: moments is not a list: %w", err)
	}
	out.Moments = make([]types.RawMoment, 0, len(entries))
	for _, e := range entries {
		var m types.RawMoment
		if err := json.Unmarshal(e, &m); err != nil || strings.TrimSpace(string(e)) == "null" {
			out.Rejected++
			continue
		}
		out.Moments = append(out.Moments, m)
	}
	return out, nil
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("model returned empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
