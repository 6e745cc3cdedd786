package openai

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompt.yaml
var defaultPromptYAML []byte

// Prompt is a YAML prompt template. Role becomes the system message; Prompt
// is a text/template rendered with PromptVars into the user message.
type Prompt struct {
	Title       string `yaml:"title"`
	Role        string `yaml:"role"`
	Prompt      string `yaml:"prompt"`
	Description string `yaml:"description"`

	tmpl *template.Template
}

type PromptVars struct {
	Transcript string
	MinSeconds int
	MaxSeconds int
}

// LoadPrompt reads a prompt template file, or the built-in one when path is empty.
func LoadPrompt(path string) (*Prompt, error) {
	data := defaultPromptYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load prompt template: %w", err)
		}
		data = b
	}
	return parsePrompt(data)
}

func parsePrompt(data []byte) (*Prompt, error) {
	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	p.Role = strings.TrimSpace(p.Role)
	if strings.TrimSpace(p.Prompt) == "" {
		return nil, errors.New("prompt template: prompt is empty")
	}
	if !strings.Contains(p.Prompt, "{{.Transcript}}") {
		return nil, errors.New("prompt template: prompt must reference {{.Transcript}}")
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(p.Prompt)
	if err != nil {
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	p.tmpl = t
	return &p, nil
}

func (p *Prompt) Render(v PromptVars) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, v); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
