package render

import (
	"fmt"

	"github.com/harunnryd/tabi/internal/widget"

	"gopkg.in/yaml.v3"
)

type YAMLRenderer struct{}

func NewYAMLRenderer() *YAMLRenderer {
	return &YAMLRenderer{}
}

type yamlBlock struct {
	Kind string         `yaml:"kind"`
	Data map[string]any `yaml:"data"`
}

type yamlResult struct {
	Text    string      `yaml:"text,omitempty"`
	Widgets []yamlBlock `yaml:"widgets"`
}

func (r *YAMLRenderer) Render(res widget.ParseResult) (string, error) {
	out := yamlResult{Text: res.RemainingText, Widgets: make([]yamlBlock, 0, len(res.Widgets))}
	for _, w := range res.Widgets {
		out.Widgets = append(out.Widgets, yamlBlock{Kind: string(w.Kind), Data: w.Data})
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal parse result to YAML: %w", err)
	}
	return string(data), nil
}
