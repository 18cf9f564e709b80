package render

import (
	"fmt"
	"strings"

	"github.com/harunnryd/tabi/internal/widget"
)

type OutputFormat string

const (
	OutputFormatPlain    OutputFormat = "plain"
	OutputFormatTerminal OutputFormat = "terminal"
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatYAML     OutputFormat = "yaml"
)

// Renderer turns a parsed assistant message into text for a client that
// cannot display widget cards.
type Renderer interface {
	Render(widget.ParseResult) (string, error)
}

func New(format OutputFormat) (Renderer, error) {
	switch format {
	case OutputFormatPlain:
		return NewPlainRenderer(), nil
	case OutputFormatTerminal:
		return NewTerminalRenderer(), nil
	case OutputFormatJSON:
		return NewJSONRenderer(), nil
	case OutputFormatYAML:
		return NewYAMLRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: plain, terminal, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatPlain, OutputFormatTerminal, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: plain, terminal, json, yaml)", s)
	}
}

// Plain parses text and renders it with the plain renderer.
func Plain(text string) string {
	out, _ := NewPlainRenderer().Render(widget.Parse(text))
	return out
}

// Terminal parses text and renders it with lipgloss tables.
func Terminal(text string) string {
	out, _ := NewTerminalRenderer().Render(widget.Parse(text))
	return out
}
