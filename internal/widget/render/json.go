package render

import (
	"encoding/json"
	"fmt"

	"github.com/harunnryd/tabi/internal/widget"
)

type JSONRenderer struct {
	indent string
}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{indent: "  "}
}

func (r *JSONRenderer) Render(res widget.ParseResult) (string, error) {
	if res.Widgets == nil {
		res.Widgets = []widget.Block{}
	}
	data, err := json.MarshalIndent(res, "", r.indent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal parse result to JSON: %w", err)
	}
	return string(data), nil
}
