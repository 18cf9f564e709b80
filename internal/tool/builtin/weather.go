package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/tabi/internal/search"
	toolcore "github.com/harunnryd/tabi/internal/tool"
	"github.com/harunnryd/tabi/internal/widget"
)

// ForecastDays is always requested regardless of what the model asks for;
// the widget shows a fixed ten-day strip.
const ForecastDays = 10

func init() {
	toolcore.RegisterBuiltin("getWeather", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &WeatherTool{Search: options.Search, Formatter: options.Formatter}, nil
	})
}

type weatherInput struct {
	Location string `json:"location"`
}

// WeatherTool fetches the forecast for a location.
type WeatherTool struct {
	Search    search.Provider
	Formatter *widget.Formatter
}

func (t *WeatherTool) Name() string { return "getWeather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather and forecast for a location."
}

func (t *WeatherTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Domain:       string(search.DomainWeather),
		Capabilities: []string{"weather.query", "http.get"},
		WidgetKind:   string(widget.KindWeather),
	}
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Location in text format (for example: San Francisco, CA)",
			},
			"days": map[string]interface{}{
				"type":        "integer",
				"description": "Ignored; the full forecast is always returned",
			},
		},
		"required": []string{"location"},
	}
}

// IgnoredArgs lists days: the forecast length is fixed at ForecastDays.
func (t *WeatherTool) IgnoredArgs() []string { return []string{"days"} }

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args weatherInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	res := t.Search.GetWeather(ctx, search.WeatherQuery{Location: args.Location, Days: ForecastDays})
	return t.Formatter.FormatWeather(res.Data, widget.WeatherOptions{Location: args.Location}), nil
}
