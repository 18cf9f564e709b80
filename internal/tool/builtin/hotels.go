package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/tabi/internal/search"
	toolcore "github.com/harunnryd/tabi/internal/tool"
	"github.com/harunnryd/tabi/internal/widget"
)

func init() {
	toolcore.RegisterBuiltin("searchHotels", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &HotelsTool{Search: options.Search, Formatter: options.Formatter, Currency: options.HotelCurrency}, nil
	})
}

type hotelsInput struct {
	Location string   `json:"location"`
	CheckIn  string   `json:"checkIn"`
	CheckOut string   `json:"checkOut"`
	Adults   int      `json:"adults"`
	MaxPrice *float64 `json:"maxPrice"`
}

// HotelsTool searches hotels and applies the optional nightly price limit.
type HotelsTool struct {
	Search    search.Provider
	Formatter *widget.Formatter
	// Currency of maxPrice and of the returned prices; empty means USD.
	Currency string
}

func (t *HotelsTool) Name() string { return "searchHotels" }

func (t *HotelsTool) Description() string {
	return "Search for hotels in a city. Pass maxPrice when the user gives a nightly budget."
}

func (t *HotelsTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Domain:       string(search.DomainHotels),
		Capabilities: []string{"hotels.search", "http.get"},
		WidgetKind:   string(widget.KindHotel),
	}
}

func (t *HotelsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "City or area (e.g. Lisbon, Portugal)",
			},
			"checkIn": map[string]interface{}{
				"type":        "string",
				"description": "Optional check-in date in YYYY-MM-DD format",
			},
			"checkOut": map[string]interface{}{
				"type":        "string",
				"description": "Optional check-out date in YYYY-MM-DD format",
			},
			"adults": map[string]interface{}{
				"type":        "integer",
				"description": "Number of adult guests (default 1)",
				"minimum":     1,
			},
			"maxPrice": map[string]interface{}{
				"type":        "number",
				"description": "Optional maximum price per night in " + t.currency(),
				"minimum":     0,
			},
		},
		"required": []string{"location"},
	}
}

func (t *HotelsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args hotelsInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	res := t.Search.SearchHotels(ctx, search.HotelQuery{
		Location: args.Location,
		CheckIn:  args.CheckIn,
		CheckOut: args.CheckOut,
		Adults:   args.Adults,
		MaxPrice: args.MaxPrice,
	})
	return t.Formatter.FormatHotels(res.Data, widget.HotelOptions{
		Location: args.Location,
		MaxPrice: args.MaxPrice,
		Currency: t.currency(),
	}), nil
}

func (t *HotelsTool) currency() string {
	if c := strings.ToUpper(strings.TrimSpace(t.Currency)); c != "" {
		return c
	}
	return "USD"
}
