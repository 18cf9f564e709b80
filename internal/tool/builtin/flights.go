package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/tabi/internal/search"
	toolcore "github.com/harunnryd/tabi/internal/tool"
	"github.com/harunnryd/tabi/internal/widget"
)

func init() {
	toolcore.RegisterBuiltin("searchFlights", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &FlightsTool{Search: options.Search, Formatter: options.Formatter}, nil
	})
}

type flightsInput struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate"`
	Adults        int    `json:"adults"`
	TravelClass   string `json:"travelClass"`
	NonStop       bool   `json:"nonStop"`
}

// FlightsTool searches flight offers between two airports.
type FlightsTool struct {
	Search    search.Provider
	Formatter *widget.Formatter
}

func (t *FlightsTool) Name() string { return "searchFlights" }

func (t *FlightsTool) Description() string {
	return "Search for flights between two airports on a given date. Use IATA airport codes (e.g. JFK, LHR)."
}

func (t *FlightsTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Domain:       string(search.DomainFlights),
		Capabilities: []string{"flights.search", "http.get"},
		WidgetKind:   string(widget.KindFlight),
	}
}

func (t *FlightsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"origin": map[string]interface{}{
				"type":        "string",
				"description": "Departure airport IATA code (e.g. SFO)",
			},
			"destination": map[string]interface{}{
				"type":        "string",
				"description": "Arrival airport IATA code (e.g. NRT)",
			},
			"departureDate": map[string]interface{}{
				"type":        "string",
				"description": "Departure date in YYYY-MM-DD format",
			},
			"returnDate": map[string]interface{}{
				"type":        "string",
				"description": "Optional return date in YYYY-MM-DD format",
			},
			"adults": map[string]interface{}{
				"type":        "integer",
				"description": "Number of adult passengers (default 1)",
				"minimum":     1,
			},
			"travelClass": map[string]interface{}{
				"type":        "string",
				"description": "Optional cabin: ECONOMY, PREMIUM_ECONOMY, BUSINESS or FIRST",
			},
			"nonStop": map[string]interface{}{
				"type":        "boolean",
				"description": "Only return direct flights",
			},
		},
		"required": []string{"origin", "destination", "departureDate"},
	}
}

func (t *FlightsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args flightsInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	res := t.Search.SearchFlights(ctx, search.FlightQuery{
		Origin:        args.Origin,
		Destination:   args.Destination,
		DepartureDate: args.DepartureDate,
		ReturnDate:    args.ReturnDate,
		Adults:        args.Adults,
		TravelClass:   args.TravelClass,
		NonStop:       args.NonStop,
	})
	return t.Formatter.FormatFlights(res.Data, widget.FlightOptions{
		Origin:      args.Origin,
		Destination: args.Destination,
	}), nil
}
