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
	toolcore.RegisterBuiltin("searchPOI", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &POITool{Search: options.Search, Formatter: options.Formatter}, nil
	})
	toolcore.RegisterBuiltin("searchRestaurants", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &RestaurantsTool{Search: options.Search, Formatter: options.Formatter}, nil
	})
}

type placesInput struct {
	Location string `json:"location"`
	Query    string `json:"query"`
	Cuisine  string `json:"cuisine"`
}

// POITool searches attractions and landmarks.
type POITool struct {
	Search    search.Provider
	Formatter *widget.Formatter
}

func (t *POITool) Name() string { return "searchPOI" }

func (t *POITool) Description() string {
	return "Search for points of interest, attractions and things to do in a city."
}

func (t *POITool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Domain:       string(search.DomainPOI),
		Capabilities: []string{"poi.search", "http.get"},
		WidgetKind:   string(widget.KindPOI),
	}
}

func (t *POITool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "City or area to search in",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Optional focus such as museums, parks or nightlife",
			},
		},
		"required": []string{"location"},
	}
}

func (t *POITool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args placesInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	q := search.PlaceQuery{Location: args.Location, Query: args.Query}
	res := t.Search.SearchPOI(ctx, q)
	return t.Formatter.FormatPOI(res.Data, widget.PlaceOptions{Location: q.Location, Query: q.Query}), nil
}

// RestaurantsTool searches restaurants, optionally by cuisine.
type RestaurantsTool struct {
	Search    search.Provider
	Formatter *widget.Formatter
}

func (t *RestaurantsTool) Name() string { return "searchRestaurants" }

func (t *RestaurantsTool) Description() string {
	return "Search for restaurants in a city, optionally filtered by cuisine."
}

func (t *RestaurantsTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Domain:       string(search.DomainRestaurants),
		Capabilities: []string{"restaurants.search", "http.get"},
		WidgetKind:   string(widget.KindRestaurant),
	}
}

func (t *RestaurantsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "City or area to search in",
			},
			"cuisine": map[string]interface{}{
				"type":        "string",
				"description": "Optional cuisine such as sushi, tapas or vegan",
			},
		},
		"required": []string{"location"},
	}
}

func (t *RestaurantsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args placesInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	cuisine := args.Cuisine
	if cuisine == "" {
		cuisine = args.Query
	}
	q := search.PlaceQuery{Location: args.Location, Query: cuisine}
	res := t.Search.SearchRestaurants(ctx, q)
	return t.Formatter.FormatRestaurants(res.Data, widget.PlaceOptions{Location: q.Location, Query: q.Query}), nil
}
