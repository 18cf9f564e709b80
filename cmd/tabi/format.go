package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/tabi/internal/search"
	"github.com/harunnryd/tabi/internal/widget"
	"github.com/harunnryd/tabi/internal/widget/render"

	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format <kind> <results.json>",
	Short: "Format saved search results as widget blocks",
	Long: `Runs the widget formatter offline over a JSON array of normalized search results.
Kinds: flights, hotels, poi, restaurants, weather.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read results: %w", err)
		}

		opts := formatOptions{}
		opts.location, _ = cmd.Flags().GetString("location")
		opts.origin, _ = cmd.Flags().GetString("origin")
		opts.destination, _ = cmd.Flags().GetString("destination")
		opts.query, _ = cmd.Flags().GetString("query")
		opts.currency, _ = cmd.Flags().GetString("currency")
		if cmd.Flags().Changed("max-price") {
			maxPrice, _ := cmd.Flags().GetFloat64("max-price")
			opts.maxPrice = &maxPrice
		}

		text, err := formatResults(widget.NewFormatter(), args[0], data, opts)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" || output == "raw" {
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}
		format, err := render.ParseOutputFormat(output)
		if err != nil {
			return err
		}
		renderer, err := render.New(format)
		if err != nil {
			return err
		}
		rendered, err := renderer.Render(widget.Parse(text))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

type formatOptions struct {
	location    string
	origin      string
	destination string
	query       string
	maxPrice    *float64
	currency    string
}

func formatResults(f *widget.Formatter, kind string, data []byte, opts formatOptions) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "flights", "flight":
		var results []search.Flight
		if err := json.Unmarshal(data, &results); err != nil {
			return "", fmt.Errorf("decode flights: %w", err)
		}
		return f.FormatFlights(results, widget.FlightOptions{Origin: opts.origin, Destination: opts.destination}), nil
	case "hotels", "hotel":
		var results []search.Hotel
		if err := json.Unmarshal(data, &results); err != nil {
			return "", fmt.Errorf("decode hotels: %w", err)
		}
		return f.FormatHotels(results, widget.HotelOptions{Location: opts.location, MaxPrice: opts.maxPrice, Currency: opts.currency}), nil
	case "poi", "places":
		var results []search.Place
		if err := json.Unmarshal(data, &results); err != nil {
			return "", fmt.Errorf("decode places: %w", err)
		}
		return f.FormatPOI(results, widget.PlaceOptions{Location: opts.location, Query: opts.query}), nil
	case "restaurants", "restaurant":
		var results []search.Restaurant
		if err := json.Unmarshal(data, &results); err != nil {
			return "", fmt.Errorf("decode restaurants: %w", err)
		}
		return f.FormatRestaurants(results, widget.PlaceOptions{Location: opts.location, Query: opts.query}), nil
	case "weather":
		var results []search.WeatherDay
		if err := json.Unmarshal(data, &results); err != nil {
			return "", fmt.Errorf("decode weather: %w", err)
		}
		return f.FormatWeather(results, widget.WeatherOptions{Location: opts.location}), nil
	default:
		return "", fmt.Errorf("unknown kind %q (want flights, hotels, poi, restaurants or weather)", kind)
	}
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().String("location", "", "location shown in headings and apologies")
	formatCmd.Flags().String("origin", "", "flight origin code")
	formatCmd.Flags().String("destination", "", "flight destination code")
	formatCmd.Flags().String("query", "", "place query")
	formatCmd.Flags().Float64("max-price", 0, "hotel price ceiling")
	formatCmd.Flags().String("currency", "USD", "currency of hotel prices and --max-price")
	formatCmd.Flags().StringP("output", "o", "raw", "output (raw, plain, terminal, json, yaml)")
}
