package widget

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/harunnryd/tabi/internal/search"
	"github.com/samber/lo"
)

// Fixed replies for empty result sets. None of them contains a widget block.
const (
	NoFlightsText     = "I'm sorry, I couldn't find any flights for that route and date. Please try different dates or nearby airports."
	NoHotelsText      = "I'm sorry, I couldn't find any hotels for that location. Please try a different location or dates."
	NoPOIText         = "I'm sorry, I couldn't find any points of interest for that location. Please try a different location."
	NoRestaurantsText = "I'm sorry, I couldn't find any restaurants for that location. Please try a different location or cuisine."
	NoWeatherText     = "I'm sorry, I couldn't retrieve the weather forecast for that location. Please try again later."
)

// NoHotelsUnderText is returned when a price limit filtered out every hotel.
// The limit is shown in currency, USD when empty.
func NoHotelsUnderText(maxPrice float64, currency, location string) string {
	where := ""
	if strings.TrimSpace(location) != "" {
		where = " in " + strings.TrimSpace(location)
	}
	return fmt.Sprintf("I couldn't find any hotels under %s%s%s. Would you like to see all available options without the price filter?", search.CurrencyPrefix(currency), formatAmount(maxPrice), where)
}

type FlightOptions struct {
	Origin      string
	Destination string
}

type HotelOptions struct {
	Location string
	// MaxPrice, when set, drops hotels whose parsed price exceeds it.
	MaxPrice *float64
	// Currency is the ISO code MaxPrice and the hotel prices are in.
	Currency string
}

type PlaceOptions struct {
	Location string
	Query    string
}

type WeatherOptions struct {
	Location string
}

// Formatter turns normalized search results into widget-block text.
type Formatter struct {
	Defaults Defaults
	Now      func() time.Time
}

func NewFormatter() *Formatter {
	return &Formatter{Defaults: DefaultTable(), Now: time.Now}
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Formatter) FormatFlights(results []search.Flight, opts FlightOptions) string {
	if len(results) == 0 {
		return NoFlightsText
	}
	d := f.Defaults.Flight

	blocks := make([]string, 0, MaxFlights)
	for i, r := range lo.Slice(results, 0, MaxFlights) {
		data := FlightData{
			Airline:         firstNonEmpty(r.Airline, d.Airline),
			FlightNumber:    strings.TrimSpace(r.FlightNumber),
			Price:           firstNonEmpty(r.Price, d.Price),
			Departure:       firstNonEmpty(r.Departure, opts.Origin, d.Departure),
			Arrival:         firstNonEmpty(r.Arrival, opts.Destination, d.Arrival),
			DepartureTime:   firstNonEmpty(r.DepartureTime, d.DepartureTime),
			ArrivalTime:     firstNonEmpty(r.ArrivalTime, d.ArrivalTime),
			Duration:        firstNonEmpty(r.Duration, d.Duration),
			Stops:           max(lo.FromPtrOr(r.Stops, d.Stops), 0),
			BookingLink:     firstNonEmpty(r.BookingLink, d.BookingLink),
			CarbonEmissions: firstNonEmpty(r.CarbonEmissions, d.CarbonEmissions),
		}
		if data.FlightNumber == "" {
			data.FlightNumber = placeholderFlightNumber(data, i)
		}
		blocks = appendBlock(blocks, KindFlight, data)
	}
	return joinOr(blocks, NoFlightsText)
}

func (f *Formatter) FormatHotels(results []search.Hotel, opts HotelOptions) string {
	if opts.MaxPrice != nil {
		limit := *opts.MaxPrice
		filtered := lo.Filter(results, func(h search.Hotel, _ int) bool {
			return ParsePrice(h.Price) <= limit
		})
		if len(results) > 0 && len(filtered) == 0 {
			return NoHotelsUnderText(limit, opts.Currency, opts.Location)
		}
		results = filtered
	}
	if len(results) == 0 {
		return NoHotelsText
	}
	d := f.Defaults.Hotel

	blocks := make([]string, 0, MaxHotels)
	for _, r := range lo.Slice(results, 0, MaxHotels) {
		name := firstNonEmpty(r.Name, d.Name)
		location := firstNonEmpty(r.Location, opts.Location, d.Location)
		address := firstNonEmpty(r.Address, opts.Location, d.Address)
		data := HotelData{
			Name:     name,
			Rating:   clampRating(lo.FromPtrOr(r.Rating, d.Rating)),
			Reviews:  max(lo.FromPtrOr(r.Reviews, d.Reviews), 0),
			Price:    firstNonEmpty(r.Price, d.Price),
			Location: location,
			Link:     firstNonEmpty(r.Link, d.Link),
			Image:    firstNonEmpty(r.Image, f.Defaults.Image(name)),
			MapURL:   firstNonEmpty(r.MapURL, f.Defaults.Map(name, address)),
			Address:  address,
		}
		blocks = appendBlock(blocks, KindHotel, data)
	}
	return joinOr(blocks, NoHotelsText)
}

func (f *Formatter) FormatPOI(results []search.Place, opts PlaceOptions) string {
	if len(results) == 0 {
		return NoPOIText
	}
	d := f.Defaults.POI

	blocks := make([]string, 0, MaxPOI)
	for _, r := range lo.Slice(results, 0, MaxPOI) {
		name := firstNonEmpty(r.Name, d.Name)
		address := firstNonEmpty(r.Address, opts.Location, d.Address)
		data := POIData{
			Name:        name,
			Rating:      clampRating(lo.FromPtrOr(r.Rating, d.Rating)),
			Reviews:     max(lo.FromPtrOr(r.Reviews, d.Reviews), 0),
			Type:        firstNonEmpty(r.Type, d.Type),
			Price:       firstNonEmpty(r.Price, d.Price),
			Address:     address,
			Hours:       firstNonEmpty(r.Hours, d.Hours),
			Image:       firstNonEmpty(r.Image, f.Defaults.Image(name)),
			MapURL:      firstNonEmpty(r.MapURL, f.Defaults.Map(name, address)),
			Description: firstNonEmpty(r.Description, d.Description),
			Website:     firstNonEmpty(r.Website, d.Website),
		}
		blocks = appendBlock(blocks, KindPOI, data)
	}
	return joinOr(blocks, NoPOIText)
}

func (f *Formatter) FormatRestaurants(results []search.Restaurant, opts PlaceOptions) string {
	if len(results) == 0 {
		return NoRestaurantsText
	}
	d := f.Defaults.Restaurant

	blocks := make([]string, 0, MaxRestaurants)
	for _, r := range lo.Slice(results, 0, MaxRestaurants) {
		name := firstNonEmpty(r.Name, d.Name)
		address := firstNonEmpty(r.Address, opts.Location, d.Address)
		data := RestaurantData{
			Name:       name,
			Rating:     clampRating(lo.FromPtrOr(r.Rating, d.Rating)),
			Reviews:    max(lo.FromPtrOr(r.Reviews, d.Reviews), 0),
			Cuisine:    firstNonEmpty(r.Cuisine, titleCase(opts.Query), d.Cuisine),
			PriceLevel: normalizePriceLevel(r.PriceLevel, d.PriceLevel),
			Address:    address,
			Hours:      firstNonEmpty(r.Hours, d.Hours),
			Image:      firstNonEmpty(r.Image, f.Defaults.Image(name)),
			MapURL:     firstNonEmpty(r.MapURL, f.Defaults.Map(name, address)),
			Phone:      firstNonEmpty(r.Phone, d.Phone),
			Website:    firstNonEmpty(r.Website, d.Website),
			DineIn:     lo.FromPtrOr(r.DineIn, d.DineIn),
			Takeout:    lo.FromPtrOr(r.Takeout, d.Takeout),
			Delivery:   lo.FromPtrOr(r.Delivery, d.Delivery),
		}
		blocks = appendBlock(blocks, KindRestaurant, data)
	}
	return joinOr(blocks, NoRestaurantsText)
}

// FormatWeather emits a single WEATHER_WIDGET whose forecast holds at most
// MaxForecastDays entries. Day labels are relative to the formatter clock.
func (f *Formatter) FormatWeather(days []search.WeatherDay, opts WeatherOptions) string {
	if len(days) == 0 {
		return NoWeatherText
	}
	d := f.Defaults.Weather
	now := f.now()

	days = lo.Slice(days, 0, MaxForecastDays)
	forecast := make([]ForecastDay, 0, len(days))
	for i, day := range days {
		condition := firstNonEmpty(day.Condition, d.Condition)
		forecast = append(forecast, ForecastDay{
			Day:           DayLabel(now, i),
			Date:          forecastDate(day.Date, now, i),
			High:          roundTemp(day.High, d.High),
			Low:           roundTemp(day.Low, d.Low),
			Condition:     condition,
			Icon:          WeatherIcon(condition),
			Precipitation: lo.FromPtrOr(day.Precipitation, d.Precipitation),
		})
	}

	today := forecast[0]
	data := WeatherData{
		Location: firstNonEmpty(opts.Location, d.Location),
		Current: CurrentWeather{
			Temp:      today.High,
			Condition: today.Condition,
			Icon:      today.Icon,
			Humidity:  lo.FromPtrOr(days[0].Humidity, d.Humidity),
			WindSpeed: lo.FromPtrOr(days[0].WindSpeed, d.WindSpeed),
		},
		Forecast: forecast,
	}

	blocks := appendBlock(nil, KindWeather, data)
	return joinOr(blocks, NoWeatherText)
}

func appendBlock(blocks []string, k Kind, data any) []string {
	block, err := Encode(k, data)
	if err != nil {
		slog.Error("Dropping widget that failed its schema", "kind", k, "error", err)
		return blocks
	}
	return append(blocks, block)
}

func joinOr(blocks []string, fallback string) string {
	if len(blocks) == 0 {
		return fallback
	}
	return Join(blocks)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func clampRating(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	return math.Min(r, 5)
}

func roundTemp(v *float64, fallback int) int {
	if v == nil || math.IsNaN(*v) {
		return fallback
	}
	return int(math.Round(*v))
}

func forecastDate(date string, now time.Time, offset int) string {
	if t, err := time.Parse(time.DateOnly, strings.TrimSpace(date)); err == nil {
		return t.Format(time.DateOnly)
	}
	return now.AddDate(0, 0, offset).Format(time.DateOnly)
}

// normalizePriceLevel maps "€€", "$$ " or "$$$$$" onto the $..$$$$ scale.
// Anything else (ranges such as "$10–20") falls back.
func normalizePriceLevel(level, fallback string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		return fallback
	}
	runes := []rune(level)
	for _, r := range runes {
		if r != runes[0] || !unicode.Is(unicode.Sc, r) {
			return fallback
		}
	}
	return strings.Repeat("$", min(len(runes), 4))
}

// placeholderFlightNumber synthesizes a stable flight number such as
// "UA482" from the offer's fields when the provider omitted it.
func placeholderFlightNumber(d FlightData, index int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d", d.Airline, d.Departure, d.Arrival, d.DepartureTime, d.Price, index)
	return fmt.Sprintf("%s%d", airlineCode(d.Airline), 100+h.Sum32()%900)
}

func airlineCode(airline string) string {
	words := strings.FieldsFunc(strings.ToUpper(airline), func(r rune) bool {
		return !unicode.IsLetter(r) || r > unicode.MaxASCII
	})
	switch {
	case len(words) >= 2:
		return words[0][:1] + words[1][:1]
	case len(words) == 1 && len(words[0]) >= 2:
		return words[0][:2]
	default:
		return "XX"
	}
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
