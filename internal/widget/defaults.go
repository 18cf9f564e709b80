package widget

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults is the per-kind fallback table consulted by the Formatter.
type Defaults struct {
	ImageURL   string             `yaml:"image_url"`
	MapURL     string             `yaml:"map_url"`
	Flight     FlightDefaults     `yaml:"flight"`
	Hotel      HotelDefaults      `yaml:"hotel"`
	POI        POIDefaults        `yaml:"poi"`
	Restaurant RestaurantDefaults `yaml:"restaurant"`
	Weather    WeatherDefaults    `yaml:"weather"`
}

type FlightDefaults struct {
	Airline         string `yaml:"airline"`
	Price           string `yaml:"price"`
	Departure       string `yaml:"departure"`
	Arrival         string `yaml:"arrival"`
	DepartureTime   string `yaml:"departure_time"`
	ArrivalTime     string `yaml:"arrival_time"`
	Duration        string `yaml:"duration"`
	Stops           int    `yaml:"stops"`
	BookingLink     string `yaml:"booking_link"`
	CarbonEmissions string `yaml:"carbon_emissions"`
}

type HotelDefaults struct {
	Name     string  `yaml:"name"`
	Rating   float64 `yaml:"rating"`
	Reviews  int     `yaml:"reviews"`
	Price    string  `yaml:"price"`
	Location string  `yaml:"location"`
	Link     string  `yaml:"link"`
	Address  string  `yaml:"address"`
}

type POIDefaults struct {
	Name        string  `yaml:"name"`
	Rating      float64 `yaml:"rating"`
	Reviews     int     `yaml:"reviews"`
	Type        string  `yaml:"type"`
	Price       string  `yaml:"price"`
	Address     string  `yaml:"address"`
	Hours       string  `yaml:"hours"`
	Description string  `yaml:"description"`
	Website     string  `yaml:"website"`
}

type RestaurantDefaults struct {
	Name       string  `yaml:"name"`
	Rating     float64 `yaml:"rating"`
	Reviews    int     `yaml:"reviews"`
	Cuisine    string  `yaml:"cuisine"`
	PriceLevel string  `yaml:"price_level"`
	Address    string  `yaml:"address"`
	Hours      string  `yaml:"hours"`
	Phone      string  `yaml:"phone"`
	Website    string  `yaml:"website"`
	DineIn     bool    `yaml:"dine_in"`
	Takeout    bool    `yaml:"takeout"`
	Delivery   bool    `yaml:"delivery"`
}

type WeatherDefaults struct {
	Location      string `yaml:"location"`
	Condition     string `yaml:"condition"`
	High          int    `yaml:"high"`
	Low           int    `yaml:"low"`
	Precipitation int    `yaml:"precipitation"`
	Humidity      int    `yaml:"humidity"`
	WindSpeed     int    `yaml:"wind_speed"`
}

var (
	builtinOnce     sync.Once
	builtinDefaults Defaults
	builtinErr      error
)

// DefaultTable returns a copy of the embedded default table.
func DefaultTable() Defaults {
	builtinOnce.Do(func() {
		builtinDefaults, builtinErr = ParseDefaults(defaultsYAML)
	})
	if builtinErr != nil {
		// The table is compiled into the binary; failing to decode it is a build defect.
		panic(fmt.Sprintf("widget: embedded defaults: %v", builtinErr))
	}
	return builtinDefaults
}

// ParseDefaults decodes a YAML default table. Keys missing from data keep
// their zero value.
func ParseDefaults(data []byte) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("decode widget defaults: %w", err)
	}
	return d, nil
}

// Image builds the placeholder image URL for a result name.
func (d Defaults) Image(name string) string {
	return strings.ReplaceAll(d.ImageURL, "{name}", url.QueryEscape(name))
}

// Map builds the map-search URL from a name and address.
func (d Defaults) Map(name, address string) string {
	query := strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(address))
	return strings.ReplaceAll(d.MapURL, "{query}", url.QueryEscape(query))
}
