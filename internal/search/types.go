package search

import "context"

// Domain names one of the five searchable travel domains.
type Domain string

const (
	DomainFlights     Domain = "flights"
	DomainHotels      Domain = "hotels"
	DomainPOI         Domain = "poi"
	DomainRestaurants Domain = "restaurants"
	DomainWeather     Domain = "weather"
)

// Results is the uniform adapter return. An empty Data means "no results",
// whether the provider had no matches or failed.
type Results[T any] struct {
	Data []T `json:"data"`
}

// Empty returns a result set with a non-nil, zero-length Data slice.
func Empty[T any]() Results[T] {
	return Results[T]{Data: []T{}}
}

// Flight is a normalized flight offer. Empty strings and nil pointers mean
// the provider did not supply the field.
type Flight struct {
	Airline         string `json:"airline,omitempty"`
	FlightNumber    string `json:"flightNumber,omitempty"`
	Price           string `json:"price,omitempty"`
	Departure       string `json:"departure,omitempty"`
	Arrival         string `json:"arrival,omitempty"`
	DepartureTime   string `json:"departureTime,omitempty"`
	ArrivalTime     string `json:"arrivalTime,omitempty"`
	Duration        string `json:"duration,omitempty"`
	Stops           *int   `json:"stops,omitempty"`
	BookingLink     string `json:"bookingLink,omitempty"`
	CarbonEmissions string `json:"carbonEmissions,omitempty"`
}

type Hotel struct {
	Name     string   `json:"name,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Reviews  *int     `json:"reviews,omitempty"`
	Price    string   `json:"price,omitempty"`
	Location string   `json:"location,omitempty"`
	Link     string   `json:"link,omitempty"`
	Image    string   `json:"image,omitempty"`
	MapURL   string   `json:"mapUrl,omitempty"`
	Address  string   `json:"address,omitempty"`
}

// Place is a point of interest.
type Place struct {
	Name        string   `json:"name,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Reviews     *int     `json:"reviews,omitempty"`
	Type        string   `json:"type,omitempty"`
	Price       string   `json:"price,omitempty"`
	Address     string   `json:"address,omitempty"`
	Hours       string   `json:"hours,omitempty"`
	Image       string   `json:"image,omitempty"`
	MapURL      string   `json:"mapUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	Website     string   `json:"website,omitempty"`
}

type Restaurant struct {
	Name       string   `json:"name,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Reviews    *int     `json:"reviews,omitempty"`
	Cuisine    string   `json:"cuisine,omitempty"`
	PriceLevel string   `json:"priceLevel,omitempty"`
	Address    string   `json:"address,omitempty"`
	Hours      string   `json:"hours,omitempty"`
	Image      string   `json:"image,omitempty"`
	MapURL     string   `json:"mapUrl,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Website    string   `json:"website,omitempty"`
	DineIn     *bool    `json:"dineIn,omitempty"`
	Takeout    *bool    `json:"takeout,omitempty"`
	Delivery   *bool    `json:"delivery,omitempty"`
}

// WeatherDay is one forecast day. Humidity and WindSpeed carry live
// current-condition data and are only set on the first day.
type WeatherDay struct {
	Date          string   `json:"date,omitempty"`
	High          *float64 `json:"high,omitempty"`
	Low           *float64 `json:"low,omitempty"`
	Condition     string   `json:"condition,omitempty"`
	Precipitation *int     `json:"precipitation,omitempty"`
	Humidity      *int     `json:"humidity,omitempty"`
	WindSpeed     *int     `json:"windSpeed,omitempty"`
}

type FlightQuery struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	Adults        int    `json:"adults,omitempty"`
	TravelClass   string `json:"travelClass,omitempty"`
	NonStop       bool   `json:"nonStop,omitempty"`
}

type HotelQuery struct {
	Location string   `json:"location"`
	CheckIn  string   `json:"checkIn,omitempty"`
	CheckOut string   `json:"checkOut,omitempty"`
	Adults   int      `json:"adults,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// PlaceQuery serves both POI and restaurant searches. Query narrows the
// search ("museums", "sushi").
type PlaceQuery struct {
	Location string `json:"location"`
	Query    string `json:"query,omitempty"`
}

type WeatherQuery struct {
	Location string `json:"location"`
	Days     int    `json:"days"`
}

// Provider is the never-fail search capability consumed by the travel tools.
// Implementations absorb every upstream failure into an empty result.
type Provider interface {
	SearchFlights(ctx context.Context, q FlightQuery) Results[Flight]
	SearchHotels(ctx context.Context, q HotelQuery) Results[Hotel]
	SearchPOI(ctx context.Context, q PlaceQuery) Results[Place]
	SearchRestaurants(ctx context.Context, q PlaceQuery) Results[Restaurant]
	GetWeather(ctx context.Context, q WeatherQuery) Results[WeatherDay]
}

// Fallible backends. Concrete provider integrations implement one or more
// of these and are wrapped by Adapter.

type FlightBackend interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]Flight, error)
}

type HotelBackend interface {
	SearchHotels(ctx context.Context, q HotelQuery) ([]Hotel, error)
}

type POIBackend interface {
	SearchPOI(ctx context.Context, q PlaceQuery) ([]Place, error)
}

type RestaurantBackend interface {
	SearchRestaurants(ctx context.Context, q PlaceQuery) ([]Restaurant, error)
}

type WeatherBackend interface {
	GetWeather(ctx context.Context, q WeatherQuery) ([]WeatherDay, error)
}

// Ptr returns a pointer to v. Handy when building optional fields.
func Ptr[T any](v T) *T {
	return &v
}
