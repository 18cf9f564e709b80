package widget

import "strings"

// Kind identifies one of the five widget block types.
type Kind string

const (
	KindFlight     Kind = "FLIGHT"
	KindHotel      Kind = "HOTEL"
	KindPOI        Kind = "POI"
	KindRestaurant Kind = "RESTAURANT"
	KindWeather    Kind = "WEATHER"
)

// Kinds lists every widget kind in a stable order.
var Kinds = []Kind{KindFlight, KindHotel, KindPOI, KindRestaurant, KindWeather}

// Per-response caps.
const (
	MaxFlights      = 6
	MaxHotels       = 9
	MaxPOI          = 9
	MaxRestaurants  = 9
	MaxForecastDays = 10
)

func (k Kind) OpenMarker() string {
	return "[" + string(k) + "_WIDGET]"
}

func (k Kind) CloseMarker() string {
	return "[/" + string(k) + "_WIDGET]"
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind accepts "hotel", "HOTEL" or "HOTEL_WIDGET".
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "_WIDGET"))
	return k, k.Valid()
}

// Block is one widget as reconstructed by the parser.
type Block struct {
	Kind Kind           `json:"kind"`
	Data map[string]any `json:"data"`
}
