package widget

// Payload structs fix the key order of serialized widget JSON. Every field
// is always present after defaulting.

type FlightData struct {
	Airline         string `json:"airline"`
	FlightNumber    string `json:"flightNumber"`
	Price           string `json:"price"`
	Departure       string `json:"departure"`
	Arrival         string `json:"arrival"`
	DepartureTime   string `json:"departureTime"`
	ArrivalTime     string `json:"arrivalTime"`
	Duration        string `json:"duration"`
	Stops           int    `json:"stops"`
	BookingLink     string `json:"bookingLink"`
	CarbonEmissions string `json:"carbonEmissions"`
}

type HotelData struct {
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
	Price    string  `json:"price"`
	Location string  `json:"location"`
	Link     string  `json:"link"`
	Image    string  `json:"image"`
	MapURL   string  `json:"mapUrl"`
	Address  string  `json:"address"`
}

type POIData struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	Type        string  `json:"type"`
	Price       string  `json:"price"`
	Address     string  `json:"address"`
	Hours       string  `json:"hours"`
	Image       string  `json:"image"`
	MapURL      string  `json:"mapUrl"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
}

type RestaurantData struct {
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Reviews    int     `json:"reviews"`
	Cuisine    string  `json:"cuisine"`
	PriceLevel string  `json:"priceLevel"`
	Address    string  `json:"address"`
	Hours      string  `json:"hours"`
	Image      string  `json:"image"`
	MapURL     string  `json:"mapUrl"`
	Phone      string  `json:"phone"`
	Website    string  `json:"website"`
	DineIn     bool    `json:"dineIn"`
	Takeout    bool    `json:"takeout"`
	Delivery   bool    `json:"delivery"`
}

type WeatherData struct {
	Location string         `json:"location"`
	Current  CurrentWeather `json:"current"`
	Forecast []ForecastDay  `json:"forecast"`
}

type CurrentWeather struct {
	Temp      int    `json:"temp"`
	Condition string `json:"condition"`
	Icon      string `json:"icon"`
	Humidity  int    `json:"humidity"`
	WindSpeed int    `json:"windSpeed"`
}

type ForecastDay struct {
	Day           string `json:"day"`
	Date          string `json:"date"`
	High          int    `json:"high"`
	Low           int    `json:"low"`
	Condition     string `json:"condition"`
	Icon          string `json:"icon"`
	Precipitation int    `json:"precipitation"`
}
