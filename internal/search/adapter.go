package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/metrics"
)

// Backends groups the concrete integrations per domain. Any may be nil.
type Backends struct {
	Flights     FlightBackend
	Hotels      HotelBackend
	POI         POIBackend
	Restaurants RestaurantBackend
	Weather     WeatherBackend
}

// Adapter turns fallible backends into a Provider that never fails: errors,
// panics and missing backends all become an empty result and a log line.
type Adapter struct {
	backends Backends
}

var _ Provider = (*Adapter)(nil)

func NewAdapter(b Backends) *Adapter {
	return &Adapter{backends: b}
}

func (a *Adapter) SearchFlights(ctx context.Context, q FlightQuery) Results[Flight] {
	if a.backends.Flights == nil {
		return unconfigured[Flight](ctx, DomainFlights)
	}
	return guard(ctx, DomainFlights, func() ([]Flight, error) { return a.backends.Flights.SearchFlights(ctx, q) })
}

func (a *Adapter) SearchHotels(ctx context.Context, q HotelQuery) Results[Hotel] {
	if a.backends.Hotels == nil {
		return unconfigured[Hotel](ctx, DomainHotels)
	}
	return guard(ctx, DomainHotels, func() ([]Hotel, error) { return a.backends.Hotels.SearchHotels(ctx, q) })
}

func (a *Adapter) SearchPOI(ctx context.Context, q PlaceQuery) Results[Place] {
	if a.backends.POI == nil {
		return unconfigured[Place](ctx, DomainPOI)
	}
	return guard(ctx, DomainPOI, func() ([]Place, error) { return a.backends.POI.SearchPOI(ctx, q) })
}

func (a *Adapter) SearchRestaurants(ctx context.Context, q PlaceQuery) Results[Restaurant] {
	if a.backends.Restaurants == nil {
		return unconfigured[Restaurant](ctx, DomainRestaurants)
	}
	return guard(ctx, DomainRestaurants, func() ([]Restaurant, error) { return a.backends.Restaurants.SearchRestaurants(ctx, q) })
}

func (a *Adapter) GetWeather(ctx context.Context, q WeatherQuery) Results[WeatherDay] {
	if a.backends.Weather == nil {
		return unconfigured[WeatherDay](ctx, DomainWeather)
	}
	return guard(ctx, DomainWeather, func() ([]WeatherDay, error) { return a.backends.Weather.GetWeather(ctx, q) })
}

func guard[T any](ctx context.Context, domain Domain, call func() ([]T, error)) (res Results[T]) {
	defer func() {
		if r := recover(); r != nil {
			fail(ctx, domain, fmt.Errorf("panic: %v", r))
			res = Empty[T]()
		}
	}()

	data, err := call()
	if err != nil {
		fail(ctx, domain, err)
		return Empty[T]()
	}
	if data == nil {
		data = []T{}
	}
	return Results[T]{Data: data}
}

func fail(ctx context.Context, domain Domain, err error) {
	metrics.ProviderFailures.WithLabelValues(string(domain)).Inc()
	slog.Error("Search provider failed", append([]any{"domain", domain, "error", err}, logger.Attrs(ctx)...)...)
}

func unconfigured[T any](ctx context.Context, domain Domain) Results[T] {
	metrics.ProviderFailures.WithLabelValues(string(domain)).Inc()
	slog.Warn("No search backend configured", append([]any{"domain", domain}, logger.Attrs(ctx)...)...)
	return Empty[T]()
}
