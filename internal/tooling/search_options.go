package tooling

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/search"
	"github.com/harunnryd/tabi/internal/search/amadeus"
	"github.com/harunnryd/tabi/internal/search/serpapi"
	"github.com/harunnryd/tabi/internal/search/wttr"
	"github.com/redis/go-redis/v9"
)

// buildSearch assembles the search provider: one backend per configured
// upstream, wrapped in the never-fail adapter and an optional result cache.
func buildSearch(cfg *config.Config) (search.Provider, []func() error, error) {
	p := cfg.Providers
	userAgent := strings.TrimSpace(p.UserAgent)
	if userAgent == "" {
		userAgent = config.DefaultProvidersUserAgent
	}

	var backends search.Backends

	if strings.TrimSpace(p.Amadeus.ClientID) != "" && strings.TrimSpace(p.Amadeus.ClientSecret) != "" {
		timeout, err := config.DurationOrDefault(p.Amadeus.Timeout, config.DefaultAmadeusTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("parse providers.amadeus.timeout: %w", err)
		}
		hc := search.NewHTTPClient(search.HTTPOptions{
			Name:       "amadeus",
			Timeout:    timeout,
			RateLimit:  p.Amadeus.RateLimit,
			Burst:      p.Amadeus.Burst,
			MaxRetries: p.MaxRetries,
			UserAgent:  userAgent,
		})
		tokens := amadeus.NewTokenClient(p.Amadeus.BaseURL, p.Amadeus.ClientID, p.Amadeus.ClientSecret, timeout)
		backends.Flights = amadeus.New(hc, tokens, p.Amadeus.BaseURL, p.Amadeus.Currency)
	} else {
		slog.Warn("Amadeus credentials missing; flight search disabled")
	}

	if strings.TrimSpace(p.SerpAPI.APIKey) != "" {
		timeout, err := config.DurationOrDefault(p.SerpAPI.Timeout, config.DefaultSerpAPITimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("parse providers.serpapi.timeout: %w", err)
		}
		hc := search.NewHTTPClient(search.HTTPOptions{
			Name:       "serpapi",
			Timeout:    timeout,
			RateLimit:  p.SerpAPI.RateLimit,
			Burst:      p.SerpAPI.Burst,
			MaxRetries: p.MaxRetries,
			UserAgent:  userAgent,
		})
		sc := serpapi.New(hc, serpapi.Options{
			BaseURL:  p.SerpAPI.BaseURL,
			APIKey:   p.SerpAPI.APIKey,
			Currency: p.SerpAPI.Currency,
			Language: p.SerpAPI.Language,
			Country:  p.SerpAPI.Country,
		})
		backends.Hotels = sc
		backends.POI = sc
		backends.Restaurants = sc
	} else {
		slog.Warn("SerpAPI key missing; hotel, POI and restaurant search disabled")
	}

	weatherTimeout, err := config.DurationOrDefault(p.Weather.Timeout, config.DefaultWeatherTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("parse providers.weather.timeout: %w", err)
	}
	backends.Weather = wttr.New(search.NewHTTPClient(search.HTTPOptions{
		Name:       "wttr",
		Timeout:    weatherTimeout,
		RateLimit:  p.Weather.RateLimit,
		Burst:      p.Weather.Burst,
		MaxRetries: p.MaxRetries,
		UserAgent:  userAgent,
	}), p.Weather.BaseURL)

	var provider search.Provider = search.NewAdapter(backends)

	ttl, err := config.DurationOrDefault(p.Cache.TTL, config.DefaultCacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse providers.cache.ttl: %w", err)
	}

	var closers []func() error
	switch strings.ToLower(strings.TrimSpace(p.Cache.Backend)) {
	case "none":
		slog.Info("Search cache disabled")
	case "redis":
		addr := strings.TrimSpace(p.Cache.RedisAddr)
		if addr == "" {
			addr = config.DefaultCacheRedisAddr
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: p.Cache.RedisPassword,
			DB:       p.Cache.RedisDB,
		})
		closers = append(closers, client.Close)
		provider = search.NewCachedProvider(provider, search.NewRedisCache(client, ""), ttl)
		slog.Info("Search cache enabled", "backend", "redis", "addr", addr, "ttl", ttl)
	case "", "memory":
		provider = search.NewCachedProvider(provider, search.NewMemoryCache(ttl), ttl)
		slog.Info("Search cache enabled", "backend", "memory", "ttl", ttl)
	default:
		return nil, nil, fmt.Errorf("unknown providers.cache.backend %q", p.Cache.Backend)
	}

	return provider, closers, nil
}
