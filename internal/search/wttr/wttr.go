// Package wttr is the weather backend backed by wttr.in's j1 JSON format.
package wttr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/search"
)

const DefaultBaseURL = "https://wttr.in"

type namedValue struct {
	Value string `json:"value"`
}

type currentCondition struct {
	TempC         string       `json:"temp_C"`
	WeatherDesc   []namedValue `json:"weatherDesc"`
	Humidity      string       `json:"humidity"`
	WindspeedKmph string       `json:"windspeedKmph"`
}

type hourly struct {
	Time         string       `json:"time"`
	WeatherDesc  []namedValue `json:"weatherDesc"`
	ChanceOfRain string       `json:"chanceofrain"`
	ChanceOfSnow string       `json:"chanceofsnow"`
}

type weatherDay struct {
	Date     string   `json:"date"`
	MaxTempC string   `json:"maxtempC"`
	MinTempC string   `json:"mintempC"`
	Hourly   []hourly `json:"hourly"`
}

type response struct {
	CurrentCondition []currentCondition `json:"current_condition"`
	Weather          []weatherDay       `json:"weather"`
}

// Client implements search.WeatherBackend. wttr.in forecasts at most three
// days, so longer requests return what is available.
type Client struct {
	HTTP    *search.HTTPClient
	BaseURL string
}

func New(hc *search.HTTPClient, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{HTTP: hc, BaseURL: baseURL}
}

func (c *Client) GetWeather(ctx context.Context, q search.WeatherQuery) ([]search.WeatherDay, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return nil, tabiErrors.InvalidInput("location is required")
	}

	endpoint, err := endpoint(c.BaseURL, location)
	if err != nil {
		return nil, err
	}

	var payload response
	if err := c.HTTP.GetJSON(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Weather) == 0 {
		return nil, tabiErrors.MalformedPayload("weather response has no forecast")
	}

	days := payload.Weather
	if q.Days > 0 && len(days) > q.Days {
		days = days[:q.Days]
	}

	out := make([]search.WeatherDay, 0, len(days))
	for _, d := range days {
		out = append(out, search.WeatherDay{
			Date:          strings.TrimSpace(d.Date),
			High:          parseFloat(d.MaxTempC),
			Low:           parseFloat(d.MinTempC),
			Condition:     middayCondition(d.Hourly),
			Precipitation: maxChance(d.Hourly),
		})
	}

	if len(payload.CurrentCondition) > 0 {
		cur := payload.CurrentCondition[0]
		out[0].Humidity = parseInt(cur.Humidity)
		out[0].WindSpeed = parseInt(cur.WindspeedKmph)
		if desc := firstNamedValue(cur.WeatherDesc); desc != "" {
			out[0].Condition = desc
		}
	}
	return out, nil
}

func endpoint(baseURL string, location string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid weather endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid weather endpoint %q", baseURL)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + location
	q := parsed.Query()
	q.Set("format", "j1")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// middayCondition picks the 12:00 slot, falling back to the first one.
func middayCondition(hours []hourly) string {
	for _, h := range hours {
		if strings.TrimSpace(h.Time) == "1200" {
			return firstNamedValue(h.WeatherDesc)
		}
	}
	if len(hours) == 0 {
		return ""
	}
	return firstNamedValue(hours[0].WeatherDesc)
}

func maxChance(hours []hourly) *int {
	var best *int
	for _, h := range hours {
		for _, raw := range []string{h.ChanceOfRain, h.ChanceOfSnow} {
			if v := parseInt(raw); v != nil && (best == nil || *v > *best) {
				best = v
			}
		}
	}
	return best
}

func firstNamedValue(values []namedValue) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
