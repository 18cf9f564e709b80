package wttr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/tabi/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "current_condition": [{"temp_C": "21", "humidity": "48", "windspeedKmph": "14", "weatherDesc": [{"value": "Sunny"}]}],
  "weather": [
    {"date": "2026-02-27", "maxtempC": "24", "mintempC": "15", "hourly": [
      {"time": "0", "chanceofrain": "0", "chanceofsnow": "0", "weatherDesc": [{"value": "Clear"}]},
      {"time": "1200", "chanceofrain": "10", "chanceofsnow": "0", "weatherDesc": [{"value": "Sunny"}]}
    ]},
    {"date": "2026-02-28", "maxtempC": "19", "mintempC": "12", "hourly": [
      {"time": "0", "chanceofrain": "40", "chanceofsnow": "0", "weatherDesc": [{"value": "Cloudy"}]},
      {"time": "1200", "chanceofrain": "85", "chanceofsnow": "0", "weatherDesc": [{"value": "Light rain shower"}]}
    ]},
    {"date": "2026-03-01", "maxtempC": "17", "mintempC": "10", "hourly": [
      {"time": "0", "chanceofrain": "5", "chanceofsnow": "0", "weatherDesc": [{"value": "Overcast"}]}
    ]}
  ]
}`

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(search.NewHTTPClient(search.HTTPOptions{Name: "wttr"}), srv.URL)
}

func TestGetWeather(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "j1", r.URL.Query().Get("format"))
		assert.Equal(t, "/San Francisco, CA", r.URL.Path)
		_, _ = io.WriteString(w, fixture)
	})

	days, err := c.GetWeather(context.Background(), search.WeatherQuery{Location: "San Francisco, CA", Days: 10})
	require.NoError(t, err)
	require.Len(t, days, 3)

	today := days[0]
	assert.Equal(t, "2026-02-27", today.Date)
	assert.Equal(t, 24.0, *today.High)
	assert.Equal(t, 15.0, *today.Low)
	assert.Equal(t, "Sunny", today.Condition)
	assert.Equal(t, 10, *today.Precipitation)
	assert.Equal(t, 48, *today.Humidity)
	assert.Equal(t, 14, *today.WindSpeed)

	assert.Equal(t, "Light rain shower", days[1].Condition)
	assert.Equal(t, 85, *days[1].Precipitation)
	assert.Nil(t, days[1].Humidity)
	assert.Equal(t, "Overcast", days[2].Condition)
}

func TestGetWeather_TruncatesToDays(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, fixture)
	})

	days, err := c.GetWeather(context.Background(), search.WeatherQuery{Location: "Tokyo", Days: 2})
	require.NoError(t, err)
	assert.Len(t, days, 2)
}

func TestGetWeather_Errors(t *testing.T) {
	t.Run("missing location", func(t *testing.T) {
		c := New(search.NewHTTPClient(search.HTTPOptions{Name: "wttr"}), "")
		_, err := c.GetWeather(context.Background(), search.WeatherQuery{})
		assert.Error(t, err)
	})

	t.Run("empty forecast", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"current_condition": [], "weather": []}`)
		})
		_, err := c.GetWeather(context.Background(), search.WeatherQuery{Location: "Nowhere"})
		assert.Error(t, err)
	})

	t.Run("upstream failure", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unknown location", http.StatusNotFound)
		})
		_, err := c.GetWeather(context.Background(), search.WeatherQuery{Location: "Nowhere"})
		assert.Error(t, err)
	})
}

func TestGetWeather_ThroughAdapterNeverFails(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})
	res := search.NewAdapter(search.Backends{Weather: c}).GetWeather(context.Background(), search.WeatherQuery{Location: "Paris", Days: 10})
	require.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}
