package tooling

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/search"
	"github.com/harunnryd/tabi/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistersTravelTools(t *testing.T) {
	components, err := Build(&config.Config{})
	require.NoError(t, err)
	defer components.Close()

	for _, name := range []string{"searchFlights", "searchHotels", "searchPOI", "searchRestaurants", "getWeather"} {
		_, ok := components.Registry.Get(name)
		assert.True(t, ok, "expected %q to be registered", name)
	}
	assert.Len(t, components.Dispatcher.Definitions(), 5)
}

func TestBuildWithoutCredentialsStillAnswers(t *testing.T) {
	components, err := Build(&config.Config{})
	require.NoError(t, err)
	defer components.Close()

	res := components.Search.SearchHotels(context.Background(), search.HotelQuery{Location: "Paris"})
	require.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestBuildWiresWeatherAndRedisCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"current_condition": [{"humidity": "50", "windspeedKmph": "9", "weatherDesc": [{"value": "Sunny"}]}],
			"weather": [{"date": "2026-02-27", "maxtempC": "20", "mintempC": "11", "hourly": []}]}`)
	}))
	defer srv.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := &config.Config{}
	cfg.Providers.Weather.BaseURL = srv.URL
	cfg.Providers.Cache.Backend = "redis"
	cfg.Providers.Cache.RedisAddr = mr.Addr()

	components, err := Build(cfg)
	require.NoError(t, err)
	defer components.Close()

	for i := 0; i < 2; i++ {
		out := components.Dispatcher.Dispatch(context.Background(), tool.Invocation{Name: "getWeather", Args: map[string]interface{}{"location": "Paris"}})
		assert.Contains(t, out, "[WEATHER_WIDGET]")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBuildRejectsBadConfig(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)

	cfg := &config.Config{}
	cfg.Providers.Cache.Backend = "memcached"
	_, err = Build(cfg)
	assert.Error(t, err)

	cfg = &config.Config{}
	cfg.Chat.ToolTimeout = "soon"
	_, err = Build(cfg)
	assert.Error(t, err)
}
