package widget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flightBlock = `[FLIGHT_WIDGET]
{
  "airline": "ANA",
  "flightNumber": "NH7",
  "price": "$812",
  "departure": "SFO",
  "arrival": "NRT",
  "departureTime": "11:25",
  "arrivalTime": "15:10",
  "duration": "11h 45m",
  "stops": 0,
  "bookingLink": "#",
  "carbonEmissions": "N/A"
}
[/FLIGHT_WIDGET]`

const brokenHotelBlock = `[HOTEL_WIDGET]
{ "name": "Park Hyatt", "rating": 4.7,, }
[/HOTEL_WIDGET]`

func TestParse_PlainText(t *testing.T) {
	res := Parse("  Hello there!\n")
	assert.Equal(t, "Hello there!", res.RemainingText)
	assert.Empty(t, res.Widgets)
}

func TestParse_MalformedBlockIsSkippedAndKept(t *testing.T) {
	text := "Options below.\n\n" + flightBlock + "\n\n" + brokenHotelBlock

	res := Parse(text)
	require.Len(t, res.Widgets, 1)
	assert.Equal(t, KindFlight, res.Widgets[0].Kind)
	assert.Equal(t, "NH7", res.Widgets[0].Data["flightNumber"])
	assert.Equal(t, float64(0), res.Widgets[0].Data["stops"])

	assert.Contains(t, res.RemainingText, brokenHotelBlock)
	assert.NotContains(t, res.RemainingText, "FLIGHT_WIDGET")
	assert.True(t, strings.HasPrefix(res.RemainingText, "Options below."))
}

func TestParse_NonObjectPayloadIsMalformed(t *testing.T) {
	text := "[POI_WIDGET]\n[1, 2, 3]\n[/POI_WIDGET]\n\n[POI_WIDGET]\nnull\n[/POI_WIDGET]"
	res := Parse(text)
	assert.Empty(t, res.Widgets)
	assert.Equal(t, text, res.RemainingText)
}

func TestParse_InterleavedKindsKeepTextualOrder(t *testing.T) {
	text := strings.Join([]string{
		`[WEATHER_WIDGET]{"location":"Kyoto","current":{},"forecast":[]}[/WEATHER_WIDGET]`,
		"Some prose in between.",
		`[RESTAURANT_WIDGET]{"name":"Ippudo"}[/RESTAURANT_WIDGET]`,
		`[POI_WIDGET]{"name":"Fushimi Inari"}[/POI_WIDGET] and [HOTEL_WIDGET]{"name":"Hoshinoya"}[/HOTEL_WIDGET]`,
	}, "\n")

	res := Parse(text)
	require.Len(t, res.Widgets, 4)
	assert.Equal(t, []Kind{KindWeather, KindRestaurant, KindPOI, KindHotel}, kinds(res.Widgets))
	assert.Equal(t, "Some prose in between.\n\nand", res.RemainingText)
}

func TestParse_OverlappingBlocksAreLeftInPlace(t *testing.T) {
	text := `[HOTEL_WIDGET] lead [FLIGHT_WIDGET]{"airline":"X"}[/FLIGHT_WIDGET] tail [/HOTEL_WIDGET]`
	res := Parse(text)
	assert.Empty(t, res.Widgets)
	assert.Equal(t, text, res.RemainingText)
}

func TestParse_UnclosedMarkerIsText(t *testing.T) {
	text := "[HOTEL_WIDGET]\n{\"name\":\"Half\"}\n"
	res := Parse(text)
	assert.Empty(t, res.Widgets)
	assert.Equal(t, strings.TrimSpace(text), res.RemainingText)
}

func TestParse_DuplicateBlocksAreAllReturned(t *testing.T) {
	res := Parse(flightBlock + "\n\n" + flightBlock)
	require.Len(t, res.Widgets, 2)
	assert.Equal(t, res.Widgets[0], res.Widgets[1])
	assert.Empty(t, res.RemainingText)
}

func TestParse_Idempotent(t *testing.T) {
	f := newTestFormatter()
	inputs := []string{
		"",
		"no widgets at all",
		flightBlock,
		"intro\n" + flightBlock + "\n\n" + brokenHotelBlock + "\noutro",
		`[HOTEL_WIDGET]{"name":"[FLIGHT_WIDGET]"}[/HOTEL_WIDGET][/FLIGHT_WIDGET]`,
		`[FLIGHT_WIDGET]{"a":1}[/FLIGHT_WIDGET][FLIGHT_WIDGET]{"a":2}[/FLIGHT_WIDGET]`,
		`[POI_WIDGET]{"name":"x"}[/HOTEL_WIDGET][/POI_WIDGET][HOTEL_WIDGET]{}`,
		`[HOTEL_WIDGET] [FLIGHT_WIDGET]{}[/FLIGHT_WIDGET] [/HOTEL_WIDGET] [FLIGHT_WIDGET]{}[/FLIGHT_WIDGET]`,
		f.FormatHotels(hotels(3), HotelOptions{Location: "Paris"}),
		"Before\n\n" + f.FormatWeather(nil, WeatherOptions{}) + "\n\nAfter",
	}
	for _, in := range inputs {
		first := Parse(in)
		second := Parse(first.RemainingText)
		assert.Empty(t, second.Widgets, "input: %q", in)
		assert.Equal(t, first.RemainingText, second.RemainingText, "input: %q", in)
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("hotel")
	assert.True(t, ok)
	assert.Equal(t, KindHotel, k)

	k, ok = ParseKind("RESTAURANT_WIDGET")
	assert.True(t, ok)
	assert.Equal(t, KindRestaurant, k)

	_, ok = ParseKind("car")
	assert.False(t, ok)
}

func TestTextAndCount(t *testing.T) {
	text := "Top pick:\n" + flightBlock
	assert.Equal(t, "Top pick:", Text(text))
	assert.Equal(t, 1, Count(text, KindFlight))
	assert.Equal(t, 0, Count(text, KindHotel))
}
