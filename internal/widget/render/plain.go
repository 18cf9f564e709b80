package render

import (
	"fmt"
	"strings"

	"github.com/harunnryd/tabi/internal/widget"
)

// PlainRenderer writes each widget as a few lines of text. Chat platforms
// like Slack and Telegram get this.
type PlainRenderer struct{}

func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

func (r *PlainRenderer) Render(res widget.ParseResult) (string, error) {
	sections := make([]string, 0, len(res.Widgets)+1)
	if res.RemainingText != "" {
		sections = append(sections, res.RemainingText)
	}
	for _, w := range res.Widgets {
		if text := plainWidget(w); text != "" {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, widget.BlockSeparator), nil
}

func plainWidget(w widget.Block) string {
	d := w.Data
	switch w.Kind {
	case widget.KindFlight:
		return joinNonEmpty("\n",
			joinNonEmpty(" | ",
				"✈️ "+joinNonEmpty(" ", str(d, "airline"), str(d, "flightNumber")),
				fmt.Sprintf("%s %s → %s %s", str(d, "departure"), str(d, "departureTime"), str(d, "arrival"), str(d, "arrivalTime")),
				str(d, "duration"),
				stops(integer(d, "stops")),
				str(d, "price"),
			),
			link(d, "bookingLink"),
		)
	case widget.KindHotel:
		return joinNonEmpty("\n",
			joinNonEmpty(" | ", "🏨 "+str(d, "name"), rating(d), str(d, "price"), str(d, "location")),
			link(d, "link"),
		)
	case widget.KindPOI:
		return joinNonEmpty("\n",
			joinNonEmpty(" | ", "📍 "+str(d, "name"), rating(d), str(d, "type"), str(d, "price")),
			joinNonEmpty(" | ", str(d, "address"), str(d, "hours")),
			link(d, "website"),
		)
	case widget.KindRestaurant:
		return joinNonEmpty("\n",
			joinNonEmpty(" | ", "🍽️ "+str(d, "name"), rating(d), str(d, "cuisine"), str(d, "priceLevel")),
			joinNonEmpty(" | ", str(d, "address"), services(d)),
			link(d, "website"),
		)
	case widget.KindWeather:
		return plainWeather(d)
	default:
		return ""
	}
}

func plainWeather(d map[string]any) string {
	cur := object(d, "current")
	lines := []string{
		fmt.Sprintf("%s Weather in %s: %d°C, %s, humidity %d%%, wind %d km/h",
			str(cur, "icon"), str(d, "location"), integer(cur, "temp"), str(cur, "condition"),
			integer(cur, "humidity"), integer(cur, "windSpeed")),
	}
	for _, day := range objects(d, "forecast") {
		lines = append(lines, fmt.Sprintf("  %s %s: %d°/%d° %s %s, %d%% rain",
			str(day, "day"), str(day, "date"), integer(day, "high"), integer(day, "low"),
			str(day, "icon"), str(day, "condition"), integer(day, "precipitation")))
	}
	return strings.Join(lines, "\n")
}
