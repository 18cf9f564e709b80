package render

import (
	"fmt"
	"strings"

	"github.com/harunnryd/tabi/internal/widget"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// TerminalRenderer draws widgets as lipgloss tables, one table per run of
// consecutive widgets of the same kind.
type TerminalRenderer struct {
	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTerminalRenderer() *TerminalRenderer {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TerminalRenderer{
		titleStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true),
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (r *TerminalRenderer) Render(res widget.ParseResult) (string, error) {
	var sections []string
	if res.RemainingText != "" {
		sections = append(sections, res.RemainingText)
	}

	for i := 0; i < len(res.Widgets); {
		kind := res.Widgets[i].Kind
		j := i
		for j < len(res.Widgets) && res.Widgets[j].Kind == kind {
			j++
		}
		sections = append(sections, r.group(kind, res.Widgets[i:j])...)
		i = j
	}
	return strings.Join(sections, widget.BlockSeparator), nil
}

func (r *TerminalRenderer) group(kind widget.Kind, blocks []widget.Block) []string {
	switch kind {
	case widget.KindFlight:
		t := r.table("Airline", "Flight", "Route", "Times", "Duration", "Stops", "Price")
		for _, b := range blocks {
			d := b.Data
			t.Row(
				truncateString(str(d, "airline"), 20),
				str(d, "flightNumber"),
				str(d, "departure")+" → "+str(d, "arrival"),
				str(d, "departureTime")+" → "+str(d, "arrivalTime"),
				str(d, "duration"),
				stops(integer(d, "stops")),
				str(d, "price"),
			)
		}
		return []string{r.titled("Flights", t)}
	case widget.KindHotel:
		t := r.table("Hotel", "Rating", "Price", "Location")
		for _, b := range blocks {
			d := b.Data
			t.Row(truncateString(str(d, "name"), 30), rating(d), str(d, "price"), truncateString(str(d, "location"), 25))
		}
		return []string{r.titled("Hotels", t)}
	case widget.KindPOI:
		t := r.table("Place", "Rating", "Type", "Address")
		for _, b := range blocks {
			d := b.Data
			t.Row(truncateString(str(d, "name"), 30), rating(d), truncateString(str(d, "type"), 20), truncateString(str(d, "address"), 35))
		}
		return []string{r.titled("Places", t)}
	case widget.KindRestaurant:
		t := r.table("Restaurant", "Rating", "Cuisine", "Price", "Services")
		for _, b := range blocks {
			d := b.Data
			t.Row(truncateString(str(d, "name"), 30), rating(d), truncateString(str(d, "cuisine"), 20), str(d, "priceLevel"), services(d))
		}
		return []string{r.titled("Restaurants", t)}
	case widget.KindWeather:
		out := make([]string, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, r.weather(b.Data))
		}
		return out
	default:
		return nil
	}
}

func (r *TerminalRenderer) weather(d map[string]any) string {
	cur := object(d, "current")
	title := fmt.Sprintf("%s %s  %d°C %s  💧%d%%  💨%d km/h",
		str(cur, "icon"), str(d, "location"), integer(cur, "temp"), str(cur, "condition"),
		integer(cur, "humidity"), integer(cur, "windSpeed"))

	t := r.table("Day", "Date", "High", "Low", "Condition", "Rain")
	for _, day := range objects(d, "forecast") {
		t.Row(
			str(day, "day"),
			str(day, "date"),
			fmt.Sprintf("%d°", integer(day, "high")),
			fmt.Sprintf("%d°", integer(day, "low")),
			str(day, "icon")+" "+str(day, "condition"),
			fmt.Sprintf("%d%%", integer(day, "precipitation")),
		)
	}
	return r.titleStyle.Render(title) + "\n" + t.String()
}

func (r *TerminalRenderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.headerStyle
			case row%2 == 0:
				return r.evenRowStyle
			default:
				return r.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (r *TerminalRenderer) titled(title string, t *table.Table) string {
	return r.titleStyle.Render(title) + "\n" + t.String()
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
