package widget

import (
	"strings"
	"time"
)

// Icon identifiers understood by clients.
const (
	IconRain         = "rain"
	IconCloudy       = "cloudy"
	IconSnow         = "snow"
	IconThunderstorm = "thunderstorm"
	IconFog          = "fog"
	IconSunny        = "sunny"
	IconPartlyCloudy = "partly-cloudy"
)

var iconKeywords = []struct {
	keywords []string
	icon     string
}{
	{[]string{"rain"}, IconRain},
	{[]string{"cloud"}, IconCloudy},
	{[]string{"snow"}, IconSnow},
	{[]string{"thunder"}, IconThunderstorm},
	{[]string{"fog"}, IconFog},
	{[]string{"clear", "sunny"}, IconSunny},
}

// WeatherIcon maps a free-text condition to an icon identifier. Keywords are
// checked in a fixed order, so "Thundery rain" is rain.
func WeatherIcon(condition string) string {
	c := strings.ToLower(condition)
	for _, entry := range iconKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(c, kw) {
				return entry.icon
			}
		}
	}
	return IconPartlyCloudy
}

// DayLabel names forecast day offset relative to now.
func DayLabel(now time.Time, offset int) string {
	switch offset {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return now.AddDate(0, 0, offset).Weekday().String()
	}
}
