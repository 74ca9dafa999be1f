package forecast

import "strings"

// Icon is the weather glyph drawn over a chart point.
type Icon int

const (
	IconNone Icon = iota
	IconClear
	IconRain
	IconSnow
	IconCloudy
)

func (i Icon) String() string {
	switch i {
	case IconClear:
		return "clear"
	case IconRain:
		return "rain"
	case IconSnow:
		return "snow"
	case IconCloudy:
		return "cloudy"
	default:
		return "none"
	}
}

// iconKeywords is checked in order; the first icon with a matching keyword wins.
var iconKeywords = []struct {
	icon     Icon
	keywords []string
}{
	{IconClear, []string{"晴", "clear", "sunny"}},
	{IconRain, []string{"雨", "rain"}},
	{IconSnow, []string{"雪", "snow"}},
	{IconCloudy, []string{"曇", "cloud"}},
}

// IconFor picks the icon for a forecast text with priority
// clear > rain > snow > cloudy.
func IconFor(weather string) Icon {
	text := strings.ToLower(weather)
	for _, entry := range iconKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.icon
			}
		}
	}
	return IconNone
}
