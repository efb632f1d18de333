package weather

// Icon is the coarse condition shown on the weather card.
type Icon string

const (
	IconClear  Icon = "CLEAR"
	IconCloudy Icon = "CLOUDY"
	IconRainy  Icon = "RAINY"
	IconOther  Icon = "OTHER"
)

// WMO weather interpretation codes as used by Open-Meteo.
var codeDescriptions = map[int]string{
	0:  "快晴",
	1:  "晴れ",
	2:  "一部曇り",
	3:  "曇り",
	45: "霧",
	48: "霧氷",
	51: "弱い霧雨",
	53: "霧雨",
	55: "強い霧雨",
	56: "着氷性の霧雨",
	57: "着氷性の霧雨",
	61: "弱い雨",
	63: "雨",
	65: "強い雨",
	66: "着氷性の雨",
	67: "着氷性の雨",
	71: "弱い雪",
	73: "雪",
	75: "強い雪",
	77: "霧雪",
	80: "弱いにわか雨",
	81: "にわか雨",
	82: "激しいにわか雨",
	85: "弱いにわか雪",
	86: "強いにわか雪",
	95: "雷雨",
	96: "雹を伴う雷雨",
	99: "激しい雹を伴う雷雨",
}

// Describe returns the Japanese label for a weather code.
// Codes outside the table yield "".
func Describe(code int) string {
	return codeDescriptions[code]
}

// IconCategory maps a weather code to an icon. Ranges are inclusive.
func IconCategory(code int) Icon {
	switch {
	case code == 0 || code == 1:
		return IconClear
	case code >= 2 && code <= 48:
		return IconCloudy
	case code >= 51 && code <= 67:
		return IconRainy
	default:
		return IconOther
	}
}
