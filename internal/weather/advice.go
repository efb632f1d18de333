package weather

import "math"

type adviceBin struct {
	below  float64
	advice string
}

// Checked in order; the first bin whose bound exceeds the temperature wins.
var adviceBins = []adviceBin{
	{5, "ダウンジャケットやコートなど、しっかりした防寒具が必要です"},
	{10, "コートやセーターを着ましょう"},
	{15, "ジャケットや薄手のコートがおすすめです"},
	{20, "長袖シャツやカーディガンがちょうどいいです"},
	{25, "半袖でも過ごせますが、薄い羽織ものがあると安心です"},
	{math.Inf(1), "半袖など涼しい服装がおすすめです"},
}

// ClothingAdvice returns what to wear at tempC degrees Celsius.
// A bin boundary belongs to the warmer bin.
func ClothingAdvice(tempC float64) string {
	for _, bin := range adviceBins {
		if tempC < bin.below {
			return bin.advice
		}
	}
	// +Inf and NaN
	return adviceBins[len(adviceBins)-1].advice
}
