package weather_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenkimap/tenkimap/internal/weather"
)

func TestIconCategory(t *testing.T) {
	tests := []struct {
		code     int
		expected weather.Icon
	}{
		{-1, weather.IconOther},
		{0, weather.IconClear},
		{1, weather.IconClear},
		{2, weather.IconCloudy},
		{3, weather.IconCloudy},
		{45, weather.IconCloudy},
		{48, weather.IconCloudy},
		{49, weather.IconOther},
		{50, weather.IconOther},
		{51, weather.IconRainy},
		{61, weather.IconRainy},
		{67, weather.IconRainy},
		{68, weather.IconOther},
		{71, weather.IconOther},
		{95, weather.IconOther},
		{1000, weather.IconOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, weather.IconCategory(tt.code), "code %d", tt.code)
	}
}

func TestIconCategory_RangesDoNotOverlap(t *testing.T) {
	for code := -10; code <= 120; code++ {
		var want weather.Icon
		switch {
		case code == 0 || code == 1:
			want = weather.IconClear
		case code >= 2 && code <= 48:
			want = weather.IconCloudy
		case code >= 51 && code <= 67:
			want = weather.IconRainy
		default:
			want = weather.IconOther
		}
		assert.Equal(t, want, weather.IconCategory(code), "code %d", code)
	}
}

func TestDescribe(t *testing.T) {
	tests := map[int]string{
		0:  "快晴",
		1:  "晴れ",
		3:  "曇り",
		45: "霧",
		63: "雨",
		75: "強い雪",
		82: "激しいにわか雨",
		95: "雷雨",
		99: "激しい雹を伴う雷雨",
	}

	for code, expected := range tests {
		assert.Equal(t, expected, weather.Describe(code), "code %d", code)
	}
}

func TestDescribe_UnknownCode(t *testing.T) {
	for _, code := range []int{-1, 4, 49, 50, 100, math.MaxInt32} {
		assert.NotPanics(t, func() {
			assert.Empty(t, weather.Describe(code), "code %d", code)
		})
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	for code := 0; code < 100; code++ {
		assert.Equal(t, weather.Describe(code), weather.Describe(code))
		assert.Equal(t, weather.IconCategory(code), weather.IconCategory(code))
	}
}

func TestCurrentConditions_Derived(t *testing.T) {
	temp := 22.5
	code := 61
	cond := &weather.CurrentConditions{TemperatureC: &temp, WeatherCode: &code}

	assert.Equal(t, "弱い雨", cond.Description())
	assert.Equal(t, weather.IconRainy, cond.Icon())
	assert.Equal(t, weather.ClothingAdvice(22.5), cond.Advice())

	empty := &weather.CurrentConditions{}
	assert.Empty(t, empty.Description())
	assert.Equal(t, weather.IconOther, empty.Icon())
	assert.Empty(t, empty.Advice())

	var missing *weather.CurrentConditions
	assert.Empty(t, missing.Description())
}
