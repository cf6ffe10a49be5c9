package domain

import (
	"time"

	"github.com/montanaflynn/stats"
)

// Window summarizes a sub-sequence of a Series.
type Window struct {
	Label string `json:"label"`
	Count int    `json:"count"`

	MinTemp   *float64  `json:"min_temp,omitempty"`
	MaxTemp   *float64  `json:"max_temp,omitempty"`
	MeanTemp  *float64  `json:"mean_temp,omitempty"`
	MinTempAt time.Time `json:"min_temp_at,omitzero"`
	MaxTempAt time.Time `json:"max_temp_at,omitzero"`

	MaxPrecipProbability float64 `json:"max_precip_probability"`
	PrecipSum            float64 `json:"precip_sum"`
	MaxWindSpeed         float64 `json:"max_wind_speed"`
	MaxUVIndex           float64 `json:"max_uv_index"`
	DominantWeatherCode  int     `json:"dominant_weather_code"`

	// HasProbability, HasWind and HasUVIndex report whether any selected
	// sample carried the value, since the maxima default to 0.
	HasProbability bool `json:"has_probability"`
	HasWind        bool `json:"has_wind"`
	HasUVIndex     bool `json:"has_uv_index"`
}

// Empty reports whether the window selected no samples.
func (w Window) Empty() bool {
	return w.Count == 0
}

// Aggregate summarizes the samples chosen by sel (every sample when sel is
// nil). Absent values are excluded from min, max and mean; absent amounts
// count as 0 in the precipitation sum. An empty selection yields nil
// temperatures, zero maxima and fallbackCode as the dominant code.
func Aggregate(series Series, sel Selector, label string, fallbackCode int) Window {
	w := Window{Label: label, DominantWeatherCode: fallbackCode}

	var (
		lows, highs, means, probs, amounts, winds, uvs []float64
		lowTimes, highTimes                       []time.Time
		codes                                     []int
	)

	for i, s := range series {
		if sel != nil && !sel(i, s) {
			continue
		}
		w.Count++

		if v := s.low(); v != nil {
			lows = append(lows, *v)
			lowTimes = append(lowTimes, s.Time)
		}
		if v := s.high(); v != nil {
			highs = append(highs, *v)
			highTimes = append(highTimes, s.Time)
		}
		if v := s.mean(); v != nil {
			means = append(means, *v)
		}
		if s.PrecipitationProbability != nil {
			probs = append(probs, *s.PrecipitationProbability)
		}
		if s.PrecipitationAmount != nil {
			amounts = append(amounts, *s.PrecipitationAmount)
		}
		if s.WindSpeed != nil {
			winds = append(winds, *s.WindSpeed)
		}
		if s.UVIndex != nil {
			uvs = append(uvs, *s.UVIndex)
		}
		if s.WeatherCode != nil {
			codes = append(codes, *s.WeatherCode)
		}
	}

	if v, ok := statValue(stats.Min, lows); ok {
		w.MinTemp = &v
		w.MinTempAt = lowTimes[firstIndexOf(lows, v)]
	}
	if v, ok := statValue(stats.Max, highs); ok {
		w.MaxTemp = &v
		w.MaxTempAt = highTimes[firstIndexOf(highs, v)]
	}
	if v, ok := statValue(stats.Mean, means); ok {
		w.MeanTemp = &v
	}

	w.MaxPrecipProbability, w.HasProbability = statValue(stats.Max, probs)
	w.MaxWindSpeed, w.HasWind = statValue(stats.Max, winds)
	w.MaxUVIndex, w.HasUVIndex = statValue(stats.Max, uvs)
	w.PrecipSum, _ = statValue(stats.Sum, amounts)

	if len(codes) > 0 {
		w.DominantWeatherCode = dominantCode(codes)
	}
	return w
}

// dominantCode returns the mode of codes. Ties go to the code seen first.
func dominantCode(codes []int) int {
	counts := make(map[int]int, len(codes))
	order := make([]int, 0, len(codes))
	for _, c := range codes {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best, bestCount := order[0], 0
	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// statValue applies fn to data, reporting false (and 0) for empty input.
func statValue(fn func(stats.Float64Data) (float64, error), data []float64) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	v, err := fn(data)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstIndexOf(data []float64, v float64) int {
	for i := range data {
		if data[i] == v {
			return i
		}
	}
	return 0
}

// low is the lowest temperature a sample reports: the daily minimum when
// present, otherwise the instantaneous temperature.
func (s Sample) low() *float64 {
	if s.TemperatureLow != nil {
		return s.TemperatureLow
	}
	return s.Temperature
}

func (s Sample) high() *float64 {
	if s.TemperatureHigh != nil {
		return s.TemperatureHigh
	}
	return s.Temperature
}

// mean is the temperature used for averaging: the instantaneous reading, or
// the midpoint of a daily range when both bounds are present.
func (s Sample) mean() *float64 {
	if s.Temperature != nil {
		return s.Temperature
	}
	if s.TemperatureLow != nil && s.TemperatureHigh != nil {
		mid := (*s.TemperatureLow + *s.TemperatureHigh) / 2
		return &mid
	}
	return nil
}
