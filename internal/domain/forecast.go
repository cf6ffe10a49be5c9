package domain

import (
	"context"
	"math"
)

// FallbackWeatherCode is the WMO code used when a window has no samples
// or a reading carries no code: 3 = overcast.
const FallbackWeatherCode = 3

// Payload mirrors the Open-Meteo forecast response. Sections are pointers so
// an absent section can be told apart from an empty one.
type Payload struct {
	Latitude  float64       `json:"latitude,omitempty"`
	Longitude float64       `json:"longitude,omitempty"`
	Timezone  string        `json:"timezone,omitempty"`
	Current   *CurrentBlock `json:"current,omitempty"`
	Hourly    *HourlyBlock  `json:"hourly,omitempty"`
	Daily     *DailyBlock   `json:"daily,omitempty"`
}

// CurrentBlock holds the "current" section. Null readings decode to nil.
type CurrentBlock struct {
	Time                string   `json:"time,omitempty"`
	Temperature         *float64 `json:"temperature_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	RelativeHumidity    *float64 `json:"relative_humidity_2m"`
	Precipitation       *float64 `json:"precipitation"`
	WeatherCode         *float64 `json:"weather_code"`
	WindSpeed           *float64 `json:"wind_speed_10m"`
}

// HourlyBlock holds the "hourly" section as parallel arrays.
type HourlyBlock struct {
	Time                     []string   `json:"time"`
	Temperature              []*float64 `json:"temperature_2m"`
	ApparentTemperature      []*float64 `json:"apparent_temperature,omitempty"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	Precipitation            []*float64 `json:"precipitation"`
	WeatherCode              []*float64 `json:"weather_code"`
	WindSpeed                []*float64 `json:"wind_speed_10m"`
}

// DailyBlock holds the "daily" section as parallel arrays.
type DailyBlock struct {
	Time                        []string   `json:"time"`
	WeatherCode                 []*float64 `json:"weather_code"`
	TemperatureMax              []*float64 `json:"temperature_2m_max"`
	TemperatureMin              []*float64 `json:"temperature_2m_min"`
	PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	PrecipitationSum            []*float64 `json:"precipitation_sum"`
	WindSpeedMax                []*float64 `json:"wind_speed_10m_max"`
	UVIndexMax                  []*float64 `json:"uv_index_max"`
}

// Raw exposes the hourly arrays as normalizer channels.
func (h *HourlyBlock) Raw() RawSeries {
	if h == nil {
		return RawSeries{}
	}
	return RawSeries{
		Time:                     h.Time,
		Temperature:              h.Temperature,
		ApparentTemperature:      h.ApparentTemperature,
		PrecipitationProbability: h.PrecipitationProbability,
		PrecipitationAmount:      h.Precipitation,
		WindSpeed:                h.WindSpeed,
		WeatherCode:              h.WeatherCode,
	}
}

// Raw exposes the daily arrays as normalizer channels.
func (d *DailyBlock) Raw() RawSeries {
	if d == nil {
		return RawSeries{}
	}
	return RawSeries{
		Time:                     d.Time,
		TemperatureLow:           d.TemperatureMin,
		TemperatureHigh:          d.TemperatureMax,
		PrecipitationProbability: d.PrecipitationProbabilityMax,
		PrecipitationAmount:      d.PrecipitationSum,
		WindSpeed:                d.WindSpeedMax,
		WeatherCode:              d.WeatherCode,
		UVIndex:                  d.UVIndexMax,
	}
}

// Conditions is the normalized "current" section.
type Conditions struct {
	Temperature         *float64
	ApparentTemperature *float64
	Humidity            *float64
	Precipitation       *float64
	WindSpeed           *float64
	WeatherCode         *int
}

// NormalizeCurrent coerces the current readings, dropping non-finite values.
func NormalizeCurrent(c *CurrentBlock) Conditions {
	if c == nil {
		return Conditions{}
	}
	return Conditions{
		Temperature:         finite(c.Temperature),
		ApparentTemperature: finite(c.ApparentTemperature),
		Humidity:            finite(c.RelativeHumidity),
		Precipitation:       finite(c.Precipitation),
		WindSpeed:           finite(c.WindSpeed),
		WeatherCode:         weatherCode(c.WeatherCode),
	}
}

// ForecastFetcher retrieves a forecast payload for a coordinate.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) (Payload, error)
}

// finite returns a copy of v, or nil when v is absent or not a finite number.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	f := *v
	return &f
}

func weatherCode(v *float64) *int {
	f := finite(v)
	if f == nil {
		return nil
	}
	code := int(math.Round(*f))
	return &code
}

// Float returns a pointer to v. It keeps fixtures and adapters readable.
func Float(v float64) *float64 {
	return &v
}

// Floats converts plain values into a channel with every value present.
func Floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = Float(vs[i])
	}
	return out
}
