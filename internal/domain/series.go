package domain

import (
	"strings"
	"time"
)

// Horizons applied when normalizing Open-Meteo sections.
const (
	HourlyHorizon = 48
	DailyHorizon  = 7
)

// timeLayouts lists the accepted timestamp formats, most common first.
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// RawSeries is a set of parallel arrays addressed by index. A nil channel is
// absent; a non-nil channel of any length is present.
type RawSeries struct {
	Time                     []string
	Temperature              []*float64
	TemperatureLow           []*float64
	TemperatureHigh          []*float64
	ApparentTemperature      []*float64
	PrecipitationProbability []*float64
	PrecipitationAmount      []*float64
	WindSpeed                []*float64
	WeatherCode              []*float64
	UVIndex                  []*float64
}

// Sample is one timestamped reading. Absent values are nil, never zero.
type Sample struct {
	Time                     time.Time
	Temperature              *float64
	TemperatureLow           *float64
	TemperatureHigh          *float64
	ApparentTemperature      *float64
	PrecipitationProbability *float64
	PrecipitationAmount      *float64
	WindSpeed                *float64
	UVIndex                  *float64
	WeatherCode              *int
}

// Series is an ordered, read-only sequence of samples.
type Series []Sample

// Normalize converts raw parallel arrays into a Series. The result is
// truncated to maxHorizon entries (no limit when maxHorizon <= 0) and to the
// shortest present channel. Samples with unparseable timestamps are dropped;
// non-finite or missing values become nil fields. A nil loc means UTC.
func Normalize(raw RawSeries, maxHorizon int, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}

	n := raw.length(maxHorizon)
	series := make(Series, 0, n)
	for i := 0; i < n; i++ {
		ts, ok := parseTimestamp(raw.Time[i], loc)
		if !ok {
			continue
		}
		series = append(series, Sample{
			Time:                     ts,
			Temperature:              channelValue(raw.Temperature, i),
			TemperatureLow:           channelValue(raw.TemperatureLow, i),
			TemperatureHigh:          channelValue(raw.TemperatureHigh, i),
			ApparentTemperature:      channelValue(raw.ApparentTemperature, i),
			PrecipitationProbability: channelValue(raw.PrecipitationProbability, i),
			PrecipitationAmount:      channelValue(raw.PrecipitationAmount, i),
			WindSpeed:                channelValue(raw.WindSpeed, i),
			UVIndex:                  channelValue(raw.UVIndex, i),
			WeatherCode:              channelCode(raw.WeatherCode, i),
		})
	}
	return series
}

// IndexFrom returns the index of the first sample at or after t, or len(s).
func (s Series) IndexFrom(t time.Time) int {
	for i := range s {
		if !s[i].Time.Before(t) {
			return i
		}
	}
	return len(s)
}

// Slice returns the samples in [start, end), clamped to the series bounds.
func (s Series) Slice(start, end int) Series {
	start = max(start, 0)
	end = min(end, len(s))
	if start >= end {
		return Series{}
	}
	return s[start:end]
}

func (r RawSeries) length(maxHorizon int) int {
	n := len(r.Time)
	for _, ch := range r.channels() {
		if ch != nil && len(ch) < n {
			n = len(ch)
		}
	}
	if maxHorizon > 0 && n > maxHorizon {
		n = maxHorizon
	}
	return n
}

func (r RawSeries) channels() [][]*float64 {
	return [][]*float64{
		r.Temperature,
		r.TemperatureLow,
		r.TemperatureHigh,
		r.ApparentTemperature,
		r.PrecipitationProbability,
		r.PrecipitationAmount,
		r.WindSpeed,
		r.WeatherCode,
		r.UVIndex,
	}
}

func channelValue(ch []*float64, i int) *float64 {
	if i >= len(ch) {
		return nil
	}
	return finite(ch[i])
}

func channelCode(ch []*float64, i int) *int {
	if i >= len(ch) {
		return nil
	}
	return weatherCode(ch[i])
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
