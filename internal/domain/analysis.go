package domain

import (
	"math"
	"time"
)

// Advisory tags. Exactly one of them, AdvisoryNothingNotable, is emitted
// when no threshold is crossed.
const (
	AdvisoryUmbrella       = "bring umbrella"
	AdvisoryFrost          = "frost risk"
	AdvisoryWindy          = "windy caution"
	AdvisoryExtraLayer     = "extra layer tip"
	AdvisoryNothingNotable = "nothing notable"
)

// DefaultEmoji decorates narratives without a more specific signal.
const DefaultEmoji = "🌤️"

// Analysis holds every derived value a narrative is composed from.
type Analysis struct {
	Now     time.Time
	Current Conditions
	Hourly  Series
	Daily   Series

	// Upcoming is the hourly outlook starting at the current hour. Rain
	// window indices refer to it.
	Upcoming Series

	Next6h      Window
	Next24h     Window
	Today       Window // daily entry for today's date
	TodayHourly Window // hourly samples on today's date
	Parts       []Window
	Tonight     Window
	Tomorrow    Window

	Rain        RainScan
	PrimaryRain *EventWindow

	RainProbability *float64
	MaxWind         *float64
	MinTemp         *float64
	UVIndex         *float64 // today's daily max
	Confidence      Confidence
	Advisories      []string
	Emoji           string
}

// Analyze normalizes a payload and derives windows, rain runs, confidence
// and advisories relative to now. It reports false when the current, hourly
// or daily section is missing.
func Analyze(p Payload, now time.Time, loc *time.Location) (Analysis, bool) {
	if p.Current == nil || p.Hourly == nil || p.Daily == nil {
		return Analysis{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	hourStart := now.Truncate(time.Hour)

	a := Analysis{
		Now:     now,
		Current: NormalizeCurrent(p.Current),
		Hourly:  Normalize(p.Hourly.Raw(), HourlyHorizon, loc),
		Daily:   Normalize(p.Daily.Raw(), DailyHorizon, loc),
	}

	start := a.Hourly.IndexFrom(hourStart)
	a.Upcoming = a.Hourly.Slice(start, start+OutlookHours)

	a.Next6h = Aggregate(a.Upcoming, IndexRange(0, HeadlineHours), "next_6h", FallbackWeatherCode)
	a.Next24h = Aggregate(a.Upcoming, All(), "next_24h", FallbackWeatherCode)
	a.Today = Aggregate(a.Daily, OnDate(now), "today", FallbackWeatherCode)
	a.TodayHourly = Aggregate(a.Hourly, OnDate(now), "today_hourly", FallbackWeatherCode)
	a.Tomorrow = Aggregate(a.Daily, OnDate(now.AddDate(0, 0, 1)), "tomorrow", FallbackWeatherCode)

	upcoming := From(hourStart)
	for _, part := range []DayPart{Morning, Afternoon, Evening} {
		a.Parts = append(a.Parts, Aggregate(a.Hourly, And(upcoming, OnDate(now), InDayPart(now, part)), string(part), FallbackWeatherCode))
	}
	a.Tonight = Aggregate(a.Hourly, And(upcoming, Tonight(now)), string(Night), FallbackWeatherCode)

	a.Rain = ScanRain(a.Upcoming, DefaultRainThreshold, DefaultPrecipEpsilon)
	if w, ok := PrimaryRainWindow(a.Rain.Windows, 0); ok {
		a.PrimaryRain = &w
	}

	a.RainProbability = firstPresent(windowProbability(a.Today), windowProbability(a.Next6h))
	a.MaxWind = maxPresent(a.Current.WindSpeed, windowWind(a.Next24h))
	a.MinTemp = firstPresent(a.Today.MinTemp, a.Next24h.MinTemp)
	a.UVIndex = windowUV(a.Today)
	a.Confidence = EstimateConfidence(a.RainProbability, a.MaxWind)
	a.Advisories = Advisories(AdvisoryInput{
		RainProbability: a.RainProbability,
		MinTemp:         a.MinTemp,
		MaxWind:         a.MaxWind,
		Temperature:     a.Current.Temperature,
		FeelsLike:       a.Current.ApparentTemperature,
	})
	a.Emoji = pickEmoji(a.RainProbability, a.Current.Temperature, a.MaxWind)
	return a, true
}

// AdvisoryInput carries the values advisory thresholds are checked against.
type AdvisoryInput struct {
	RainProbability *float64
	MinTemp         *float64
	MaxWind         *float64
	Temperature     *float64
	FeelsLike       *float64
}

// Advisories returns the advisory tags whose thresholds are crossed, in a
// fixed order, or exactly AdvisoryNothingNotable when none is.
func Advisories(in AdvisoryInput) []string {
	var tags []string
	if in.RainProbability != nil && *in.RainProbability >= UmbrellaProbability {
		tags = append(tags, AdvisoryUmbrella)
	}
	if in.MinTemp != nil && *in.MinTemp <= FrostTemperature {
		tags = append(tags, AdvisoryFrost)
	}
	if in.MaxWind != nil && *in.MaxWind >= WindyCautionSpeed {
		tags = append(tags, AdvisoryWindy)
	}
	if in.FeelsLike != nil && in.Temperature != nil && *in.FeelsLike <= *in.Temperature-ExtraLayerDelta {
		tags = append(tags, AdvisoryExtraLayer)
	}
	if len(tags) == 0 {
		return []string{AdvisoryNothingNotable}
	}
	return tags
}

func pickEmoji(rain, temp, wind *float64) string {
	switch {
	case rain != nil && *rain > DownpourEmojiProbability:
		return "☔"
	case rain != nil && *rain > ShowerEmojiProbability:
		return "🌦️"
	case temp != nil && *temp <= ColdEmojiTemperature:
		return "❄️"
	case wind != nil && *wind >= WindyCautionSpeed:
		return "💨"
	case temp != nil && *temp >= WarmEmojiTemperature:
		return "☀️"
	default:
		return DefaultEmoji
	}
}

func windowProbability(w Window) *float64 {
	if !w.HasProbability {
		return nil
	}
	v := w.MaxPrecipProbability
	return &v
}

func windowWind(w Window) *float64 {
	if !w.HasWind {
		return nil
	}
	v := w.MaxWindSpeed
	return &v
}

func windowUV(w Window) *float64 {
	if !w.HasUVIndex {
		return nil
	}
	v := w.MaxUVIndex
	return &v
}

func firstPresent(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func maxPresent(vs ...*float64) *float64 {
	var out *float64
	for _, v := range vs {
		if v == nil {
			continue
		}
		if out == nil || *v > *out {
			m := *v
			out = &m
		}
	}
	return out
}

// round is the single presentation rounding rule: nearest integer, halves
// away from zero.
func round(v float64) int {
	return int(math.Round(v))
}
