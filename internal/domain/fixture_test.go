package domain

import (
	"time"
)

var (
	testZone     = time.FixedZone("CET", 3600)
	testMidnight = time.Date(2024, 3, 12, 0, 0, 0, 0, testZone)
	testNow      = time.Date(2024, 3, 12, 10, 30, 0, 0, testZone)
)

func repeat(n int, v float64) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = Float(v)
	}
	return out
}

func hourStamps(start time.Time, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
	}
	return out
}

func dayStamps(start time.Time, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	return out
}

// testPayload is a calm, dry, mild forecast starting at testMidnight:
// 48 hourly samples at 12°C and 7 daily entries between 8 and 15°C.
func testPayload() Payload {
	const hours, days = 48, 7
	return Payload{
		Latitude:  50.8503,
		Longitude: 4.3517,
		Timezone:  "Europe/Brussels",
		Current: &CurrentBlock{
			Time:                "2024-03-12T10:30",
			Temperature:         Float(12),
			ApparentTemperature: Float(12),
			RelativeHumidity:    Float(70),
			Precipitation:       Float(0),
			WeatherCode:         Float(2),
			WindSpeed:           Float(10),
		},
		Hourly: &HourlyBlock{
			Time:                     hourStamps(testMidnight, hours),
			Temperature:              repeat(hours, 12),
			ApparentTemperature:      repeat(hours, 12),
			PrecipitationProbability: repeat(hours, 20),
			Precipitation:            repeat(hours, 0),
			WeatherCode:              repeat(hours, 2),
			WindSpeed:                repeat(hours, 10),
		},
		Daily: &DailyBlock{
			Time:                        dayStamps(testMidnight, days),
			WeatherCode:                 repeat(days, 2),
			TemperatureMax:              repeat(days, 15),
			TemperatureMin:              repeat(days, 8),
			PrecipitationProbabilityMax: repeat(days, 20),
			PrecipitationSum:            repeat(days, 0),
			WindSpeedMax:                repeat(days, 15),
			UVIndexMax:                  repeat(days, 3),
		},
	}
}

func englishRequest() NarrativeRequest {
	return NarrativeRequest{
		Location: "Brussels",
		Language: "en",
		Now:      testNow,
		Loc:      testZone,
	}
}

func probabilities(vs ...float64) Series {
	series := make(Series, len(vs))
	for i, v := range vs {
		series[i] = Sample{
			Time:                     testMidnight.Add(time.Duration(i) * time.Hour),
			PrecipitationProbability: Float(v),
		}
	}
	return series
}
