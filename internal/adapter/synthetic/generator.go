// Package synthetic produces plausible Belgian winter forecasts without a
// network round trip. The pipeline falls back to it when the forecast API is
// unreachable and SYNTHETIC_FALLBACK is enabled.
package synthetic

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// Hours and Days are the lengths of the generated hourly and daily sections.
	Hours = 48
	Days  = 7

	hourLayout = "2006-01-02T15:04"
	dayLayout  = "2006-01-02"
)

// Generator builds synthetic payloads. The same seed, place and local day
// always produce the same forecast.
type Generator struct {
	seed  uint64
	loc   *time.Location
	clock clockwork.Clock
}

// NewGenerator creates a generator emitting timestamps in loc.
func NewGenerator(seed uint64, loc *time.Location, clock clockwork.Clock) *Generator {
	return &Generator{seed: seed, loc: loc, clock: clock}
}

// FetchForecast implements domain.ForecastFetcher.
func (g *Generator) FetchForecast(ctx context.Context, lat, lon float64) (domain.Payload, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payload{}, err
	}
	return g.Generate(g.clock.Now(), lat, lon), nil
}

// Generate returns a payload whose hourly section starts at the local hour
// containing now and whose daily section starts at the local day.
func (g *Generator) Generate(now time.Time, lat, lon float64) domain.Payload {
	local := now.In(g.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
	hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, g.loc)

	r := rand.New(rand.NewPCG(g.seed, placeSeed(lat, lon, day)))
	base := between(r, 4, 8)

	return domain.Payload{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  g.loc.String(),
		Current:   current(r, base, local),
		Hourly:    hourly(r, base, hour),
		Daily:     daily(r, day),
	}
}

func current(r *rand.Rand, base float64, now time.Time) *domain.CurrentBlock {
	rainy := r.Float64() > 0.45
	cloudy := r.Float64() > 0.35

	code, precip := 1.0, 0.0
	switch {
	case rainy:
		code, precip = 61, r.Float64()*3
	case cloudy:
		code = 3
	}

	return &domain.CurrentBlock{
		Time:                now.Format(hourLayout),
		Temperature:         domain.Float(base),
		ApparentTemperature: domain.Float(base - between(r, 1, 3)),
		RelativeHumidity:    domain.Float(between(r, 75, 95)),
		Precipitation:       domain.Float(precip),
		WeatherCode:         domain.Float(code),
		WindSpeed:           domain.Float(between(r, 10, 28)),
	}
}

func hourly(r *rand.Rand, base float64, start time.Time) *domain.HourlyBlock {
	h := &domain.HourlyBlock{
		Time:                     make([]string, 0, Hours),
		Temperature:              make([]*float64, 0, Hours),
		ApparentTemperature:      make([]*float64, 0, Hours),
		PrecipitationProbability: make([]*float64, 0, Hours),
		Precipitation:            make([]*float64, 0, Hours),
		WeatherCode:              make([]*float64, 0, Hours),
		WindSpeed:                make([]*float64, 0, Hours),
	}

	for i := range Hours {
		t := start.Add(time.Duration(i) * time.Hour)
		temp := base + diurnal(t.Hour()) + (r.Float64()-0.5)*2
		chance := math.Round(between(r, 20, 90))
		amount := 0.0
		if chance > 60 {
			amount = r.Float64() * 2
		}
		wind := between(r, 10, 30)

		h.Time = append(h.Time, t.Format(hourLayout))
		h.Temperature = append(h.Temperature, domain.Float(temp))
		h.ApparentTemperature = append(h.ApparentTemperature, domain.Float(temp-wind/15))
		h.PrecipitationProbability = append(h.PrecipitationProbability, domain.Float(chance))
		h.Precipitation = append(h.Precipitation, domain.Float(amount))
		h.WeatherCode = append(h.WeatherCode, domain.Float(hourCode(chance)))
		h.WindSpeed = append(h.WindSpeed, domain.Float(wind))
	}
	return h
}

func daily(r *rand.Rand, start time.Time) *domain.DailyBlock {
	d := &domain.DailyBlock{}
	for i := range Days {
		rainy := r.Float64() > 0.55

		code := 1.0
		switch {
		case rainy:
			code = 61
		case r.Float64() > 0.4:
			code = 3
		}
		prob, sum := between(r, 15, 50), r.Float64()*2
		if rainy {
			prob, sum = between(r, 60, 95), r.Float64()*9
		}

		d.Time = append(d.Time, start.AddDate(0, 0, i).Format(dayLayout))
		d.WeatherCode = append(d.WeatherCode, domain.Float(code))
		d.TemperatureMax = append(d.TemperatureMax, domain.Float(between(r, 5, 12)))
		d.TemperatureMin = append(d.TemperatureMin, domain.Float(between(r, 0, 5)))
		d.PrecipitationProbabilityMax = append(d.PrecipitationProbabilityMax, domain.Float(math.Round(prob)))
		d.PrecipitationSum = append(d.PrecipitationSum, domain.Float(sum))
		d.WindSpeedMax = append(d.WindSpeedMax, domain.Float(between(r, 15, 40)))
		d.UVIndexMax = append(d.UVIndexMax, domain.Float(between(r, 1, 4)))
	}
	return d
}

// diurnal is the temperature offset for an hour of day: warmer from 06h to
// 14h, colder from 22h to 05h.
func diurnal(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 14:
		return 2
	case hour >= 22 || hour <= 5:
		return -2
	default:
		return 0
	}
}

func hourCode(chance float64) float64 {
	switch {
	case chance > 75:
		return 61
	case chance > 45:
		return 3
	default:
		return 1
	}
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func placeSeed(lat, lon float64, day time.Time) uint64 {
	return math.Float64bits(lat) ^ math.Float64bits(lon)<<1 ^ uint64(day.Unix())
}
