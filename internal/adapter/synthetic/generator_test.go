package synthetic

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brussels(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Brussels")
	require.NoError(t, err)
	return loc
}

func TestGenerate_Shape(t *testing.T) {
	loc := brussels(t)
	now := time.Date(2024, 1, 15, 9, 42, 0, 0, loc)
	p := NewGenerator(7, loc, clockwork.NewFakeClockAt(now)).Generate(now, 50.85, 4.35)

	require.NotNil(t, p.Current)
	require.NotNil(t, p.Hourly)
	require.NotNil(t, p.Daily)
	assert.Equal(t, "Europe/Brussels", p.Timezone)

	assert.Len(t, p.Hourly.Time, Hours)
	assert.Len(t, p.Hourly.Temperature, Hours)
	assert.Len(t, p.Hourly.WindSpeed, Hours)
	assert.Equal(t, "2024-01-15T09:00", p.Hourly.Time[0])
	assert.Equal(t, "2024-01-17T08:00", p.Hourly.Time[Hours-1])

	assert.Len(t, p.Daily.Time, Days)
	assert.Equal(t, "2024-01-15", p.Daily.Time[0])
	assert.Equal(t, "2024-01-21", p.Daily.Time[Days-1])
}

func TestGenerate_Deterministic(t *testing.T) {
	loc := brussels(t)
	morning := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)
	evening := time.Date(2024, 1, 15, 9, 59, 0, 0, loc)
	g := NewGenerator(42, loc, clockwork.NewFakeClock())

	a := g.Generate(morning, 50.85, 4.35)
	b := g.Generate(evening, 50.85, 4.35)
	// Current.Time follows now; everything else is seeded by place and day.
	b.Current.Time = a.Current.Time
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed, place and hour differ (-a +b):\n%s", diff)
	}

	other := g.Generate(morning, 51.05, 3.72)
	assert.NotEqual(t, *a.Current.Temperature, *other.Current.Temperature)
}

func TestGenerate_Ranges(t *testing.T) {
	loc := brussels(t)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)

	for seed := range uint64(20) {
		p := NewGenerator(seed, loc, clockwork.NewFakeClock()).Generate(now, 50.85, 4.35)

		c := p.Current
		assert.GreaterOrEqual(t, *c.Temperature, 4.0)
		assert.Less(t, *c.Temperature, 8.0)
		assert.Less(t, *c.ApparentTemperature, *c.Temperature)
		assert.GreaterOrEqual(t, *c.RelativeHumidity, 75.0)
		assert.Contains(t, []float64{1, 3, 61}, *c.WeatherCode)

		for i := range Hours {
			prob := *p.Hourly.PrecipitationProbability[i]
			assert.GreaterOrEqual(t, prob, 20.0)
			assert.LessOrEqual(t, prob, 90.0)
			if prob <= 60 {
				assert.Zero(t, *p.Hourly.Precipitation[i])
			}
			wind := *p.Hourly.WindSpeed[i]
			assert.GreaterOrEqual(t, wind, 10.0)
			assert.Less(t, wind, 30.0)
		}

		for i := range Days {
			assert.GreaterOrEqual(t, *p.Daily.TemperatureMax[i], 5.0)
			assert.Less(t, *p.Daily.TemperatureMin[i], 5.0)
			if *p.Daily.WeatherCode[i] == 61 {
				assert.GreaterOrEqual(t, *p.Daily.PrecipitationProbabilityMax[i], 60.0)
			} else {
				assert.LessOrEqual(t, *p.Daily.PrecipitationProbabilityMax[i], 50.0)
			}
		}
	}
}

func TestDiurnal(t *testing.T) {
	assert.InDelta(t, 2, diurnal(6), 0)
	assert.InDelta(t, 2, diurnal(14), 0)
	assert.InDelta(t, 0, diurnal(18), 0)
	assert.InDelta(t, -2, diurnal(22), 0)
	assert.InDelta(t, -2, diurnal(5), 0)
}

func TestHourCode(t *testing.T) {
	assert.InDelta(t, 61, hourCode(80), 0)
	assert.InDelta(t, 3, hourCode(60), 0)
	assert.InDelta(t, 1, hourCode(45), 0)
}

func TestFetchForecast_UsesClockAndFeedsNarrative(t *testing.T) {
	loc := brussels(t)
	now := time.Date(2024, 3, 12, 10, 30, 0, 0, loc)
	g := NewGenerator(1, loc, clockwork.NewFakeClockAt(now))

	p, err := g.FetchForecast(context.Background(), 50.85, 4.35)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-12T10:00", p.Hourly.Time[0])

	n := domain.BuildNarrative(p, domain.NarrativeRequest{
		Location: "Bruxelles",
		Language: "fr",
		Now:      now,
		Loc:      loc,
	})
	assert.True(t, n.HasData())
	assert.Len(t, n.Paragraphs, 6)
	assert.NotEmpty(t, n.Headline)
}

func TestFetchForecast_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(1, time.UTC, clockwork.NewFakeClock()).FetchForecast(ctx, 0, 0)
	require.ErrorIs(t, err, context.Canceled)
}
