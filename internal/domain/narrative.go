package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MissingValue stands in for an absent temperature.
const MissingValue = "—"

// Narrative is the structured, localized description of a forecast.
type Narrative struct {
	Emoji           string          `json:"emoji"`
	Title           string          `json:"title"`
	Headline        string          `json:"headline"`
	Paragraphs      []string        `json:"paragraphs"`
	Advisories      []string        `json:"advisories"`
	Confidence      ConfidenceLevel `json:"confidence,omitempty"`
	ConfidenceScore float64         `json:"confidence_score,omitempty"`
	ConfidenceLabel string          `json:"confidence_label"`
	Language        string          `json:"language,omitempty"`
}

// EmptyNarrative is returned when a payload lacks the sections needed to
// derive anything.
func EmptyNarrative() Narrative {
	return Narrative{
		Emoji:      DefaultEmoji,
		Paragraphs: []string{},
		Advisories: []string{},
	}
}

// HasData reports whether the narrative carries derived content.
func (n Narrative) HasData() bool {
	return len(n.Paragraphs) > 0
}

// ComposeOptions controls rendering of an Analysis.
type ComposeOptions struct {
	Location string
	Language string
	Phrases  *PhraseTable     // nil uses DefaultPhraseTable
	Describe WeatherDescriber // nil uses DescribeWeather
}

// NarrativeRequest bundles everything BuildNarrative needs besides the
// payload. Now and Loc are explicit so results are reproducible.
type NarrativeRequest struct {
	Location string
	Language string
	Now      time.Time
	Loc      *time.Location
	Phrases  *PhraseTable
	Describe WeatherDescriber
}

// BuildNarrative analyzes a payload and composes its narrative. Payloads
// missing the current, hourly or daily section yield EmptyNarrative.
func BuildNarrative(p Payload, req NarrativeRequest) Narrative {
	a, ok := Analyze(p, req.Now, req.Loc)
	if !ok {
		return EmptyNarrative()
	}
	return Compose(a, ComposeOptions{
		Location: req.Location,
		Language: req.Language,
		Phrases:  req.Phrases,
		Describe: req.Describe,
	})
}

// Compose renders an Analysis into a narrative. Paragraphs always come in
// the same order: current conditions, today, rain, wind, advice, confidence.
func Compose(a Analysis, opts ComposeOptions) Narrative {
	c := newComposer(opts)
	label := c.render("confidence."+string(a.Confidence.Level), nil)

	return Narrative{
		Emoji:    a.Emoji,
		Title:    c.title(),
		Headline: c.headline(a, label),
		Paragraphs: []string{
			c.current(a),
			c.today(a),
			c.rain(a),
			c.wind(a),
			c.advice(a),
			c.confidence(a, label),
		},
		Advisories:      append([]string{}, a.Advisories...),
		Confidence:      a.Confidence.Level,
		ConfidenceScore: a.Confidence.Score,
		ConfidenceLabel: label,
		Language:        c.lang,
	}
}

type vars = map[string]string

type composer struct {
	lang     string
	location string
	phrases  *PhraseTable
	describe WeatherDescriber
}

func newComposer(opts ComposeOptions) *composer {
	c := &composer{
		location: strings.TrimSpace(opts.Location),
		phrases:  opts.Phrases,
		describe: opts.Describe,
	}
	if c.phrases == nil {
		c.phrases = DefaultPhraseTable()
	}
	if c.describe == nil {
		c.describe = DescribeWeather
	}
	c.lang = c.phrases.Base()
	if lang, ok := NormalizeLanguage(opts.Language); ok {
		c.lang = lang
	}
	return c
}

func (c *composer) render(key string, v vars) string {
	return c.phrases.Render(c.lang, key, v)
}

func (c *composer) conditions(code int) string {
	return c.describe(c.lang, code)
}

func (c *composer) title() string {
	if c.location == "" {
		return c.render("title_unnamed", nil)
	}
	return c.render("title", vars{"location": c.location})
}

func (c *composer) headline(a Analysis, label string) string {
	code := FallbackWeatherCode
	switch {
	case !a.Next6h.Empty():
		code = a.Next6h.DominantWeatherCode
	case a.Current.WeatherCode != nil:
		code = *a.Current.WeatherCode
	}
	return c.render("headline", vars{
		"temp":       formatTemp(a.Current.Temperature),
		"conditions": c.conditions(code),
		"rain":       formatPercent(a.RainProbability),
		"confidence": label,
	})
}

func (c *composer) current(a Analysis) string {
	cur := a.Current
	code := FallbackWeatherCode
	if cur.WeatherCode != nil {
		code = *cur.WeatherCode
	}
	feels := cur.ApparentTemperature
	if feels == nil {
		feels = cur.Temperature
	}

	summary := "current.summary"
	if c.location == "" {
		summary = "current.summary_unnamed"
	}
	sentences := []string{c.render(summary, vars{
		"location":   c.location,
		"temp":       formatTemp(cur.Temperature),
		"feels":      formatTemp(feels),
		"conditions": c.conditions(code),
	})}
	if cur.Humidity != nil {
		sentences = append(sentences, c.render("current.humidity", vars{"humidity": formatNumber(*cur.Humidity)}))
	}
	if cur.Temperature != nil && cur.ApparentTemperature != nil {
		diff := *cur.ApparentTemperature - *cur.Temperature
		switch {
		case diff <= -FeelsLikeNoticeDelta:
			sentences = append(sentences, c.render("current.feels_cooler", nil))
		case diff >= FeelsLikeNoticeDelta:
			sentences = append(sentences, c.render("current.feels_warmer", nil))
		}
	}
	return joinSentences(sentences)
}

func (c *composer) today(a Analysis) string {
	var sentences []string
	if a.Today.MinTemp == nil || a.Today.MaxTemp == nil {
		sentences = append(sentences, c.render("today.no_data", nil))
	} else {
		sentences = append(sentences, c.render("today.range", vars{
			"min": formatTemp(a.Today.MinTemp),
			"max": formatTemp(a.Today.MaxTemp),
		}))
		if a.TodayHourly.MaxTemp != nil && !a.TodayHourly.MaxTempAt.IsZero() {
			sentences = append(sentences, c.render("today.peak_hour", vars{"hour": formatHour(a.TodayHourly.MaxTempAt)}))
		}
	}

	for _, part := range a.Parts {
		if part.Empty() {
			continue
		}
		sentences = append(sentences, c.render("part.summary", vars{
			"part":       c.render("part."+part.Label, nil),
			"min":        formatTemp(part.MinTemp),
			"max":        formatTemp(part.MaxTemp),
			"conditions": c.conditions(part.DominantWeatherCode),
			"details":    c.partDetails(part),
		}))
	}
	if !a.Tonight.Empty() {
		sentences = append(sentences, c.render("tonight.summary", vars{
			"conditions": c.conditions(a.Tonight.DominantWeatherCode),
			"min":        formatTemp(a.Tonight.MinTemp),
			"max":        formatTemp(a.Tonight.MaxTemp),
			"rain":       formatNumber(a.Tonight.MaxPrecipProbability),
		}))
	}
	if a.Tomorrow.MinTemp != nil && a.Tomorrow.MaxTemp != nil {
		sentences = append(sentences, c.render("tomorrow.summary", vars{
			"conditions": c.conditions(a.Tomorrow.DominantWeatherCode),
			"min":        formatTemp(a.Tomorrow.MinTemp),
			"max":        formatTemp(a.Tomorrow.MaxTemp),
			"rain":       formatNumber(a.Tomorrow.MaxPrecipProbability),
			"wind":       formatNumber(a.Tomorrow.MaxWindSpeed),
		}))
	}
	return joinSentences(sentences)
}

// partDetails lists the rain and wind clauses of a day-part summary, each
// prefixed with a comma. Values no sample carried are left out.
func (c *composer) partDetails(w Window) string {
	var b strings.Builder
	if w.HasProbability {
		b.WriteString(", ")
		b.WriteString(c.render("part.rain", vars{"rain": formatNumber(w.MaxPrecipProbability)}))
	}
	if w.HasWind {
		b.WriteString(", ")
		b.WriteString(c.render("part.wind", vars{"wind": formatNumber(w.MaxWindSpeed)}))
	}
	return b.String()
}

func (c *composer) rain(a Analysis) string {
	amount := a.Next24h.PrecipSum
	if !a.Today.Empty() {
		amount = a.Today.PrecipSum
	}

	if a.PrimaryRain == nil {
		if a.RainProbability != nil && *a.RainProbability >= IsolatedShowersProbability {
			return c.render("rain.isolated", vars{
				"rain":   formatPercent(a.RainProbability),
				"amount": formatAmount(amount),
			})
		}
		return c.render("rain.low_risk", vars{"rain": formatPercent(a.RainProbability)})
	}

	w := *a.PrimaryRain
	sentences := []string{c.render("rain.window", vars{
		"start": formatHour(a.Upcoming[w.StartIndex].Time),
		"end":   formatHour(a.Upcoming[w.EndIndex].Time),
	})}
	if w.PeakProbability > 0 {
		sentences = append(sentences, c.render("rain.peak", vars{
			"peak": formatNumber(w.PeakProbability),
			"hour": formatHour(a.Upcoming[w.PeakIndex].Time),
		}))
	}
	switch {
	case amount >= SignificantAccumulation:
		sentences = append(sentences, c.render("rain.accumulation_significant", vars{"amount": formatAmount(amount)}))
	case amount >= ModerateAccumulation:
		sentences = append(sentences, c.render("rain.accumulation_moderate", vars{"amount": formatAmount(amount)}))
	default:
		sentences = append(sentences, c.render("rain.accumulation_light", nil))
	}
	return joinSentences(sentences)
}

func (c *composer) wind(a Analysis) string {
	now := 0.0
	if a.Current.WindSpeed != nil {
		now = *a.Current.WindSpeed
	}
	peak := now
	if a.MaxWind != nil {
		peak = *a.MaxWind
	}
	v := vars{"wind": formatNumber(now), "max": formatNumber(peak)}
	switch {
	case peak >= WindyCautionSpeed:
		return c.render("wind.strong", v)
	case peak >= ModerateWindSpeed:
		return c.render("wind.moderate", v)
	default:
		return c.render("wind.calm", v)
	}
}

var advisoryKeys = map[string]string{
	AdvisoryUmbrella:   "advice.umbrella",
	AdvisoryFrost:      "advice.frost",
	AdvisoryWindy:      "advice.windy",
	AdvisoryExtraLayer: "advice.extra_layer",
}

func (c *composer) advice(a Analysis) string {
	var tips []string
	for _, tag := range a.Advisories {
		if key, ok := advisoryKeys[tag]; ok {
			tips = append(tips, c.render(key, nil))
		}
	}
	if a.UVIndex != nil && *a.UVIndex >= SunProtectionUVIndex {
		tips = append(tips, c.render("advice.sun_protection", nil))
	}
	if len(tips) == 0 {
		return c.render("advice.none", nil)
	}
	return c.render("advice.intro", vars{"tips": strings.Join(tips, ", ")})
}

func (c *composer) confidence(a Analysis, label string) string {
	rain := defaultRainConfidence
	if a.RainProbability != nil {
		rain = *a.RainProbability
	}
	wind := 0.0
	if a.MaxWind != nil {
		wind = *a.MaxWind
	}
	return joinSentences([]string{
		c.render("confidence.statement", vars{"label": label}),
		c.render("confidence.rationale_"+string(a.Confidence.Level), nil),
		c.render("confidence.inputs", vars{"rain": formatNumber(rain), "wind": formatNumber(wind)}),
	})
}

func joinSentences(s []string) string {
	return strings.Join(s, " ")
}

func formatNumber(v float64) string {
	return strconv.Itoa(round(v))
}

func formatPercent(v *float64) string {
	if v == nil {
		return "0"
	}
	return formatNumber(*v)
}

func formatTemp(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return MissingValue
	}
	return formatNumber(*v) + "°C"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}

func formatHour(t time.Time) string {
	return strconv.Itoa(t.Hour()) + "h"
}
