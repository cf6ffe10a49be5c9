package domain

// Thresholds used across the engine. This table is the single source of truth;
// the composer, detector and estimator all read from it.
const (
	// Rain window detection.
	DefaultRainThreshold = 50.0 // precipitation probability, %
	DefaultPrecipEpsilon = 0.1  // measured precipitation, mm

	// Advisories.
	UmbrellaProbability = 60.0 // %
	FrostTemperature    = 0.0  // °C, inclusive
	WindyCautionSpeed   = 35.0 // km/h
	ExtraLayerDelta     = 2.0  // °C below the actual temperature

	// Advice tips outside the advisory tag set.
	SunProtectionUVIndex = 6.0 // daily max UV index, inclusive

	// Narrative wording.
	IsolatedShowersProbability = 30.0 // %
	SignificantAccumulation    = 5.0  // mm
	ModerateAccumulation       = 1.0  // mm
	ModerateWindSpeed          = 25.0 // km/h
	FeelsLikeNoticeDelta       = 2.0  // °C either way

	// Emoji selection.
	DownpourEmojiProbability = 70.0 // %, exclusive
	ShowerEmojiProbability   = 40.0 // %, exclusive
	ColdEmojiTemperature     = 1.0  // °C, inclusive
	WarmEmojiTemperature     = 22.0 // °C, inclusive

	// Confidence levels.
	HighConfidenceScore   = 0.72
	MediumConfidenceScore = 0.50

	// Lookahead windows, in hourly samples.
	HeadlineHours = 6
	OutlookHours  = 24
)
