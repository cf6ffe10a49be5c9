package domain

import "math"

// ConfidenceLevel is the tri-level label derived from a confidence score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Confidence is a bounded reliability estimate for a forecast.
type Confidence struct {
	Score float64         `json:"score"`
	Level ConfidenceLevel `json:"level"`
}

// Bounds and weights of the confidence score.
const (
	confidenceBase        = 0.85
	confidenceRainWeight  = 0.35
	confidenceWindWeight  = 0.25
	confidenceWindScale   = 60.0 // km/h at which the wind penalty saturates
	confidenceMin         = 0.25
	confidenceMax         = 0.95
	defaultRainConfidence = 50.0
)

// EstimateConfidence scores a forecast from its rain probability (percent)
// and wind speed (km/h). A nil probability counts as 50% (maximal
// uncertainty) and a nil wind speed as calm.
func EstimateConfidence(rainProbability, windSpeed *float64) Confidence {
	p := defaultRainConfidence
	if rainProbability != nil && !math.IsNaN(*rainProbability) {
		p = *rainProbability
	}
	w := 0.0
	if windSpeed != nil && !math.IsNaN(*windSpeed) {
		w = *windSpeed
	}

	midUncertainty := 1 - math.Abs(p-50)/50
	windPenalty := clamp(w/confidenceWindScale, 0, 1)
	score := clamp(confidenceBase-confidenceRainWeight*midUncertainty-confidenceWindWeight*windPenalty, confidenceMin, confidenceMax)

	return Confidence{Score: score, Level: ConfidenceLevelOf(score)}
}

// ConfidenceLevelOf maps a score to its level. Cutoffs are inclusive.
func ConfidenceLevelOf(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceScore:
		return ConfidenceHigh
	case score >= MediumConfidenceScore:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
