// Package domain derives human-readable forecast narratives for Belgian
// locations from Open-Meteo forecast payloads.
//
// # Data Source
//
// Payloads come from the Open-Meteo forecast API, requested with
// timezone=Europe/Brussels. Each payload has three sections:
//
//	current: single readings (temperature_2m, apparent_temperature, ...)
//	hourly:  parallel arrays indexed by hour, up to 48 entries are used
//	daily:   parallel arrays indexed by day, up to 7 entries are used
//
// Timestamps are local wall-clock strings without an offset, e.g.
// "2025-01-14T15:00" for hourly and "2025-01-14" for daily entries. They are
// parsed in the configured location.
//
// # Derivation Pipeline
//
//	payload → Normalize → {Aggregate, ScanRain} → EstimateConfidence → Compose
//
// Normalize turns parallel arrays into a Series of Samples. Missing, null or
// non-finite values become nil fields, never zero. Samples with unparseable
// timestamps are dropped.
//
// Aggregate summarizes any sub-range of a Series into a Window. Selectors
// pick the sub-range: an index range, an hour-of-day range, a calendar date
// or a day-part relative to a reference day:
//
//	night      [0h, 6h)  and [24h, ∞)
//	morning    [6h, 12h)
//	afternoon  [12h, 18h)
//	evening    [18h, 24h)
//
// The dominant weather code of a Window is the mode of the selected samples.
// Ties go to the code seen first in scan order.
//
// ScanRain finds maximal contiguous runs of rainy samples, where a sample is
// rainy when its precipitation probability reaches the threshold (50%) or its
// measured amount exceeds the epsilon (0.1 mm).
//
// EstimateConfidence maps the headline rain probability and maximum wind to a
// score in [0.25, 0.95]:
//
//	mid   = 1 - |p - 50| / 50
//	wind  = clamp(w / 60, 0, 1)
//	score = clamp(0.85 - 0.35*mid - 0.25*wind, 0.25, 0.95)
//
// Scores of 0.72 and above are "high", 0.50 and above "medium", the rest "low".
//
// # Phrase Tables
//
// Narrative sentences are rendered from templates with {name} placeholders.
// Tables for fr, nl, de and en are embedded from phrases/*.yaml. A key missing
// in the requested language falls back to French, and a key missing in French
// renders a generic placeholder sentence so every paragraph stays non-empty.
//
// # Purity
//
// Nothing in this package performs I/O or keeps mutable state between calls.
// The caller samples "now" once per narrative and passes it in, so day-part
// bucketing is consistent within a narrative and identical inputs produce
// identical output.
package domain
