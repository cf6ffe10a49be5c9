package domain

// EventWindow is a maximal run of rainy samples. Bounds are inclusive.
type EventWindow struct {
	StartIndex      int     `json:"start_index"`
	EndIndex        int     `json:"end_index"`
	PeakProbability float64 `json:"peak_probability"`
	PeakIndex       int     `json:"peak_index"`
}

// Contains reports whether index lies inside the run.
func (e EventWindow) Contains(index int) bool {
	return index >= e.StartIndex && index <= e.EndIndex
}

// Peak is the single worst moment of a series. Index is -1 when no sample
// carries a positive probability.
type Peak struct {
	Value float64 `json:"value"`
	Index int     `json:"index"`
}

// RainScan is the result of one pass over a series.
type RainScan struct {
	Windows    []EventWindow `json:"windows"`
	GlobalPeak Peak          `json:"global_peak"`
}

// IsRainy reports whether a sample satisfies the rain predicate. Absent
// values never satisfy it.
func IsRainy(s Sample, threshold, epsilon float64) bool {
	if s.PrecipitationProbability != nil && *s.PrecipitationProbability >= threshold {
		return true
	}
	return s.PrecipitationAmount != nil && *s.PrecipitationAmount > epsilon
}

// ScanRain walks the series once, collecting rain runs and the global
// probability peak.
func ScanRain(series Series, threshold, epsilon float64) RainScan {
	scan := RainScan{Windows: []EventWindow{}, GlobalPeak: Peak{Index: -1}}

	var run *EventWindow
	for i, s := range series {
		if p := s.PrecipitationProbability; p != nil && *p > scan.GlobalPeak.Value {
			scan.GlobalPeak = Peak{Value: *p, Index: i}
		}

		if !IsRainy(s, threshold, epsilon) {
			if run != nil {
				scan.Windows = append(scan.Windows, *run)
				run = nil
			}
			continue
		}

		if run == nil {
			run = &EventWindow{StartIndex: i, EndIndex: i, PeakIndex: i}
			if p := s.PrecipitationProbability; p != nil {
				run.PeakProbability = *p
			}
			continue
		}
		run.EndIndex = i
		if p := s.PrecipitationProbability; p != nil && *p > run.PeakProbability {
			run.PeakProbability = *p
			run.PeakIndex = i
		}
	}
	if run != nil {
		scan.Windows = append(scan.Windows, *run)
	}
	return scan
}

// FindRainWindows returns every rain run in start order; empty when no
// sample is rainy.
func FindRainWindows(series Series, threshold, epsilon float64) []EventWindow {
	return ScanRain(series, threshold, epsilon).Windows
}

// GlobalRainPeak returns the maximal precipitation probability across the
// whole series regardless of run membership.
func GlobalRainPeak(series Series) Peak {
	return ScanRain(series, DefaultRainThreshold, DefaultPrecipEpsilon).GlobalPeak
}

// PrimaryRainWindow picks the run containing nowIndex, or else the run
// nearest to it. An earlier run wins a distance tie.
func PrimaryRainWindow(windows []EventWindow, nowIndex int) (EventWindow, bool) {
	if len(windows) == 0 {
		return EventWindow{}, false
	}

	best, bestDist := 0, -1
	for i, w := range windows {
		if w.Contains(nowIndex) {
			return w, true
		}
		dist := w.StartIndex - nowIndex
		if nowIndex > w.EndIndex {
			dist = nowIndex - w.EndIndex
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return windows[best], true
}
