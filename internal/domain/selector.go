package domain

import "time"

// Selector decides whether the sample at index belongs to a window.
type Selector func(index int, s Sample) bool

// DayPart is one of the fixed local-hour buckets of a day.
type DayPart string

const (
	Night     DayPart = "night"
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
)

// tonightEndOffset closes "tonight" at 06:00 on the day after the reference day.
const tonightEndOffset = 30

// All selects every sample.
func All() Selector {
	return func(int, Sample) bool { return true }
}

// IndexRange selects samples with index in [start, end).
func IndexRange(start, end int) Selector {
	return func(i int, _ Sample) bool { return i >= start && i < end }
}

// HourRange selects samples whose local hour-of-day is in [from, to).
func HourRange(from, to int) Selector {
	return func(_ int, s Sample) bool {
		h := s.Time.Hour()
		return h >= from && h < to
	}
}

// From selects samples at or after t.
func From(t time.Time) Selector {
	return func(_ int, s Sample) bool { return !s.Time.Before(t) }
}

// OnDate selects samples falling on day's calendar date, in day's location.
func OnDate(day time.Time) Selector {
	y, m, d := day.Date()
	loc := day.Location()
	return func(_ int, s Sample) bool {
		sy, sm, sd := s.Time.In(loc).Date()
		return sy == y && sm == m && sd == d
	}
}

// DayPartOf maps an hour offset from the reference day's midnight to its
// day-part. Negative offsets belong to no part.
func DayPartOf(offset int) (DayPart, bool) {
	switch {
	case offset < 0:
		return "", false
	case offset < 6:
		return Night, true
	case offset < 12:
		return Morning, true
	case offset < 18:
		return Afternoon, true
	case offset < 24:
		return Evening, true
	default:
		return Night, true
	}
}

// InDayPart selects samples in the given day-part of ref's day.
func InDayPart(ref time.Time, part DayPart) Selector {
	return func(_ int, s Sample) bool {
		p, ok := DayPartOf(HourOffset(ref, s.Time))
		return ok && p == part
	}
}

// Tonight selects the night samples following ref: from ref's hour up to
// 06:00 the next morning, or up to 06:00 the same day when ref is already
// in the small hours.
func Tonight(ref time.Time) Selector {
	start := ref.Hour()
	end := tonightEndOffset
	if start < 6 {
		end = 6
	}
	return func(_ int, s Sample) bool {
		offset := HourOffset(ref, s.Time)
		p, ok := DayPartOf(offset)
		return ok && p == Night && offset >= start && offset < end
	}
}

// And selects samples matched by every selector.
func And(sels ...Selector) Selector {
	return func(i int, s Sample) bool {
		for _, sel := range sels {
			if sel != nil && !sel(i, s) {
				return false
			}
		}
		return true
	}
}

// HourOffset returns the whole hours between ref's local midnight and t,
// counted in calendar days plus local hour so DST days keep fixed buckets.
func HourOffset(ref, t time.Time) int {
	loc := ref.Location()
	t = t.In(loc)
	ry, rm, rd := ref.Date()
	ty, tm, td := t.Date()
	refDay := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	tDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	days := int(tDay.Sub(refDay).Hours() / 24)
	return days*24 + t.Hour()
}
