package availability

import (
	"fmt"
	"slices"
)

// DefaultMaxDays bounds a single availability query when the caller sets no limit.
const DefaultMaxDays = 366

// DayFree lists the free spans of one calendar date, ascending.
type DayFree struct {
	Date string `json:"date"`
	Free []Span `json:"free"`
}

// DateRange returns every calendar date in [from, to]. from after to is not an
// error and yields no dates. Ranges longer than maxDays are rejected.
func DateRange(from, to string, maxDays int) ([]string, error) {
	start, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, nil
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrInvalidRange, days, maxDays)
	}

	dates := make([]string, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}

// ParseWindow parses the daily operating window. An end at or before the start
// closes the window on the following day.
func ParseWindow(dayStart, dayEnd string) (Span, error) {
	return SpanOf(dayStart, dayEnd)
}

// Clip intersects s with window; ok is false when nothing is left.
func Clip(s, window Span) (Span, bool) {
	c := Span{StartMin: max(s.StartMin, window.StartMin), EndMin: min(s.EndMin, window.EndMin)}
	if c.Empty() {
		return Span{}, false
	}
	return c, true
}

// MergeSpans sorts spans by start and merges overlapping or touching ones.
// The input is not modified.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := slices.Clone(spans)
	slices.SortFunc(sorted, func(a, b Span) int {
		if a.StartMin != b.StartMin {
			return a.StartMin - b.StartMin
		}
		return a.EndMin - b.EndMin
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.StartMin <= last.EndMin {
			last.EndMin = max(last.EndMin, s.EndMin)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Subtract walks merged occupied spans left to right and returns the gaps
// inside window. occupied must come from MergeSpans.
func Subtract(window Span, occupied []Span) []Span {
	free := make([]Span, 0, len(occupied)+1)
	cursor := window.StartMin
	for _, m := range occupied {
		if m.StartMin > cursor {
			free = append(free, Span{StartMin: cursor, EndMin: m.StartMin})
		}
		cursor = max(cursor, m.EndMin)
	}
	if cursor < window.EndMin {
		free = append(free, Span{StartMin: cursor, EndMin: window.EndMin})
	}
	return free
}

// OccupiedOn returns the merged coverage of committed intervals on date,
// clipped to window. Intervals with unparseable times are ignored.
func OccupiedOn(date string, window Span, committed []Interval) []Span {
	var clipped []Span
	for _, iv := range committed {
		if iv.Date != date {
			continue
		}
		s, err := iv.Span()
		if err != nil {
			continue
		}
		if c, ok := Clip(s, window); ok {
			clipped = append(clipped, c)
		}
	}
	return MergeSpans(clipped)
}

// FreeWindowsOn computes free spans for each date. Output order follows dates.
func FreeWindowsOn(dates []string, window Span, committed []Interval) []DayFree {
	byDate := make(map[string][]Interval, len(dates))
	for _, iv := range committed {
		byDate[iv.Date] = append(byDate[iv.Date], iv)
	}

	out := make([]DayFree, 0, len(dates))
	for _, d := range dates {
		out = append(out, DayFree{
			Date: d,
			Free: Subtract(window, OccupiedOn(d, window, byDate[d])),
		})
	}
	return out
}

// FreeWindows is the whole availability calculation: validate the range and the
// window, then subtract committed intervals date by date.
func FreeWindows(from, to, dayStart, dayEnd string, committed []Interval, maxDays int) ([]DayFree, error) {
	window, err := ParseWindow(dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	dates, err := DateRange(from, to, maxDays)
	if err != nil {
		return nil, err
	}
	return FreeWindowsOn(dates, window, committed), nil
}
