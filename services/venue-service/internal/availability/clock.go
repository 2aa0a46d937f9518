package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the wraparound offset for intervals that end after midnight.
const MinutesPerDay = 24 * 60

const dateLayout = "2006-01-02"

// ParseClock converts a wall-clock "HH:MM" (or "H:MM") into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return h*60 + m, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders minutes as "HH:MM", folding values past midnight back into the day.
func FormatClock(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeEnd moves an end that is not strictly after its start to the
// following day. start == end therefore spans a full 24 hours.
func NormalizeEnd(startMin, endMin int) int {
	if endMin <= startMin {
		return endMin + MinutesPerDay
	}
	return endMin
}

// ParseDate validates a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Span is a half-open minute interval [StartMin, EndMin) on one date's timeline.
// EndMin may exceed MinutesPerDay for intervals that cross midnight.
type Span struct {
	StartMin int `json:"startMin"`
	EndMin   int `json:"endMin"`
}

func (s Span) Empty() bool { return s.StartMin >= s.EndMin }

func (s Span) Minutes() int {
	if s.Empty() {
		return 0
	}
	return s.EndMin - s.StartMin
}

func (s Span) shift(by int) Span {
	return Span{StartMin: s.StartMin + by, EndMin: s.EndMin + by}
}

// SpanOf parses one start/end pair and applies NormalizeEnd to it.
func SpanOf(start, end string) (Span, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Span{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Span{}, err
	}
	return Span{StartMin: s, EndMin: NormalizeEnd(s, e)}, nil
}
