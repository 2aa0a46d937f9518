package availability

// Interval is one booking's slot as stored: a calendar date plus wall-clock
// start and end. End not after start means the slot runs past midnight.
type Interval struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

func (iv Interval) Span() (Span, error) {
	return SpanOf(iv.Start, iv.End)
}

// ConflictResult is the detector's answer. With names one offending interval
// for diagnostics; which one is reported when several collide is unspecified.
type ConflictResult struct {
	Conflict bool      `json:"conflict"`
	With     *Interval `json:"with,omitempty"`
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) share any minute.
// Both ends must already be normalized. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return max(aStart, bStart) < min(aEnd, bEnd)
}

// Collide compares two spans booked on the same date. A span that runs past
// midnight also occupies the early hours of the date's night, so when either
// side wraps the other is compared a second time one day later.
func Collide(a, b Span) bool {
	if Overlaps(a.StartMin, a.EndMin, b.StartMin, b.EndMin) {
		return true
	}
	if b.EndMin > MinutesPerDay {
		if s := a.shift(MinutesPerDay); Overlaps(s.StartMin, s.EndMin, b.StartMin, b.EndMin) {
			return true
		}
	}
	if a.EndMin > MinutesPerDay {
		if s := b.shift(MinutesPerDay); Overlaps(a.StartMin, a.EndMin, s.StartMin, s.EndMin) {
			return true
		}
	}
	return false
}

// CheckConflict tests candidate against the committed intervals on its date,
// ignoring excludeID so that a booking never conflicts with itself. Committed
// intervals with unparseable times cannot be compared and are skipped. Only a
// malformed candidate produces an error; a conflict is a normal result.
func CheckConflict(candidate Interval, committed []Interval, excludeID string) (ConflictResult, error) {
	if _, err := ParseDate(candidate.Date); err != nil {
		return ConflictResult{}, err
	}
	cs, err := candidate.Span()
	if err != nil {
		return ConflictResult{}, err
	}

	for i := range committed {
		other := committed[i]
		if other.Date != candidate.Date {
			continue
		}
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		span, err := other.Span()
		if err != nil {
			continue
		}
		if Collide(cs, span) {
			return ConflictResult{Conflict: true, With: &other}, nil
		}
	}
	return ConflictResult{}, nil
}
