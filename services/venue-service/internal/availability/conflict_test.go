package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(id, date, start, end string) Interval {
	return Interval{ID: id, Date: date, Start: start, End: end}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(600, 720, 660, 780))
	assert.False(t, Overlaps(600, 720, 720, 780), "touching is not overlapping")
	assert.True(t, Overlaps(600, 720, 540, 1440))
	assert.False(t, Overlaps(600, 720, 300, 600))
}

func TestCheckConflict_TouchingIsAllowed(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "10:00", "12:00")}
	res, err := CheckConflict(iv("B", "2024-01-01", "12:00", "13:00"), committed, "B")
	require.NoError(t, err)
	assert.False(t, res.Conflict)
	assert.Nil(t, res.With)
}

func TestCheckConflict_Overlap(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-01", "08:00", "09:00"),
		iv("B", "2024-01-01", "10:00", "12:00"),
	}
	res, err := CheckConflict(iv("C", "2024-01-01", "11:30", "12:30"), committed, "C")
	require.NoError(t, err)
	require.True(t, res.Conflict)
	assert.Equal(t, "B", res.With.ID)
}

func TestCheckConflict_OvernightWraparound(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "22:00", "02:00")}

	res, err := CheckConflict(iv("B", "2024-01-01", "01:00", "03:00"), committed, "")
	require.NoError(t, err)
	assert.True(t, res.Conflict, "01:00-03:00 falls inside the tail of 22:00-02:00")

	res, err = CheckConflict(iv("B", "2024-01-01", "02:00", "03:00"), committed, "")
	require.NoError(t, err)
	assert.False(t, res.Conflict, "starting exactly when the tail ends touches only")

	res, err = CheckConflict(iv("B", "2024-01-01", "21:00", "22:30"), committed, "")
	require.NoError(t, err)
	assert.True(t, res.Conflict)
}

func TestCheckConflict_BothWrap(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "23:00", "01:00")}
	res, err := CheckConflict(iv("B", "2024-01-01", "23:30", "00:30"), committed, "")
	require.NoError(t, err)
	assert.True(t, res.Conflict)
}

func TestCheckConflict_CandidateWrapsOverEarlyBooking(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "00:30", "01:30")}
	res, err := CheckConflict(iv("B", "2024-01-01", "23:00", "01:00"), committed, "")
	require.NoError(t, err)
	assert.True(t, res.Conflict)
}

func TestCheckConflict_FullDay(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "10:00", "10:00")}
	res, err := CheckConflict(iv("B", "2024-01-01", "15:00", "16:00"), committed, "")
	require.NoError(t, err)
	assert.True(t, res.Conflict, "start == end occupies 24 hours")
}

func TestCheckConflict_FiltersDateAndSelf(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-02", "10:00", "12:00"),
		iv("SELF", "2024-01-01", "10:00", "12:00"),
		iv("BAD", "2024-01-01", "nope", "12:00"),
	}
	res, err := CheckConflict(iv("SELF", "2024-01-01", "10:30", "11:30"), committed, "SELF")
	require.NoError(t, err)
	assert.False(t, res.Conflict)
}

func TestCheckConflict_InvalidCandidate(t *testing.T) {
	_, err := CheckConflict(iv("X", "2024-01-01", "25:00", "26:00"), nil, "")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)

	_, err = CheckConflict(iv("X", "tomorrow", "10:00", "11:00"), nil, "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCollide_Symmetric(t *testing.T) {
	clocks := []string{"00:00", "01:00", "02:00", "09:30", "12:00", "18:00", "22:00", "23:30"}
	for _, s1 := range clocks {
		for _, e1 := range clocks {
			for _, s2 := range clocks {
				for _, e2 := range clocks {
					a, _ := SpanOf(s1, e1)
					b, _ := SpanOf(s2, e2)
					assert.Equal(t, Collide(a, b), Collide(b, a), "%s-%s vs %s-%s", s1, e1, s2, e2)
				}
			}
		}
	}
}
