package availability

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeWindows_SingleBooking(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "10:00", "12:00")}

	got, err := FreeWindows("2024-01-01", "2024-01-01", "09:00", "21:00", committed, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-01", got[0].Date)
	assert.Equal(t, []Span{{StartMin: 540, EndMin: 600}, {StartMin: 720, EndMin: 1260}}, got[0].Free)
}

func TestFreeWindows_NoBookings(t *testing.T) {
	got, err := FreeWindows("2024-01-30", "2024-02-02", "09:00", "21:00", nil, 0)
	require.NoError(t, err)

	var dates []string
	for _, day := range got {
		dates = append(dates, day.Date)
		assert.Equal(t, []Span{{StartMin: 540, EndMin: 1260}}, day.Free)
	}
	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, dates)
}

func TestFreeWindows_FullyCovered(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-01", "08:00", "22:00"),
		iv("B", "2024-01-02", "09:00", "21:00"),
	}
	got, err := FreeWindows("2024-01-01", "2024-01-02", "09:00", "21:00", committed, 0)
	require.NoError(t, err)
	for _, day := range got {
		assert.Empty(t, day.Free, day.Date)
		assert.NotNil(t, day.Free, "free list encodes as [] not null")
	}
}

func TestFreeWindows_MergesTouchingAndOverlapping(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-01", "10:00", "11:00"),
		iv("B", "2024-01-01", "11:00", "12:00"),
		iv("C", "2024-01-01", "11:30", "13:00"),
		iv("D", "2024-01-01", "15:00", "16:00"),
	}
	got, err := FreeWindows("2024-01-01", "2024-01-01", "09:00", "21:00", committed, 0)
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{StartMin: 540, EndMin: 600},
		{StartMin: 780, EndMin: 900},
		{StartMin: 960, EndMin: 1260},
	}, got[0].Free)
}

func TestFreeWindows_OvernightWindow(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-01", "22:00", "01:00"),
		iv("B", "2024-01-01", "06:00", "07:00"),
	}
	got, err := FreeWindows("2024-01-01", "2024-01-01", "18:00", "03:00", committed, 0)
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{StartMin: 1080, EndMin: 1320},
		{StartMin: 1500, EndMin: 1620},
	}, got[0].Free, "06:00-07:00 lies outside the 18:00-03:00 window")
}

func TestFreeWindows_ClipsToWindow(t *testing.T) {
	committed := []Interval{iv("A", "2024-01-01", "07:00", "10:00"), iv("B", "2024-01-01", "20:00", "23:00")}
	got, err := FreeWindows("2024-01-01", "2024-01-01", "09:00", "21:00", committed, 0)
	require.NoError(t, err)
	assert.Equal(t, []Span{{StartMin: 600, EndMin: 1200}}, got[0].Free)
}

func TestFreeWindows_ReversedRangeIsEmpty(t *testing.T) {
	got, err := FreeWindows("2024-01-05", "2024-01-01", "09:00", "21:00", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFreeWindows_InputErrors(t *testing.T) {
	_, err := FreeWindows("2024-01-01", "2024-01-01", "9am", "21:00", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)

	_, err = FreeWindows("2024-13-01", "2024-01-01", "09:00", "21:00", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = FreeWindows("2024-01-01", "2024-03-01", "09:00", "21:00", nil, 31)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDateRange_Bounds(t *testing.T) {
	dates, err := DateRange("2024-02-28", "2024-03-01", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, dates)

	_, err = DateRange("2024-02-28", "2024-03-01", 2)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestMergeSpans_DoesNotMutateInput(t *testing.T) {
	in := []Span{{StartMin: 50, EndMin: 60}, {StartMin: 10, EndMin: 20}}
	out := MergeSpans(in)
	assert.Equal(t, []Span{{StartMin: 10, EndMin: 20}, {StartMin: 50, EndMin: 60}}, out)
	assert.Equal(t, 50, in[0].StartMin)
}

func randomClock(r *rand.Rand) string {
	return fmt.Sprintf("%02d:%02d", r.Intn(24), r.Intn(4)*15)
}

// Free and occupied spans tile the window exactly: sorted, disjoint, no gaps.
func TestFreeWindows_ComplementLaw(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	windows := [][2]string{{"09:00", "21:00"}, {"18:00", "03:00"}, {"00:00", "00:00"}, {"06:15", "06:30"}}

	for round := 0; round < 300; round++ {
		w := windows[round%len(windows)]
		window, err := ParseWindow(w[0], w[1])
		require.NoError(t, err)

		var committed []Interval
		n := r.Intn(8)
		for i := 0; i < n; i++ {
			committed = append(committed, iv(fmt.Sprint(i), "2024-01-01", randomClock(r), randomClock(r)))
		}

		occupied := OccupiedOn("2024-01-01", window, committed)
		free := FreeWindowsOn([]string{"2024-01-01"}, window, committed)[0].Free

		for i := 1; i < len(free); i++ {
			assert.Less(t, free[i-1].EndMin, free[i].StartMin, "free spans are disjoint, sorted and never touch")
		}

		all := append(slices.Clone(free), occupied...)
		slices.SortFunc(all, func(a, b Span) int { return a.StartMin - b.StartMin })
		cursor := window.StartMin
		for _, s := range all {
			require.Equal(t, cursor, s.StartMin, "round %d: gap or overlap at %d", round, cursor)
			require.False(t, s.Empty())
			cursor = s.EndMin
		}
		require.Equal(t, window.EndMin, cursor, "round %d", round)
	}
}

func TestFreeWindows_Idempotent(t *testing.T) {
	committed := []Interval{
		iv("A", "2024-01-02", "10:00", "12:00"),
		iv("B", "2024-01-01", "20:00", "02:00"),
		iv("C", "2024-01-02", "09:00", "10:30"),
	}
	first, err := FreeWindows("2024-01-01", "2024-01-03", "09:00", "23:00", committed, 0)
	require.NoError(t, err)
	second, err := FreeWindows("2024-01-01", "2024-01-03", "09:00", "23:00", committed, 0)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}
