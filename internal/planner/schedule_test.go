package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeEndTime(t *testing.T) {
	cases := []struct {
		start string
		hours float64
		want  string
	}{
		{"09:00", 1.5, "10:30"},
		{"23:00", 2, "01:00"},
		{"00:00", 0, "00:00"},
		{"12:15", 0.25, "12:30"},
		{"22:30", 25, "23:30"},
		{"08:00:00", 1, "09:00"},
	}
	for _, tc := range cases {
		got, err := ComputeEndTime(tc.start, tc.hours)
		require.NoError(t, err)
		require.Equalf(t, tc.want, got, "%s + %vh", tc.start, tc.hours)
	}
}

func TestComputeEndTimeRejectsBadInput(t *testing.T) {
	var invalid *InvalidDateError

	_, err := ComputeEndTime("09:00", -1)
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "duration", invalid.Field)

	_, err = ComputeEndTime("24:00", 1)
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "time", invalid.Field)

	_, err = ComputeEndTime("9:00", 1)
	require.Error(t, err)
}

func TestSortByTimePutsUntimedFirstAndIsStable(t *testing.T) {
	in := []stubEntry{
		timedEntry("dinner", "2024-07-10", "19:30"),
		entry("hotel-a", "2024-07-10"),
		timedEntry("museum", "2024-07-10", "10:00"),
		entry("hotel-b", "2024-07-10"),
		timedEntry("breakfast", "2024-07-10", "00:00"),
	}

	sorted := SortByTime(in)
	require.Equal(t, []string{"hotel-a", "hotel-b", "breakfast", "museum", "dinner"}, names(sorted))
	require.Equal(t, "dinner", in[0].name, "input must not be reordered")

	again := SortByTime(sorted)
	require.Equal(t, names(sorted), names(again))
}

func TestGroupByDayKeepsInputOrder(t *testing.T) {
	groups := GroupByDay([]stubEntry{
		timedEntry("b", "2024-07-11", "08:00"),
		entry("a", "2024-07-10"),
		timedEntry("c", "2024-07-11", "07:00"),
	})
	require.Len(t, groups, 2)
	require.Equal(t, []string{"a"}, names(groups["2024-07-10"]))
	require.Equal(t, []string{"b", "c"}, names(groups["2024-07-11"]))
}

func TestEntriesOnFiltersAndSorts(t *testing.T) {
	day := MustParseDate("2024-07-11")
	got := EntriesOn([]stubEntry{
		timedEntry("late", "2024-07-11", "21:00"),
		entry("other-day", "2024-07-10"),
		timedEntry("early", "2024-07-11", "06:00"),
	}, day)
	require.Equal(t, []string{"early", "late"}, names(got))

	require.Empty(t, EntriesOn([]stubEntry{}, day))
}
