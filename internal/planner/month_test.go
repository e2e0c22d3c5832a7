package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildMonthGridAlwaysFullyPopulated(t *testing.T) {
	for year := 1990; year <= 2040; year++ {
		for month := time.January; month <= time.December; month++ {
			grid, err := BuildMonthGrid[stubEntry](year, month, nil, Date{}, Date{})
			require.NoError(t, err)

			inMonth := 0
			for i, cell := range grid.Cells {
				require.Falsef(t, cell.Date.IsZero(), "%d-%02d cell %d empty", year, month, i)
				if i > 0 {
					require.Equal(t, grid.Cells[i-1].Date.AddDays(1), cell.Date)
				}
				if cell.InMonth {
					inMonth++
				}
			}
			require.Equal(t, DaysIn(year, month), inMonth)
			require.Equal(t, time.Monday, grid.Cells[0].Date.Weekday())
		}
	}
}

func TestBuildMonthGridFebruary2024(t *testing.T) {
	today := MustParseDate("2024-02-14")
	selected := MustParseDate("2024-02-20")
	entries := []stubEntry{
		entry("ski", "2024-02-20"),
		entry("leak", "2024-01-30"),
		entry("spring", "2024-03-02"),
	}

	grid, err := BuildMonthGrid(2024, time.February, entries, selected, today)
	require.NoError(t, err)

	// 1 Feb 2024 is a Thursday: three leading January days.
	require.Equal(t, "2024-01-29", grid.Cells[0].Date.String())
	require.False(t, grid.Cells[0].InMonth)
	require.False(t, grid.Cells[1].HasEvents, "adjacent month cells carry no flags")
	require.Equal(t, 1, grid.Cells[3].Day)
	require.True(t, grid.Cells[3].InMonth)

	feb14 := grid.Cells[3+13]
	require.True(t, feb14.IsToday)
	require.False(t, feb14.IsSelected)

	feb20 := grid.Cells[3+19]
	require.True(t, feb20.IsSelected)
	require.True(t, feb20.HasEvents)

	// 29 days of February, then March 1..10.
	require.Equal(t, "2024-02-29", grid.Cells[31].Date.String())
	require.Equal(t, "2024-03-01", grid.Cells[32].Date.String())
	require.Equal(t, "2024-03-10", grid.Cells[41].Date.String())
	for _, cell := range grid.Cells[32:] {
		require.False(t, cell.InMonth)
		require.False(t, cell.HasEvents)
		require.False(t, cell.IsToday)
		require.False(t, cell.IsSelected)
	}
}

func TestBuildMonthGridStartingOnMonday(t *testing.T) {
	grid, err := BuildMonthGrid[stubEntry](2024, time.January, nil, Date{}, Date{})
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", grid.Cells[0].Date.String())
	require.True(t, grid.Cells[0].InMonth)
	require.Equal(t, "2024-02-11", grid.Cells[41].Date.String())
}

func TestBuildMonthGridRejectsInvalidMonth(t *testing.T) {
	_, err := BuildMonthGrid[stubEntry](2024, 13, nil, Date{}, Date{})
	var invalid *InvalidDateError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "month", invalid.Field)
}
