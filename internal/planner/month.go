package planner

import (
	"strconv"
	"time"
)

// GridCells is the fixed size of a month grid: six Monday-first weeks.
const GridCells = 42

// Cell is one square of the month grid. Only cells of the displayed month carry flags.
type Cell struct {
	Date       Date `json:"date"`
	Day        int  `json:"day"`
	InMonth    bool `json:"in_month"`
	IsToday    bool `json:"is_today"`
	IsSelected bool `json:"is_selected"`
	HasEvents  bool `json:"has_events"`
}

// MonthGrid is the calendar of one month padded with the neighbouring months.
type MonthGrid struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Cells [GridCells]Cell `json:"cells"`
}

// BuildMonthGrid lays out month of year as 42 Monday-first cells: the tail of the
// previous month, every day of the month, then the head of the next month.
func BuildMonthGrid[E Entry](year int, month time.Month, entries []E, selected, today Date) (MonthGrid, error) {
	if month < time.January || month > time.December {
		return MonthGrid{}, &InvalidDateError{Field: "month", Value: strconv.Itoa(int(month)), Reason: "must be between 1 and 12"}
	}

	busy := make(map[Date]struct{}, len(entries))
	for _, e := range entries {
		busy[e.CalendarDate()] = struct{}{}
	}

	first := Date{Year: year, Month: month, Day: 1}
	lead := (int(first.Weekday()) + 6) % 7
	days := DaysIn(year, month)

	grid := MonthGrid{Year: year, Month: month}
	i := 0
	for d := first.AddDays(-lead); d.Before(first); d = d.AddDays(1) {
		grid.Cells[i] = Cell{Date: d, Day: d.Day}
		i++
	}
	for day := 1; day <= days; day++ {
		d := Date{Year: year, Month: month, Day: day}
		_, has := busy[d]
		grid.Cells[i] = Cell{
			Date:       d,
			Day:        day,
			InMonth:    true,
			IsToday:    d == today,
			IsSelected: d == selected,
			HasEvents:  has,
		}
		i++
	}
	next := first.AddDays(days)
	for ; i < GridCells; i++ {
		grid.Cells[i] = Cell{Date: next, Day: next.Day}
		next = next.AddDays(1)
	}
	return grid, nil
}
