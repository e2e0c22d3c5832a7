package domain

import (
	"context"
	"time"

	"example.com/tripplanner/internal/planner"
)

// MonthCalendar is the month grid of a project together with the selected day's activities.
type MonthCalendar struct {
	Grid               planner.MonthGrid
	Today              planner.Date
	Selected           planner.Date
	SelectedActivities []Activity
}

// YearPlanning is the week-by-week planning of a project for one year.
type YearPlanning struct {
	Year     int
	Today    planner.Date
	Weeks    []planner.Week[Activity]
	ScrollTo *planner.Week[Activity]
}

// MonthCalendar builds the month grid of a project. A nil selected day selects today.
func (s *Service) MonthCalendar(ctx context.Context, principal Principal, projectID string, year int, month time.Month, selected *planner.Date) (MonthCalendar, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return MonthCalendar{}, err
	}
	activities, err := s.repo.ListActivities(ctx, projectID)
	if err != nil {
		return MonthCalendar{}, err
	}

	today := s.Today()
	day := today
	if selected != nil {
		day = *selected
	}
	grid, err := planner.BuildMonthGrid(year, month, activities, day, today)
	if err != nil {
		return MonthCalendar{}, err
	}
	return MonthCalendar{
		Grid:               grid,
		Today:              today,
		Selected:           day,
		SelectedActivities: planner.EntriesOn(activities, day),
	}, nil
}

// YearPlanning builds the planning of a project for year and picks the week to open on.
func (s *Service) YearPlanning(ctx context.Context, principal Principal, projectID string, year int) (YearPlanning, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return YearPlanning{}, err
	}
	activities, err := s.repo.ListActivities(ctx, projectID)
	if err != nil {
		return YearPlanning{}, err
	}
	annotations, err := s.annotationMap(ctx, projectID)
	if err != nil {
		return YearPlanning{}, err
	}

	today := s.Today()
	weeks := planner.BuildYearPlanning(year, activities, annotations, today)
	view := YearPlanning{Year: year, Today: today, Weeks: weeks}
	if target, ok := planner.ScrollTarget(weeks, activities, today); ok {
		view.ScrollTo = &target
	}
	return view, nil
}
