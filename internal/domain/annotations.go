package domain

import (
	"context"
	"strings"

	"example.com/tripplanner/internal/planner"
)

// DayAnnotations returns a project's annotations keyed by YYYY-MM-DD.
func (s *Service) DayAnnotations(ctx context.Context, principal Principal, projectID string) (map[string]planner.Annotation, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return nil, err
	}
	return s.annotationMap(ctx, projectID)
}

func (s *Service) annotationMap(ctx context.Context, projectID string) (map[string]planner.Annotation, error) {
	rows, err := s.repo.Annotations(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]planner.Annotation, len(rows))
	for _, row := range rows {
		out[row.Date.String()] = row.Annotation
	}
	return out, nil
}

// SetDayAnnotation stores the label and location of a day. When both are blank the
// annotation is removed instead, so an empty annotation is never persisted.
func (s *Service) SetDayAnnotation(ctx context.Context, principal Principal, projectID, day, label, location string) (*planner.Annotation, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	date, err := planner.ParseDate(day)
	if err != nil {
		return nil, err
	}
	annotation := planner.Annotation{
		Label:    strings.TrimSpace(label),
		Location: strings.TrimSpace(location),
	}
	if annotation.IsEmpty() {
		return nil, s.repo.DeleteAnnotation(ctx, projectID, date)
	}
	if err := s.repo.UpsertAnnotation(ctx, DayAnnotation{ProjectID: projectID, Date: date, Annotation: annotation}); err != nil {
		return nil, err
	}
	return &annotation, nil
}
