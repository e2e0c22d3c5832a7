package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/observability"
	"example.com/tripplanner/internal/planner"
)

const activityColumns = `activity_id, project_id, title, day, start_time, duration_hours, category, location, url, notes, travelers, latitude, longitude, geocoded, geocode_failed_at, created_at, updated_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a     domain.Activity
		day   pgtype.Date
		start pgtype.Time
	)
	err := row.Scan(&a.ID, &a.ProjectID, &a.Title, &day, &start, &a.Duration, &a.Category, &a.Location, &a.URL,
		&a.Notes, &a.Travelers, &a.Latitude, &a.Longitude, &a.Geocoded, &a.GeocodeFailedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	if d := scanDate(day); d != nil {
		a.Date = *d
	}
	a.Time = scanClock(start)
	return a, nil
}

func insertActivity(ctx context.Context, tx pgx.Tx, a domain.Activity) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.ProjectID, a.Title, dateParam(a.Date), clockParam(a.Time), a.Duration, a.Category, a.Location, a.URL,
		a.Notes, nonNil(a.Travelers), a.Latitude, a.Longitude, a.Geocoded, a.GeocodeFailedAt, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// ListActivities implements domain.ActivityRepository.
func (r *Repository) ListActivities(ctx context.Context, projectID string) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE project_id=$1
         ORDER BY day, COALESCE(start_time, TIME '00:00'), created_at, activity_id`, projectID)
	if err != nil {
		return nil, mapError(err, "project", projectID)
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetActivity implements domain.ActivityRepository.
func (r *Repository) GetActivity(ctx context.Context, projectID, activityID string) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE project_id=$1 AND activity_id=$2`, projectID, activityID)
	a, err := scanActivity(row)
	if err != nil {
		return nil, mapError(err, "activity", activityID)
	}
	return &a, nil
}

// CreateActivity persists the activity and records outbox events inside a single transaction.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity, events ...domain.Event) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertActivity(ctx, tx, activity); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events)
	})
	if err != nil {
		return mapError(err, "activity", activity.ID)
	}
	observability.RecordActivityPersisted(activity.UpdatedAt)
	return nil
}

// UpdateActivity implements domain.ActivityRepository.
func (r *Repository) UpdateActivity(ctx context.Context, a domain.Activity, events ...domain.Event) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE activities SET title=$3, day=$4, start_time=$5, duration_hours=$6, category=$7, location=$8, url=$9,
                notes=$10, travelers=$11, latitude=$12, longitude=$13, geocoded=$14, geocode_failed_at=$15, updated_at=$16
             WHERE project_id=$1 AND activity_id=$2`,
			a.ProjectID, a.ID, a.Title, dateParam(a.Date), clockParam(a.Time), a.Duration, a.Category, a.Location, a.URL,
			a.Notes, nonNil(a.Travelers), a.Latitude, a.Longitude, a.Geocoded, a.GeocodeFailedAt, a.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if err := expectRow(tag, "activity", a.ID); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events)
	})
	if err != nil {
		return mapError(err, "activity", a.ID)
	}
	observability.RecordActivityPersisted(a.UpdatedAt)
	return nil
}

// DeleteActivity implements domain.ActivityRepository.
func (r *Repository) DeleteActivity(ctx context.Context, projectID, activityID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE project_id=$1 AND activity_id=$2`, projectID, activityID)
	if err != nil {
		return mapError(err, "activity", activityID)
	}
	return expectRow(tag, "activity", activityID)
}

// SetActivityCoordinates stores resolved coordinates and marks the activity geocoded. It
// reports false when the activity is gone or its location no longer matches.
func (r *Repository) SetActivityCoordinates(ctx context.Context, activityID, location string, lat, lng float64) (bool, error) {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET latitude=$2, longitude=$3, geocoded=TRUE, geocode_failed_at=NULL, updated_at=$4
         WHERE activity_id=$1 AND location=$5`,
		activityID, lat, lng, now, location)
	if err != nil {
		return false, mapError(err, "activity", activityID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	observability.RecordLocationGeocoded(now)
	return true, nil
}

// MarkActivityGeocodeFailed records a lookup for location that matched nothing.
func (r *Repository) MarkActivityGeocodeFailed(ctx context.Context, activityID, location string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE activities SET geocode_failed_at=$2 WHERE activity_id=$1 AND location=$3 AND NOT geocoded`,
		activityID, at, location)
	return mapError(err, "activity", activityID)
}

// ProjectsPendingGeocode implements domain.ActivityRepository.
func (r *Repository) ProjectsPendingGeocode(ctx context.Context, retryBefore time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT project_id::text FROM activities
         WHERE location <> '' AND NOT geocoded AND (geocode_failed_at IS NULL OR geocode_failed_at < $1)
        UNION
        SELECT project_id::text FROM pois
         WHERE address <> '' AND NOT geocoded AND (geocode_failed_at IS NULL OR geocode_failed_at < $1)
        ORDER BY 1`, retryBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Annotations implements domain.AnnotationRepository.
func (r *Repository) Annotations(ctx context.Context, projectID string) ([]domain.DayAnnotation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT project_id, day, label, location FROM day_annotations WHERE project_id=$1 ORDER BY day`, projectID)
	if err != nil {
		return nil, mapError(err, "project", projectID)
	}
	defer rows.Close()

	out := make([]domain.DayAnnotation, 0)
	for rows.Next() {
		var (
			a   domain.DayAnnotation
			day pgtype.Date
		)
		if err := rows.Scan(&a.ProjectID, &day, &a.Label, &a.Location); err != nil {
			return nil, err
		}
		if d := scanDate(day); d != nil {
			a.Date = *d
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAnnotation implements domain.AnnotationRepository.
func (r *Repository) UpsertAnnotation(ctx context.Context, a domain.DayAnnotation) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO day_annotations (project_id, day, label, location, updated_at) VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (project_id, day) DO UPDATE SET label=EXCLUDED.label, location=EXCLUDED.location, updated_at=NOW()`,
		a.ProjectID, dateParam(a.Date), a.Label, a.Location)
	return mapError(err, "annotation", a.Date.String())
}

// DeleteAnnotation implements domain.AnnotationRepository.
func (r *Repository) DeleteAnnotation(ctx context.Context, projectID string, date planner.Date) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM day_annotations WHERE project_id=$1 AND day=$2`, projectID, dateParam(date))
	return mapError(err, "annotation", date.String())
}
