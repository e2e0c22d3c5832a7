package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/observability"
)

const poiColumns = `poi_id, project_id, name, address, category, priority, notes, assigned_date, assigned_time, latitude, longitude, geocoded, geocode_failed_at, created_at, updated_at`

func scanPOI(row pgx.Row) (domain.POI, error) {
	var (
		p    domain.POI
		day  pgtype.Date
		when pgtype.Time
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Address, &p.Category, &p.Priority, &p.Notes, &day, &when,
		&p.Latitude, &p.Longitude, &p.Geocoded, &p.GeocodeFailedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.AssignedDate = scanDate(day)
	p.AssignedTime = scanClock(when)
	return p, nil
}

// ListPOIs implements domain.POIRepository.
func (r *Repository) ListPOIs(ctx context.Context, projectID string) ([]domain.POI, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+poiColumns+` FROM pois WHERE project_id=$1 ORDER BY created_at, poi_id`, projectID)
	if err != nil {
		return nil, mapError(err, "project", projectID)
	}
	defer rows.Close()

	out := make([]domain.POI, 0)
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPOI implements domain.POIRepository.
func (r *Repository) GetPOI(ctx context.Context, projectID, poiID string) (*domain.POI, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poiColumns+` FROM pois WHERE project_id=$1 AND poi_id=$2`, projectID, poiID)
	p, err := scanPOI(row)
	if err != nil {
		return nil, mapError(err, "poi", poiID)
	}
	return &p, nil
}

// CreatePOI implements domain.POIRepository.
func (r *Repository) CreatePOI(ctx context.Context, p domain.POI, events ...domain.Event) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pois (`+poiColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			p.ID, p.ProjectID, p.Name, p.Address, p.Category, p.Priority, p.Notes,
			optionalDateParam(p.AssignedDate), clockParam(p.AssignedTime),
			p.Latitude, p.Longitude, p.Geocoded, p.GeocodeFailedAt, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events)
	})
	if err != nil {
		return mapError(err, "poi", p.ID)
	}
	observability.RecordActivityPersisted(p.UpdatedAt)
	return nil
}

// UpdatePOI implements domain.POIRepository.
func (r *Repository) UpdatePOI(ctx context.Context, p domain.POI, events ...domain.Event) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE pois SET name=$3, address=$4, category=$5, priority=$6, notes=$7, assigned_date=$8, assigned_time=$9,
                latitude=$10, longitude=$11, geocoded=$12, geocode_failed_at=$13, updated_at=$14
             WHERE project_id=$1 AND poi_id=$2`,
			p.ProjectID, p.ID, p.Name, p.Address, p.Category, p.Priority, p.Notes,
			optionalDateParam(p.AssignedDate), clockParam(p.AssignedTime),
			p.Latitude, p.Longitude, p.Geocoded, p.GeocodeFailedAt, p.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if err := expectRow(tag, "poi", p.ID); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events)
	})
	if err != nil {
		return mapError(err, "poi", p.ID)
	}
	observability.RecordActivityPersisted(p.UpdatedAt)
	return nil
}

// DeletePOI implements domain.POIRepository.
func (r *Repository) DeletePOI(ctx context.Context, projectID, poiID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pois WHERE project_id=$1 AND poi_id=$2`, projectID, poiID)
	if err != nil {
		return mapError(err, "poi", poiID)
	}
	return expectRow(tag, "poi", poiID)
}

// SetPOICoordinates stores resolved coordinates and marks the POI geocoded. It reports
// false when the POI is gone or its address no longer matches.
func (r *Repository) SetPOICoordinates(ctx context.Context, poiID, address string, lat, lng float64) (bool, error) {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE pois SET latitude=$2, longitude=$3, geocoded=TRUE, geocode_failed_at=NULL, updated_at=$4
         WHERE poi_id=$1 AND address=$5`,
		poiID, lat, lng, now, address)
	if err != nil {
		return false, mapError(err, "poi", poiID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	observability.RecordLocationGeocoded(now)
	return true, nil
}

// MarkPOIGeocodeFailed records a lookup for address that matched nothing.
func (r *Repository) MarkPOIGeocodeFailed(ctx context.Context, poiID, address string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pois SET geocode_failed_at=$2 WHERE poi_id=$1 AND address=$3 AND NOT geocoded`,
		poiID, at, address)
	return mapError(err, "poi", poiID)
}

// ListAttachments implements domain.AttachmentRepository.
func (r *Repository) ListAttachments(ctx context.Context, activityID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attachment_id, project_id, activity_id, filename, object_key, content_type, size_bytes, created_at
         FROM attachments WHERE activity_id=$1 ORDER BY created_at, attachment_id`, activityID)
	if err != nil {
		return nil, mapError(err, "activity", activityID)
	}
	defer rows.Close()

	out := make([]domain.Attachment, 0)
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ActivityID, &a.Filename, &a.ObjectKey, &a.ContentType, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAttachment implements domain.AttachmentRepository.
func (r *Repository) GetAttachment(ctx context.Context, activityID, attachmentID string) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.pool.QueryRow(ctx,
		`SELECT attachment_id, project_id, activity_id, filename, object_key, content_type, size_bytes, created_at
         FROM attachments WHERE activity_id=$1 AND attachment_id=$2`, activityID, attachmentID,
	).Scan(&a.ID, &a.ProjectID, &a.ActivityID, &a.Filename, &a.ObjectKey, &a.ContentType, &a.Size, &a.CreatedAt)
	if err != nil {
		return nil, mapError(err, "attachment", attachmentID)
	}
	return &a, nil
}

// CreateAttachment implements domain.AttachmentRepository.
func (r *Repository) CreateAttachment(ctx context.Context, a domain.Attachment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attachments (attachment_id, project_id, activity_id, filename, object_key, content_type, size_bytes, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.ProjectID, a.ActivityID, a.Filename, a.ObjectKey, a.ContentType, a.Size, a.CreatedAt)
	return mapError(err, "attachment", a.ID)
}

// DeleteAttachment implements domain.AttachmentRepository.
func (r *Repository) DeleteAttachment(ctx context.Context, activityID, attachmentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE activity_id=$1 AND attachment_id=$2`, activityID, attachmentID)
	if err != nil {
		return mapError(err, "attachment", attachmentID)
	}
	return expectRow(tag, "attachment", attachmentID)
}
