// Package postgres implements the trip repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/planner"
)

// Repository provides Postgres-backed persistence for trips and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ domain.Repository = (*Repository)(nil)

// inTx runs fn inside a transaction that is committed when fn returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mapError translates driver errors into domain errors.
func mapError(err error, kind, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrConflict)
		case "23503", "22P02":
			// Foreign key violations and malformed uuids both mean the parent does not exist.
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
	}
	return err
}

func expectRow(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func dateParam(d planner.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func optionalDateParam(d *planner.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return dateParam(*d)
}

func clockParam(c *planner.Clock) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(*c) * int64(time.Minute/time.Microsecond), Valid: true}
}

func scanDate(d pgtype.Date) *planner.Date {
	if !d.Valid {
		return nil
	}
	out := planner.DateOf(d.Time)
	return &out
}

func scanClock(t pgtype.Time) *planner.Clock {
	if !t.Valid {
		return nil
	}
	c := planner.Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
	return &c
}

const projectColumns = `project_id, owner_id, name, description, travelers, created_at, updated_at`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Travelers, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects implements domain.ProjectRepository.
func (r *Repository) ListProjects(ctx context.Context, principal domain.Principal, cursor *domain.Cursor, limit int) ([]domain.Project, *domain.Cursor, error) {
	args := []any{principal.UserID, domain.NormalizeEmail(principal.Email), limit}
	query := `SELECT ` + projectColumns + ` FROM projects p
        WHERE (p.owner_id = $1 OR ($2 <> '' AND EXISTS (
            SELECT 1 FROM project_shares s WHERE s.project_id = p.project_id AND s.email = $2)))`

	if cursor != nil {
		query += ` AND (p.created_at, p.project_id) < ($4, $5)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY p.created_at DESC, p.project_id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Project, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, next, nil
}

// GetProject implements domain.ProjectRepository.
func (r *Repository) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_id = $1`, projectID)
	p, err := scanProject(row)
	if err != nil {
		return nil, mapError(err, "project", projectID)
	}
	return &p, nil
}

// CreateProject inserts the project and any seed activities in one transaction.
func (r *Repository) CreateProject(ctx context.Context, project domain.Project, activities []domain.Activity) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO projects (`+projectColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			project.ID, project.OwnerID, project.Name, project.Description, nonNil(project.Travelers), project.CreatedAt, project.UpdatedAt,
		); err != nil {
			return err
		}
		for _, a := range activities {
			if err := insertActivity(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err, "project", project.ID)
}

// UpdateProject implements domain.ProjectRepository.
func (r *Repository) UpdateProject(ctx context.Context, project domain.Project) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET name=$2, description=$3, travelers=$4, updated_at=$5 WHERE project_id=$1`,
		project.ID, project.Name, project.Description, nonNil(project.Travelers), project.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "project", project.ID)
	}
	return expectRow(tag, "project", project.ID)
}

// DeleteProject implements domain.ProjectRepository. Foreign keys cascade to dependent rows.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE project_id=$1`, projectID)
	if err != nil {
		return mapError(err, "project", projectID)
	}
	return expectRow(tag, "project", projectID)
}

// ListShares implements domain.ProjectRepository.
func (r *Repository) ListShares(ctx context.Context, projectID string) ([]domain.Share, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT share_id, project_id, email, permission, created_at FROM project_shares
         WHERE project_id=$1 ORDER BY created_at, email`, projectID)
	if err != nil {
		return nil, mapError(err, "project", projectID)
	}
	defer rows.Close()

	out := make([]domain.Share, 0)
	for rows.Next() {
		var s domain.Share
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Email, &s.Permission, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindShare implements domain.ProjectRepository.
func (r *Repository) FindShare(ctx context.Context, projectID, email string) (*domain.Share, error) {
	var s domain.Share
	err := r.pool.QueryRow(ctx,
		`SELECT share_id, project_id, email, permission, created_at FROM project_shares
         WHERE project_id=$1 AND email=$2`, projectID, domain.NormalizeEmail(email),
	).Scan(&s.ID, &s.ProjectID, &s.Email, &s.Permission, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err, "share", email)
	}
	return &s, nil
}

// CreateShare implements domain.ProjectRepository.
func (r *Repository) CreateShare(ctx context.Context, share domain.Share) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO project_shares (share_id, project_id, email, permission, created_at) VALUES ($1,$2,$3,$4,$5)`,
		share.ID, share.ProjectID, share.Email, share.Permission, share.CreatedAt,
	)
	return mapError(err, "share", share.Email)
}

// DeleteShare implements domain.ProjectRepository.
func (r *Repository) DeleteShare(ctx context.Context, projectID, shareID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM project_shares WHERE project_id=$1 AND share_id=$2`, projectID, shareID)
	if err != nil {
		return mapError(err, "share", shareID)
	}
	return expectRow(tag, "share", shareID)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
