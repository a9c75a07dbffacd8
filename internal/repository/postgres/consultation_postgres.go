package postgres

import (
	"context"
	"database/sql"
	"time"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// ConsultationPostgres is a PostgreSQL implementation of repository.ConsultationRepository.
type ConsultationPostgres struct {
	q Querier
}

var _ repository.ConsultationRepository = (*ConsultationPostgres)(nil)

const consultationColumns = `id, user_id, document_id, document_kind, location, consultation_date, start_time, end_time, status`

// Create inserts a new consultation row and returns the stored record.
func (r *ConsultationPostgres) Create(ctx context.Context, cons *model.Consultation) (*model.Consultation, error) {
	const q = `
		INSERT INTO consultations (id, user_id, document_id, document_kind, location, consultation_date, start_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + consultationColumns + `
	`
	row := r.q.QueryRowContext(ctx, q,
		cons.ID,
		cons.UserID,
		cons.DocumentID,
		string(cons.DocumentKind),
		cons.Location,
		cons.ConsultationDate,
		cons.StartTime,
		string(cons.Status),
	)
	return scanConsultation(row)
}

// FindByID fetches a single consultation by its ID.
func (r *ConsultationPostgres) FindByID(ctx context.Context, id string) (*model.Consultation, error) {
	const q = `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE id = $1
	`
	return scanConsultation(r.q.QueryRowContext(ctx, q, id))
}

// CountActive counts active consultations for a document.
func (r *ConsultationPostgres) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM consultations
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, documentID, string(kind)).Scan(&n)
	return n, err
}

// HasActive reports whether the user already holds an active consultation for the document.
func (r *ConsultationPostgres) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE user_id = $1 AND document_id = $2 AND document_kind = $3 AND status = 'active'
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, q, userID, documentID, string(kind)).Scan(&exists)
	return exists, err
}

// Close sets a terminal status; end_time stays null for cancellations.
func (r *ConsultationPostgres) Close(ctx context.Context, id string, to model.ConsultationStatus, endTime *time.Time) error {
	const q = `
		UPDATE consultations
		SET status = $2, end_time = $3
		WHERE id = $1
	`
	var end sql.NullTime
	if endTime != nil {
		end = sql.NullTime{Time: *endTime, Valid: true}
	}
	res, err := r.q.ExecContext(ctx, q, id, string(to), end)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanConsultation(row *sql.Row) (*model.Consultation, error) {
	var c model.Consultation
	var end sql.NullTime
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.DocumentID,
		&c.DocumentKind,
		&c.Location,
		&c.ConsultationDate,
		&c.StartTime,
		&end,
		&c.Status,
	); err != nil {
		return nil, err
	}
	if end.Valid {
		c.EndTime = &end.Time
	}
	return &c, nil
}
