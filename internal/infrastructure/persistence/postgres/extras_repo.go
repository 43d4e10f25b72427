package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
)

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY EXTRAS REPOSITORY IMPLEMENTATION
// At most one row per student; every write is an upsert.
// ══════════════════════════════════════════════════════════════════════════════

// ExtrasRepository implements evaluation.ExtrasRepository for PostgreSQL.
type ExtrasRepository struct {
	conn *Connection
}

// NewExtrasRepository creates a new ExtrasRepository.
func NewExtrasRepository(conn *Connection) *ExtrasRepository {
	return &ExtrasRepository{conn: conn}
}

// Get returns the student's extras, zero-valued when absent.
func (r *ExtrasRepository) Get(ctx context.Context, studentID string) (*evaluation.Extras, error) {
	query := `
		SELECT student_id, general_comment, general_photo_url, general_photo_key, updated_at
		FROM history_extras
		WHERE student_id = $1
	`

	var e evaluation.Extras
	err := r.conn.QueryRow(ctx, query, studentID).Scan(
		&e.StudentID,
		&e.GeneralComment,
		&e.GeneralPhotoURL,
		&e.GeneralPhotoKey,
		&e.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return &evaluation.Extras{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("failed to get history extras: %w", err)
	}

	return &e, nil
}

// UpsertComment creates or updates the general comment.
func (r *ExtrasRepository) UpsertComment(ctx context.Context, studentID, comment string) error {
	query := `
		INSERT INTO history_extras (student_id, general_comment, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id)
		DO UPDATE SET general_comment = EXCLUDED.general_comment, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.conn.Exec(ctx, query, studentID, comment, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert extras comment: %w", err)
	}
	return nil
}

// UpsertPhoto creates or updates the general photo association.
func (r *ExtrasRepository) UpsertPhoto(ctx context.Context, studentID, url, storageKey string) error {
	query := `
		INSERT INTO history_extras (student_id, general_photo_url, general_photo_key, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id)
		DO UPDATE SET general_photo_url = EXCLUDED.general_photo_url,
			general_photo_key = EXCLUDED.general_photo_key,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.conn.Exec(ctx, query, studentID, url, storageKey, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert extras photo: %w", err)
	}
	return nil
}

// ClearPhoto removes the general photo association. Idempotent: clearing a
// missing row is a no-op.
func (r *ExtrasRepository) ClearPhoto(ctx context.Context, studentID string) error {
	query := `
		UPDATE history_extras
		SET general_photo_url = '', general_photo_key = '', updated_at = $2
		WHERE student_id = $1
	`

	if _, err := r.conn.Exec(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to clear extras photo: %w", err)
	}
	return nil
}

// ListPhotoKeys returns every referenced storage key.
func (r *ExtrasRepository) ListPhotoKeys(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT general_photo_key FROM history_extras WHERE general_photo_key <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list extras photo keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan extras photo key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
