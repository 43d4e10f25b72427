package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION REPOSITORY IMPLEMENTATION
// Records are append-only; the only UPDATEs touch the photo columns.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluationRepository implements evaluation.Repository for PostgreSQL.
type EvaluationRepository struct {
	conn *Connection
}

// NewEvaluationRepository creates a new EvaluationRepository.
func NewEvaluationRepository(conn *Connection) *EvaluationRepository {
	return &EvaluationRepository{conn: conn}
}

const evaluationColumns = `id, student_id, level, exercises, ratings, comment,
	photo_url, photo_key, average_score, created_at`

// Create persists a new record. CreatedAt is assigned by the database and
// written back into the record.
func (r *EvaluationRepository) Create(ctx context.Context, record *evaluation.Record) error {
	exercisesJSON, err := json.Marshal(record.Exercises)
	if err != nil {
		return fmt.Errorf("failed to marshal exercises: %w", err)
	}
	ratingsJSON, err := json.Marshal(record.Ratings)
	if err != nil {
		return fmt.Errorf("failed to marshal ratings: %w", err)
	}

	query := `
		INSERT INTO evaluations (id, student_id, level, exercises, ratings, comment,
			photo_url, photo_key, average_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = r.conn.QueryRow(ctx, query,
		record.ID,
		record.StudentID,
		record.Level.String(),
		exercisesJSON,
		ratingsJSON,
		record.Comment,
		record.PhotoURL,
		record.PhotoKey,
		record.AverageScore,
	).Scan(&record.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	return nil
}

// GetByID returns a record by ID.
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (*evaluation.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE id = $1`, evaluationColumns)
	return r.scanRecord(r.conn.QueryRow(ctx, query, id))
}

// ListByWindow returns records inside [From, To), ascending by creation time.
func (r *EvaluationRepository) ListByWindow(ctx context.Context, filter evaluation.HistoryFilter) ([]*evaluation.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM evaluations
		WHERE student_id = $1 AND created_at >= $2 AND created_at < $3
	`, evaluationColumns)
	args := []interface{}{filter.StudentID, filter.From, filter.To}

	if filter.Level != nil {
		query += ` AND level = $4`
		args = append(args, filter.Level.String())
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// ListByStudent returns records newest first.
func (r *EvaluationRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]*evaluation.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM evaluations
		WHERE student_id = $1
		ORDER BY created_at DESC
	`, evaluationColumns)
	args := []interface{}{studentID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	return r.collectRecords(rows)
}

// Latest returns the most recent record for the student.
func (r *EvaluationRepository) Latest(ctx context.Context, studentID string) (*evaluation.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM evaluations
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, evaluationColumns)

	return r.scanRecord(r.conn.QueryRow(ctx, query, studentID))
}

// SetPhoto persists a photo attach or replace.
func (r *EvaluationRepository) SetPhoto(ctx context.Context, recordID, url, storageKey string) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE evaluations SET photo_url = $2, photo_key = $3 WHERE id = $1`,
		recordID, url, storageKey)
	if err != nil {
		return fmt.Errorf("failed to set photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEvaluationNotFound
	}
	return nil
}

// ClearPhoto removes the photo association.
func (r *EvaluationRepository) ClearPhoto(ctx context.Context, recordID string) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE evaluations SET photo_url = '', photo_key = '' WHERE id = $1`,
		recordID)
	if err != nil {
		return fmt.Errorf("failed to clear photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEvaluationNotFound
	}
	return nil
}

// ListPhotoKeys returns every referenced storage key.
func (r *EvaluationRepository) ListPhotoKeys(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT photo_key FROM evaluations WHERE photo_key <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list photo keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan photo key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *EvaluationRepository) scanRecord(row pgx.Row) (*evaluation.Record, error) {
	var rec evaluation.Record
	var level string
	var exercisesJSON, ratingsJSON []byte
	var createdAt time.Time

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&level,
		&exercisesJSON,
		&ratingsJSON,
		&rec.Comment,
		&rec.PhotoURL,
		&rec.PhotoKey,
		&rec.AverageScore,
		&createdAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	if err := json.Unmarshal(exercisesJSON, &rec.Exercises); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exercises: %w", err)
	}
	if err := json.Unmarshal(ratingsJSON, &rec.Ratings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
	}

	rec.Level = student.Level(level)
	rec.CreatedAt = createdAt
	return &rec, nil
}

func (r *EvaluationRepository) collectRecords(rows pgx.Rows) ([]*evaluation.Record, error) {
	var records []*evaluation.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
