package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (id, display_name, level, profile_photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.DisplayName,
		s.Level.String(),
		s.ProfilePhotoURL,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `
		SELECT id, display_name, level, profile_photo_url, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	return r.scanStudent(r.conn.QueryRow(ctx, query, id))
}

// UpdateLevel persists a level change.
func (r *StudentRepository) UpdateLevel(ctx context.Context, id string, level student.Level) error {
	query := `
		UPDATE students
		SET level = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, id, level.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// Exists checks if a student exists by ID.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

// ListIDs returns the IDs of all students.
func (r *StudentRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM students ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list student ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// scanStudent maps a row onto the domain entity.
func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var level string

	err := row.Scan(&s.ID, &s.DisplayName, &level, &s.ProfilePhotoURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Level = student.Level(level)
	return &s, nil
}
