package student

import "context"

// Repository defines persistence operations for students.
// Implementations live in internal/infrastructure/persistence.
type Repository interface {
	// Create persists a new student.
	Create(ctx context.Context, s *Student) error

	// GetByID returns a student by internal ID.
	GetByID(ctx context.Context, id string) (*Student, error)

	// UpdateLevel persists a level change made through Student.ChangeLevel.
	UpdateLevel(ctx context.Context, id string, level Level) error

	// Exists checks if a student exists by ID.
	Exists(ctx context.Context, id string) (bool, error)

	// ListIDs returns the IDs of all students. Used by the worker's
	// maintenance jobs.
	ListIDs(ctx context.Context) ([]string, error)
}
