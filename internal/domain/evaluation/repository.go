package evaluation

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// RangeKind selects the history window relative to "now".
type RangeKind string

const (
	RangeWeek  RangeKind = "week"
	RangeMonth RangeKind = "month"
	RangeYear  RangeKind = "year"
)

// IsValid checks that the range kind is one of the supported windows.
func (r RangeKind) IsValid() bool {
	switch r {
	case RangeWeek, RangeMonth, RangeYear:
		return true
	default:
		return false
	}
}

// HistoryFilter narrows a history listing. From/To are half-open [From, To)
// in UTC; Level, when set, restricts to records whose captured level matches.
type HistoryFilter struct {
	StudentID string
	From      time.Time
	To        time.Time
	Level     *student.Level
}

// Repository defines persistence operations for evaluation records.
// Implementations live in internal/infrastructure/persistence.
type Repository interface {
	// Create persists a new record. The implementation assigns CreatedAt
	// and writes it back into the record.
	Create(ctx context.Context, record *Record) error

	// GetByID returns a record by ID, or ErrEvaluationNotFound.
	GetByID(ctx context.Context, id string) (*Record, error)

	// ListByWindow returns the student's records inside the filter window,
	// ordered by CreatedAt ascending.
	ListByWindow(ctx context.Context, filter HistoryFilter) ([]*Record, error)

	// ListByStudent returns the student's records ordered by CreatedAt
	// descending. limit <= 0 means no limit.
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*Record, error)

	// Latest returns the student's most recent record, or
	// ErrEvaluationNotFound when the student has none.
	Latest(ctx context.Context, studentID string) (*Record, error)

	// SetPhoto persists a photo attach/replace on an existing record.
	SetPhoto(ctx context.Context, recordID, url, storageKey string) error

	// ClearPhoto removes the photo association. No error when the record
	// has no photo.
	ClearPhoto(ctx context.Context, recordID string) error

	// ListPhotoKeys returns every storage key currently referenced by a
	// record. Used by the orphan media cleanup job.
	ListPhotoKeys(ctx context.Context) ([]string, error)
}
