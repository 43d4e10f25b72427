package evaluation

import (
	"context"
	"time"
)

// Extras es el anexo general del historial del alumno: un comentario global y
// una foto global, independientes de cualquier registro puntual. Existe a lo
// sumo un anexo por alumno y se actualiza por upsert.
type Extras struct {
	StudentID string

	// GeneralComment - comentario global del profesor sobre el progreso.
	GeneralComment string

	// GeneralPhotoURL / GeneralPhotoKey - foto global y su clave de
	// almacenamiento (la clave se guarda explícita, igual que en Record).
	GeneralPhotoURL string
	GeneralPhotoKey string

	UpdatedAt time.Time
}

// IsZero reports whether the extras carry no content at all.
func (e *Extras) IsZero() bool {
	return e == nil || (e.GeneralComment == "" && e.GeneralPhotoURL == "")
}

// HasPhoto reports whether a general photo is attached.
func (e *Extras) HasPhoto() bool {
	return e != nil && e.GeneralPhotoURL != ""
}

// ExtrasRepository defines persistence for the per-student history extras.
type ExtrasRepository interface {
	// Get returns the student's extras. A student with no extras yields a
	// zero-value Extras, not an error.
	Get(ctx context.Context, studentID string) (*Extras, error)

	// UpsertComment creates or updates the general comment.
	UpsertComment(ctx context.Context, studentID, comment string) error

	// UpsertPhoto creates or updates the general photo association.
	UpsertPhoto(ctx context.Context, studentID, url, storageKey string) error

	// ClearPhoto removes the general photo association. Idempotent.
	ClearPhoto(ctx context.Context, studentID string) error

	// ListPhotoKeys returns every storage key referenced by an extras row.
	ListPhotoKeys(ctx context.Context) ([]string, error)
}
