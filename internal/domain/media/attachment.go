// Package media models photo attachments: the staged capture reference, the
// durable attachment, and the interfaces toward the blob store. The upload
// orchestration (commit, replace, remove) lives in the Manager.
package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
)

// Source indicates where a staged photo came from.
type Source string

const (
	SourceGallery Source = "gallery"
	SourceCamera  Source = "camera"
)

// IsValid checks that the source is one of the known origins.
func (s Source) IsValid() bool {
	return s == SourceGallery || s == SourceCamera
}

// StagedRef is a photo the client has picked or captured but not yet
// committed. It is device-local and worthless after commit or discard.
type StagedRef struct {
	ID          string
	Source      Source
	Data        []byte
	ContentType string
	StagedAt    time.Time
}

// Validate checks that the staged reference is usable for a commit.
func (s *StagedRef) Validate() error {
	if s == nil || len(s.Data) == 0 {
		return shared.ErrStagedRefNotFound
	}
	if !s.Source.IsValid() {
		return shared.NewValidationError("source", fmt.Sprintf("unknown media source %q", s.Source))
	}
	if s.ContentType == "" {
		return shared.NewValidationError("contentType", "content type is required")
	}
	return nil
}

// Attachment is the durable result of a committed upload.
type Attachment struct {
	TargetID   string
	StorageKey string
	URL        string
	UploadedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// BlobStore abstracts the external blob storage service.
// The production implementation lives in infrastructure/external/supastorage.
type BlobStore interface {
	// Put uploads data under key and returns the durable public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the blob under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// List returns every key under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Binding connects an attachment target (an evaluation record or a student's
// history extras) to its persisted photo columns.
type Binding interface {
	// Current returns the target's present photo URL and storage key,
	// both empty when no photo is attached.
	Current(ctx context.Context, targetID string) (url, storageKey string, err error)

	// Bind persists the new photo association.
	Bind(ctx context.Context, targetID, url, storageKey string) error

	// Unbind clears the photo association. Idempotent.
	Unbind(ctx context.Context, targetID string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// KEY DERIVATION
// ══════════════════════════════════════════════════════════════════════════════

// KeyPrefix is the root folder for all photos managed by this system.
const KeyPrefix = "evaluations"

// DeriveKey builds a fresh storage key from the target ID and the upload
// timestamp. Every attempt gets a new key: a replacement never overwrites
// the old blob in place, so a half-failed replace can't corrupt the photo
// the target still points at.
func DeriveKey(targetID string, at time.Time) string {
	ext := "jpg"
	return fmt.Sprintf("%s/%s/%d.%s", KeyPrefix, targetID, at.UnixNano(), ext)
}

// TargetIDFromKey extracts the target ID from a derived key, or "" when the
// key does not follow the DeriveKey layout.
func TargetIDFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != KeyPrefix {
		return ""
	}
	return parts[1]
}

// UploadedAtFromKey extracts the upload timestamp from a derived key. Returns
// the zero time when the key does not follow the DeriveKey layout.
func UploadedAtFromKey(key string) time.Time {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != KeyPrefix {
		return time.Time{}
	}
	name := strings.TrimSuffix(parts[2], ".jpg")
	nanos, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}
