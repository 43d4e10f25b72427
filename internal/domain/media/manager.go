package media

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// Manager orchestrates the stage-then-commit photo lifecycle against a blob
// store and a binding. It owns the ordering rules:
//
//   - commit: upload under a fresh key first, bind second. An upload failure
//     leaves the binding untouched.
//   - replace: same as commit, then best-effort delete of the old blob. A
//     failed delete is logged and swallowed; the binding already points at
//     the new blob.
//   - remove: unbind first, then best-effort delete. Removing when nothing
//     is attached is a no-op.
type Manager struct {
	store  BlobStore
	logger *logger.Logger
	now    func() time.Time
}

// NewManager creates a media manager.
func NewManager(store BlobStore, log *logger.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// WithClock replaces the manager's clock. For tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CommitPhoto uploads the staged photo for targetID and binds the result.
// When the target already has a photo this is a replacement.
func (m *Manager) CommitPhoto(ctx context.Context, staged *StagedRef, targetID string, binding Binding) (*Attachment, error) {
	if err := staged.Validate(); err != nil {
		return nil, err
	}
	if targetID == "" {
		return nil, shared.NewValidationError("targetId", "target id is required")
	}

	oldURL, oldKey, err := binding.Current(ctx, targetID)
	if err != nil {
		return nil, err
	}

	uploadedAt := m.now().UTC()
	key := DeriveKey(targetID, uploadedAt)

	url, err := m.store.Put(ctx, key, staged.Data, staged.ContentType)
	if err != nil {
		return nil, shared.WrapError("media", "CommitPhoto", shared.ErrUpload, "photo upload failed", err)
	}

	if err := binding.Bind(ctx, targetID, url, key); err != nil {
		// Binding failed after a successful upload; drop the orphan
		// blob so the cleanup job has less to do.
		if delErr := m.store.Delete(ctx, key); delErr != nil {
			m.logger.Warn("orphan blob left behind after failed bind",
				logger.String("storage_key", key),
				logger.Err(delErr))
		}
		return nil, err
	}

	if oldKey != "" {
		if err := m.store.Delete(ctx, oldKey); err != nil {
			m.logger.Warn("failed to delete replaced photo blob",
				logger.String("storage_key", oldKey),
				logger.String("target_id", targetID),
				logger.Err(err))
		}
	}

	m.logger.Info("photo committed",
		logger.String("target_id", targetID),
		logger.String("storage_key", key),
		logger.Bool("replaced", oldURL != ""))

	return &Attachment{
		TargetID:   targetID,
		StorageKey: key,
		URL:        url,
		UploadedAt: uploadedAt,
	}, nil
}

// RemovePhoto detaches the target's photo and deletes the blob. Idempotent:
// a target with no photo returns nil.
func (m *Manager) RemovePhoto(ctx context.Context, targetID string, binding Binding) error {
	_, key, err := binding.Current(ctx, targetID)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	if err := binding.Unbind(ctx, targetID); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn("failed to delete detached photo blob",
			logger.String("storage_key", key),
			logger.String("target_id", targetID),
			logger.Err(err))
	}

	m.logger.Info("photo removed", logger.String("target_id", targetID))
	return nil
}
