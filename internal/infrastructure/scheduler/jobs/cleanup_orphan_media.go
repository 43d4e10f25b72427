package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP ORPHAN MEDIA JOB
// ══════════════════════════════════════════════════════════════════════════════

// CleanupOrphanMediaJob deletes blobs that no evaluation record or history
// extras row references anymore. Orphans appear when an upload succeeds but
// the bind fails, or when a best-effort delete of a replaced photo is lost.
type CleanupOrphanMediaJob struct {
	store          media.BlobStore
	evaluationRepo evaluation.Repository
	extrasRepo     evaluation.ExtrasRepository
	logger         *logger.Logger
	config         CleanupOrphanMediaConfig

	lastStats atomic.Value // *CleanupStats
}

// CleanupOrphanMediaConfig contains configuration for the cleanup job.
type CleanupOrphanMediaConfig struct {
	// GracePeriod protects recent uploads: a blob younger than this is
	// never deleted, because its bind may still be in flight.
	GracePeriod time.Duration

	// Timeout is the maximum duration for one cleanup run.
	Timeout time.Duration

	// DryRun logs orphans without deleting them.
	DryRun bool
}

// DefaultCleanupOrphanMediaConfig returns sensible defaults.
func DefaultCleanupOrphanMediaConfig() CleanupOrphanMediaConfig {
	return CleanupOrphanMediaConfig{
		GracePeriod: time.Hour,
		Timeout:     10 * time.Minute,
	}
}

// CleanupStats contains statistics from one cleanup run.
type CleanupStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	BlobsListed    int
	KeysReferenced int
	OrphansFound   int
	OrphansDeleted int
	Skipped        int
	Errors         []error
}

// NewCleanupOrphanMediaJob creates a new cleanup job.
func NewCleanupOrphanMediaJob(
	store media.BlobStore,
	evaluationRepo evaluation.Repository,
	extrasRepo evaluation.ExtrasRepository,
	log *logger.Logger,
	config CleanupOrphanMediaConfig,
) *CleanupOrphanMediaJob {
	if log == nil {
		log = logger.Default()
	}

	return &CleanupOrphanMediaJob{
		store:          store,
		evaluationRepo: evaluationRepo,
		extrasRepo:     extrasRepo,
		logger:         log.With(logger.Component("cleanup_orphan_media")),
		config:         config,
	}
}

// Name returns the job name.
func (j *CleanupOrphanMediaJob) Name() string {
	return "cleanup_orphan_media"
}

// Description returns a human-readable description.
func (j *CleanupOrphanMediaJob) Description() string {
	return "Deletes photo blobs no record or history extras references"
}

// Run executes the cleanup job.
func (j *CleanupOrphanMediaJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &CleanupStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	referenced, err := j.referencedKeys(ctx)
	if err != nil {
		return err
	}
	stats.KeysReferenced = len(referenced)

	blobKeys, err := j.store.List(ctx, media.KeyPrefix+"/")
	if err != nil {
		return fmt.Errorf("failed to list blobs: %w", err)
	}
	stats.BlobsListed = len(blobKeys)

	cutoff := startedAt.Add(-j.config.GracePeriod)

	for _, key := range blobKeys {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := referenced[key]; ok {
			continue
		}

		// A blob inside the grace period may belong to a bind still in
		// flight; leave it for the next run.
		uploadedAt := media.UploadedAtFromKey(key)
		if uploadedAt.IsZero() || uploadedAt.After(cutoff) {
			stats.Skipped++
			continue
		}

		stats.OrphansFound++

		if j.config.DryRun {
			j.logger.Info("orphan blob found (dry run)", logger.StorageKey(key))
			continue
		}

		if err := j.store.Delete(ctx, key); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Warn("failed to delete orphan blob",
				logger.StorageKey(key),
				logger.Err(err))
			continue
		}

		stats.OrphansDeleted++
		j.logger.Info("orphan blob deleted", logger.StorageKey(key))
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("cleanup_orphan_media completed",
		logger.Int("blobs", stats.BlobsListed),
		logger.Int("referenced", stats.KeysReferenced),
		logger.Int("orphans", stats.OrphansFound),
		logger.Int("deleted", stats.OrphansDeleted),
		logger.Duration("duration", stats.Duration))

	if len(stats.Errors) > 0 {
		return fmt.Errorf("cleanup completed with %d errors", len(stats.Errors))
	}

	return nil
}

// referencedKeys collects every storage key the database still points at.
func (j *CleanupOrphanMediaJob) referencedKeys(ctx context.Context) (map[string]struct{}, error) {
	evalKeys, err := j.evaluationRepo.ListPhotoKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation photo keys: %w", err)
	}

	extrasKeys, err := j.extrasRepo.ListPhotoKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list extras photo keys: %w", err)
	}

	referenced := make(map[string]struct{}, len(evalKeys)+len(extrasKeys))
	for _, k := range evalKeys {
		referenced[k] = struct{}{}
	}
	for _, k := range extrasKeys {
		referenced[k] = struct{}{}
	}

	return referenced, nil
}

// LastStats returns statistics from the last run.
func (j *CleanupOrphanMediaJob) LastStats() *CleanupStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*CleanupStats)
}
