// Package jobs contains implementations of scheduled jobs for the LUPE
// evaluation hub.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD POINTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// BalanceInvalidator drops a student's cached balance after a rebuild.
type BalanceInvalidator interface {
	Invalidate(ctx context.Context, studentID string) error
}

// RebuildPointsJob recomputes every point balance from the accrual ledger.
// The ledger entries are the source of truth; the balances table is a
// running total that can drift if an accrual event was lost between the
// evaluation commit and the handler. This job reconciles the two.
type RebuildPointsJob struct {
	studentRepo student.Repository
	pointsRepo  points.Repository
	cache       BalanceInvalidator
	logger      *logger.Logger
	config      RebuildPointsConfig

	lastStats atomic.Value // *RebuildPointsStats
}

// RebuildPointsConfig contains configuration for the rebuild job.
type RebuildPointsConfig struct {
	// Timeout is the maximum duration for one rebuild run.
	Timeout time.Duration
}

// DefaultRebuildPointsConfig returns sensible defaults.
func DefaultRebuildPointsConfig() RebuildPointsConfig {
	return RebuildPointsConfig{
		Timeout: 5 * time.Minute,
	}
}

// RebuildPointsStats contains statistics from one rebuild run.
type RebuildPointsStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	TotalStudents int
	Rebuilt       int
	Errors        []error
}

// NewRebuildPointsJob creates a new rebuild points job.
func NewRebuildPointsJob(
	studentRepo student.Repository,
	pointsRepo points.Repository,
	cache BalanceInvalidator,
	log *logger.Logger,
	config RebuildPointsConfig,
) *RebuildPointsJob {
	if log == nil {
		log = logger.Default()
	}

	return &RebuildPointsJob{
		studentRepo: studentRepo,
		pointsRepo:  pointsRepo,
		cache:       cache,
		logger:      log.With(logger.Component("rebuild_points")),
		config:      config,
	}
}

// Name returns the job name.
func (j *RebuildPointsJob) Name() string {
	return "rebuild_points"
}

// Description returns a human-readable description.
func (j *RebuildPointsJob) Description() string {
	return "Recomputes point balances from the accrual ledger"
}

// Run executes the rebuild job.
func (j *RebuildPointsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildPointsStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	ids, err := j.studentRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}
	stats.TotalStudents = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		total, err := j.pointsRepo.Rebuild(ctx, id)
		if err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to rebuild balance",
				logger.StudentID(id),
				logger.Err(err))
			continue
		}
		stats.Rebuilt++

		if j.cache != nil {
			if err := j.cache.Invalidate(ctx, id); err != nil {
				j.logger.Warn("failed to invalidate balance cache",
					logger.StudentID(id),
					logger.Err(err))
			}
		}

		j.logger.Debug("balance rebuilt",
			logger.StudentID(id),
			logger.PointsAmount(total))
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("rebuild_points completed",
		logger.Int("students", stats.TotalStudents),
		logger.Int("rebuilt", stats.Rebuilt),
		logger.Duration("duration", stats.Duration))

	if len(stats.Errors) > 0 {
		return fmt.Errorf("rebuild completed with %d errors", len(stats.Errors))
	}

	return nil
}

// LastStats returns statistics from the last run.
func (j *RebuildPointsJob) LastStats() *RebuildPointsStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildPointsStats)
}
