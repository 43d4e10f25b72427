package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentLister struct {
	ids []string
}

func (r *fakeStudentLister) Create(_ context.Context, _ *student.Student) error { return nil }

func (r *fakeStudentLister) GetByID(_ context.Context, _ string) (*student.Student, error) {
	return nil, shared.ErrStudentNotFound
}

func (r *fakeStudentLister) UpdateLevel(_ context.Context, _ string, _ student.Level) error {
	return nil
}

func (r *fakeStudentLister) Exists(_ context.Context, _ string) (bool, error) { return true, nil }

func (r *fakeStudentLister) ListIDs(_ context.Context) ([]string, error) { return r.ids, nil }

type fakeRebuildLedger struct {
	balances map[string]int
	failFor  map[string]error
	rebuilt  []string
}

func (l *fakeRebuildLedger) Accrue(_ context.Context, _, _ string, _ int) (int, bool, error) {
	return 0, false, nil
}

func (l *fakeRebuildLedger) GetBalance(_ context.Context, studentID string) (*points.Balance, error) {
	return &points.Balance{StudentID: studentID, Points: l.balances[studentID]}, nil
}

func (l *fakeRebuildLedger) ListEntries(_ context.Context, _ string) ([]*points.Entry, error) {
	return nil, nil
}

func (l *fakeRebuildLedger) Rebuild(_ context.Context, studentID string) (int, error) {
	if err, ok := l.failFor[studentID]; ok {
		return 0, err
	}
	l.rebuilt = append(l.rebuilt, studentID)
	return l.balances[studentID], nil
}

type recordingInvalidator struct {
	invalidated []string
}

func (c *recordingInvalidator) Invalidate(_ context.Context, studentID string) error {
	c.invalidated = append(c.invalidated, studentID)
	return nil
}

type fakeCleanupStore struct {
	keys      []string
	deletes   []string
	deleteErr error
}

func (s *fakeCleanupStore) Put(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	return "", errors.New("not used")
}

func (s *fakeCleanupStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *fakeCleanupStore) List(_ context.Context, _ string) ([]string, error) {
	return s.keys, nil
}

type fakeKeyLister struct {
	keys []string
}

func (r *fakeKeyLister) ListPhotoKeys(_ context.Context) ([]string, error) { return r.keys, nil }

// fakeEvaluationKeys satisfies evaluation.Repository; only ListPhotoKeys matters here.
type fakeEvaluationKeys struct {
	fakeKeyLister
}

func (r *fakeEvaluationKeys) Create(_ context.Context, _ *evaluation.Record) error { return nil }

func (r *fakeEvaluationKeys) GetByID(_ context.Context, _ string) (*evaluation.Record, error) {
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationKeys) ListByWindow(_ context.Context, _ evaluation.HistoryFilter) ([]*evaluation.Record, error) {
	return nil, nil
}

func (r *fakeEvaluationKeys) ListByStudent(_ context.Context, _ string, _ int) ([]*evaluation.Record, error) {
	return nil, nil
}

func (r *fakeEvaluationKeys) Latest(_ context.Context, _ string) (*evaluation.Record, error) {
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationKeys) SetPhoto(_ context.Context, _, _, _ string) error { return nil }
func (r *fakeEvaluationKeys) ClearPhoto(_ context.Context, _ string) error     { return nil }

// fakeExtrasKeys satisfies evaluation.ExtrasRepository.
type fakeExtrasKeys struct {
	fakeKeyLister
}

func (r *fakeExtrasKeys) Get(_ context.Context, studentID string) (*evaluation.Extras, error) {
	return &evaluation.Extras{StudentID: studentID}, nil
}

func (r *fakeExtrasKeys) UpsertComment(_ context.Context, _, _ string) error { return nil }
func (r *fakeExtrasKeys) UpsertPhoto(_ context.Context, _, _, _ string) error {
	return nil
}
func (r *fakeExtrasKeys) ClearPhoto(_ context.Context, _ string) error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Rebuild points
// ─────────────────────────────────────────────────────────────────────────────

func TestRebuildPointsJob(t *testing.T) {
	ledger := &fakeRebuildLedger{balances: map[string]int{"s1": 30, "s2": 0}}
	cache := &recordingInvalidator{}
	job := NewRebuildPointsJob(
		&fakeStudentLister{ids: []string{"s1", "s2"}},
		ledger, cache, discardLogger(),
		DefaultRebuildPointsConfig(),
	)

	require.NoError(t, job.Run(context.Background()))

	assert.ElementsMatch(t, []string{"s1", "s2"}, ledger.rebuilt)
	assert.ElementsMatch(t, []string{"s1", "s2"}, cache.invalidated, "stale cached balances are dropped after a rebuild")

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 2, stats.Rebuilt)
	assert.Empty(t, stats.Errors)
}

func TestRebuildPointsJob_ContinuesPastFailures(t *testing.T) {
	ledger := &fakeRebuildLedger{
		balances: map[string]int{"s1": 10, "s2": 20, "s3": 30},
		failFor:  map[string]error{"s2": errors.New("deadlock")},
	}
	job := NewRebuildPointsJob(
		&fakeStudentLister{ids: []string{"s1", "s2", "s3"}},
		ledger, nil, discardLogger(),
		DefaultRebuildPointsConfig(),
	)

	err := job.Run(context.Background())
	require.Error(t, err, "the run reports the failures it skipped")

	assert.ElementsMatch(t, []string{"s1", "s3"}, ledger.rebuilt, "one bad student does not stop the rest")

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Rebuilt)
	assert.Len(t, stats.Errors, 1)
}

func TestRebuildPointsJob_NilCache(t *testing.T) {
	ledger := &fakeRebuildLedger{balances: map[string]int{"s1": 10}}
	job := NewRebuildPointsJob(
		&fakeStudentLister{ids: []string{"s1"}},
		ledger, nil, discardLogger(),
		DefaultRebuildPointsConfig(),
	)

	assert.NoError(t, job.Run(context.Background()))
}

// ─────────────────────────────────────────────────────────────────────────────
// Cleanup orphan media
// ─────────────────────────────────────────────────────────────────────────────

func TestCleanupOrphanMediaJob(t *testing.T) {
	old := time.Now().Add(-24 * time.Hour)
	fresh := time.Now().Add(-5 * time.Minute)

	referencedKey := media.DeriveKey("eval-1", old)
	orphanKey := media.DeriveKey("eval-2", old)
	freshOrphanKey := media.DeriveKey("eval-3", fresh)
	extrasKey := media.DeriveKey("student-1", old)

	store := &fakeCleanupStore{keys: []string{referencedKey, orphanKey, freshOrphanKey, extrasKey}}
	evals := &fakeEvaluationKeys{fakeKeyLister{keys: []string{referencedKey}}}
	extras := &fakeExtrasKeys{fakeKeyLister{keys: []string{extrasKey}}}

	job := NewCleanupOrphanMediaJob(store, evals, extras, discardLogger(), CleanupOrphanMediaConfig{
		GracePeriod: time.Hour,
		Timeout:     time.Minute,
	})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{orphanKey}, store.deletes, "only the aged unreferenced blob is deleted")

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 4, stats.BlobsListed)
	assert.Equal(t, 2, stats.KeysReferenced)
	assert.Equal(t, 1, stats.OrphansFound)
	assert.Equal(t, 1, stats.OrphansDeleted)
	assert.Equal(t, 1, stats.Skipped, "blobs inside the grace period wait for the next run")
}

func TestCleanupOrphanMediaJob_DryRun(t *testing.T) {
	orphanKey := media.DeriveKey("eval-1", time.Now().Add(-24*time.Hour))

	store := &fakeCleanupStore{keys: []string{orphanKey}}
	job := NewCleanupOrphanMediaJob(store, &fakeEvaluationKeys{}, &fakeExtrasKeys{}, discardLogger(), CleanupOrphanMediaConfig{
		GracePeriod: time.Hour,
		DryRun:      true,
	})

	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, store.deletes, "dry run only reports")
	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.OrphansFound)
	assert.Zero(t, stats.OrphansDeleted)
}

func TestCleanupOrphanMediaJob_MalformedKeysAreSkipped(t *testing.T) {
	store := &fakeCleanupStore{keys: []string{"evaluations/weird-key.tmp"}}
	job := NewCleanupOrphanMediaJob(store, &fakeEvaluationKeys{}, &fakeExtrasKeys{}, discardLogger(), CleanupOrphanMediaConfig{
		GracePeriod: time.Hour,
	})

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, store.deletes, "a key without a parseable timestamp is never deleted")
}

func TestCleanupOrphanMediaJob_DeleteFailuresAreCollected(t *testing.T) {
	orphanKey := media.DeriveKey("eval-1", time.Now().Add(-24*time.Hour))

	store := &fakeCleanupStore{keys: []string{orphanKey}, deleteErr: errors.New("forbidden")}
	job := NewCleanupOrphanMediaJob(store, &fakeEvaluationKeys{}, &fakeExtrasKeys{}, discardLogger(), CleanupOrphanMediaConfig{
		GracePeriod: time.Hour,
	})

	err := job.Run(context.Background())
	require.Error(t, err)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Len(t, stats.Errors, 1)
	assert.Zero(t, stats.OrphansDeleted)
}

func TestJobMetadata(t *testing.T) {
	rebuild := NewRebuildPointsJob(&fakeStudentLister{}, &fakeRebuildLedger{}, nil, discardLogger(), DefaultRebuildPointsConfig())
	cleanup := NewCleanupOrphanMediaJob(&fakeCleanupStore{}, &fakeEvaluationKeys{}, &fakeExtrasKeys{}, discardLogger(), DefaultCleanupOrphanMediaConfig())

	assert.Equal(t, "rebuild_points", rebuild.Name())
	assert.NotEmpty(t, rebuild.Description())
	assert.Equal(t, "cleanup_orphan_media", cleanup.Name())
	assert.NotEmpty(t, cleanup.Description())
	assert.Nil(t, cleanup.LastStats(), "no stats before the first run")
}
