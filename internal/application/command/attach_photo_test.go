package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

func newAttachFixture(t *testing.T) (*AttachPhotoHandler, *fakeEvaluationRepo, *fakeExtrasRepo, *fakeBlobStore, string) {
	t.Helper()

	evals := newFakeEvaluationRepo()
	extras := newFakeExtrasRepo()
	store := newFakeBlobStore()
	publisher := &capturePublisher{}
	log := testLogger()

	// Seed one persisted evaluation record to attach photos to.
	recorder := NewRecordEvaluationHandler(
		newFakeStudentRepo(mustStudent("student-1", "María Gómez", student.LevelAmarillo)),
		evals, testRegistry(),
		media.NewManager(store, log),
		publisher, log,
	)
	result, err := recorder.Handle(context.Background(), validCommand())
	require.NoError(t, err)

	handler := NewAttachPhotoHandler(evals, extras, media.NewManager(store, log), publisher, log)
	return handler, evals, extras, store, result.EvaluationID
}

func TestAttachPhoto_ToEvaluation(t *testing.T) {
	handler, evals, _, store, evalID := newAttachFixture(t)

	result, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetEvaluation,
		TargetID:    evalID,
		StagedPhoto: testStaged(),
	})
	require.NoError(t, err)

	assert.False(t, result.Replaced)
	assert.Contains(t, store.blobs, result.StorageKey)

	stored, err := evals.GetByID(context.Background(), evalID)
	require.NoError(t, err)
	assert.Equal(t, result.URL, stored.PhotoURL)
	assert.Equal(t, result.StorageKey, stored.PhotoKey)
}

func TestAttachPhoto_ReplaceReportsReplaced(t *testing.T) {
	handler, _, _, store, evalID := newAttachFixture(t)

	first, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetEvaluation,
		TargetID:    evalID,
		StagedPhoto: testStaged(),
	})
	require.NoError(t, err)

	second, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetEvaluation,
		TargetID:    evalID,
		StagedPhoto: testStaged(),
	})
	require.NoError(t, err)

	assert.True(t, second.Replaced)
	assert.NotEqual(t, first.StorageKey, second.StorageKey)
	assert.NotContains(t, store.blobs, first.StorageKey, "the replaced blob is deleted")
}

func TestAttachPhoto_EvaluationMustExist(t *testing.T) {
	handler, _, _, store, _ := newAttachFixture(t)

	_, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetEvaluation,
		TargetID:    "ghost",
		StagedPhoto: testStaged(),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, store.blobs, "nothing is uploaded for a missing target")
}

func TestAttachPhoto_ToExtrasUpserts(t *testing.T) {
	handler, _, extras, _, _ := newAttachFixture(t)

	// Extras need no pre-existing row; the binding upserts.
	result, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetExtras,
		TargetID:    "student-1",
		StagedPhoto: testStaged(),
	})
	require.NoError(t, err)
	assert.False(t, result.Replaced)

	stored, err := extras.Get(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, result.URL, stored.GeneralPhotoURL)
	assert.Equal(t, result.StorageKey, stored.GeneralPhotoKey)
}

func TestRemovePhoto_FromEvaluation(t *testing.T) {
	handler, evals, _, store, evalID := newAttachFixture(t)

	attached, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  TargetEvaluation,
		TargetID:    evalID,
		StagedPhoto: testStaged(),
	})
	require.NoError(t, err)

	err = handler.HandleRemove(context.Background(), RemovePhotoCommand{
		TargetKind: TargetEvaluation,
		TargetID:   evalID,
	})
	require.NoError(t, err)

	stored, err := evals.GetByID(context.Background(), evalID)
	require.NoError(t, err)
	assert.False(t, stored.HasPhoto())
	assert.NotContains(t, store.blobs, attached.StorageKey)
}

func TestRemovePhoto_Idempotent(t *testing.T) {
	handler, _, _, _, evalID := newAttachFixture(t)

	cmd := RemovePhotoCommand{TargetKind: TargetEvaluation, TargetID: evalID}
	require.NoError(t, handler.HandleRemove(context.Background(), cmd))
	require.NoError(t, handler.HandleRemove(context.Background(), cmd), "removing an absent photo is a no-op")
}

func TestAttachPhoto_InvalidCommand(t *testing.T) {
	handler, _, _, _, evalID := newAttachFixture(t)

	_, err := handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind:  "leaderboard",
		TargetID:    evalID,
		StagedPhoto: testStaged(),
	})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.HandleAttach(context.Background(), AttachPhotoCommand{
		TargetKind: TargetEvaluation,
		TargetID:   evalID,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound, "missing staged photo")
}
