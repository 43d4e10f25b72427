package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

func newExtrasFixture() (*UpdateExtrasHandler, *fakeExtrasRepo, *capturePublisher) {
	students := newFakeStudentRepo(mustStudent("student-1", "María Gómez", student.LevelAmarillo))
	extras := newFakeExtrasRepo()
	publisher := &capturePublisher{}
	handler := NewUpdateExtrasHandler(students, extras, publisher, testLogger())
	return handler, extras, publisher
}

func TestUpdateExtras(t *testing.T) {
	handler, extras, publisher := newExtrasFixture()

	err := handler.Handle(context.Background(), UpdateExtrasCommand{
		StudentID: "student-1",
		Comment:   "Gran avance en confianza con el caballo",
	})
	require.NoError(t, err)

	stored, err := extras.Get(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "Gran avance en confianza con el caballo", stored.GeneralComment)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventExtrasUpdated, publisher.last().EventType())
}

func TestUpdateExtras_OverwritesPreviousComment(t *testing.T) {
	handler, extras, _ := newExtrasFixture()

	require.NoError(t, handler.Handle(context.Background(), UpdateExtrasCommand{
		StudentID: "student-1", Comment: "primera nota",
	}))
	require.NoError(t, handler.Handle(context.Background(), UpdateExtrasCommand{
		StudentID: "student-1", Comment: "nota corregida",
	}))

	stored, err := extras.Get(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "nota corregida", stored.GeneralComment, "the upsert keeps a single comment per student")
}

func TestUpdateExtras_BlankCommentRejected(t *testing.T) {
	handler, extras, _ := newExtrasFixture()

	err := handler.Handle(context.Background(), UpdateExtrasCommand{
		StudentID: "student-1",
		Comment:   "   ",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, extras.extras)
}

func TestUpdateExtras_UnknownStudent(t *testing.T) {
	handler, _, _ := newExtrasFixture()

	err := handler.Handle(context.Background(), UpdateExtrasCommand{
		StudentID: "ghost",
		Comment:   "nota",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
