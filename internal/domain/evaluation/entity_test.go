package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

func testSchema() Schema {
	return Schema{
		Level:     student.LevelAmarillo,
		Exercises: []string{"Monta asistida", "Caminata guiada", "Juegos de equilibrio básico"},
		Metrics:   []string{"Postura", "Control de la respiración"},
		Domain:    DefaultMetricDomain(),
	}
}

func validParams() NewRecordParams {
	return NewRecordParams{
		ID:        "eval-1",
		StudentID: "student-1",
		Level:     student.LevelAmarillo,
		Exercises: []string{"Monta asistida", "Caminata guiada"},
		Ratings:   Ratings{"Postura": 30, "Control de la respiración": 40},
		Comment:   "Buena sesión, mejora el equilibrio",
	}
}

func TestNewRecord(t *testing.T) {
	record, err := NewRecord(validParams(), testSchema())
	require.NoError(t, err)

	assert.Equal(t, "eval-1", record.ID)
	assert.Equal(t, "student-1", record.StudentID)
	assert.Equal(t, student.LevelAmarillo, record.Level)
	assert.Equal(t, 35.0, record.AverageScore)
	assert.True(t, record.CreatedAt.IsZero(), "CreatedAt is assigned by persistence, not the factory")
	assert.False(t, record.HasPhoto())
}

func TestNewRecord_CopiesInputs(t *testing.T) {
	params := validParams()
	record, err := NewRecord(params, testSchema())
	require.NoError(t, err)

	params.Exercises[0] = "mutated"
	params.Ratings["Postura"] = 0

	assert.Equal(t, "Monta asistida", record.Exercises[0])
	assert.Equal(t, 30.0, record.Ratings["Postura"])
}

func TestNewRecord_LevelMismatch(t *testing.T) {
	params := validParams()
	params.Level = student.LevelRojo

	_, err := NewRecord(params, testSchema())
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestNewRecord_ExerciseRules(t *testing.T) {
	tests := []struct {
		name      string
		exercises []string
	}{
		{"empty", nil},
		{"outside catalog", []string{"Salto de obstáculos"}},
		{"duplicate", []string{"Monta asistida", "Monta asistida"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			params.Exercises = tt.exercises

			_, err := NewRecord(params, testSchema())
			require.Error(t, err)

			var vErr *shared.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "exercises", vErr.MissingField)
		})
	}
}

func TestNewRecord_RatingRules(t *testing.T) {
	tests := []struct {
		name    string
		ratings Ratings
	}{
		{"missing metric", Ratings{"Postura": 30}},
		{"above max", Ratings{"Postura": 60, "Control de la respiración": 40}},
		{"below min", Ratings{"Postura": -10, "Control de la respiración": 40}},
		{"off step", Ratings{"Postura": 15, "Control de la respiración": 40}},
		{"unknown metric", Ratings{"Postura": 30, "Control de la respiración": 40, "Velocidad": 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			params.Ratings = tt.ratings

			_, err := NewRecord(params, testSchema())
			require.Error(t, err)

			var vErr *shared.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "ratings", vErr.MissingField)
		})
	}
}

func TestNewRecord_BlankComment(t *testing.T) {
	params := validParams()
	params.Comment = "   "

	_, err := NewRecord(params, testSchema())
	require.Error(t, err)

	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "comment", vErr.MissingField)
}

func TestNewRecord_ValidationNeverReachesRatings(t *testing.T) {
	// Fail-fast ordering: a bad exercise list is reported even when the
	// ratings are also wrong.
	params := validParams()
	params.Exercises = nil
	params.Ratings = Ratings{"Velocidad": 99}

	_, err := NewRecord(params, testSchema())
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "exercises", vErr.MissingField)
}

func TestRecord_PhotoLifecycle(t *testing.T) {
	record, err := NewRecord(validParams(), testSchema())
	require.NoError(t, err)

	record.AttachPhoto("https://cdn/photo.jpg", "evaluations/eval-1/123.jpg")
	assert.True(t, record.HasPhoto())
	assert.Equal(t, "evaluations/eval-1/123.jpg", record.PhotoKey)

	record.DetachPhoto()
	assert.False(t, record.HasPhoto())
	assert.Empty(t, record.PhotoKey)

	// Idempotent
	record.DetachPhoto()
	assert.False(t, record.HasPhoto())
}

func TestRecord_Clone(t *testing.T) {
	record, err := NewRecord(validParams(), testSchema())
	require.NoError(t, err)

	clone := record.Clone()
	clone.Exercises[0] = "mutated"
	clone.Ratings["Postura"] = 0

	assert.Equal(t, "Monta asistida", record.Exercises[0])
	assert.Equal(t, 30.0, record.Ratings["Postura"])

	var nilRecord *Record
	assert.Nil(t, nilRecord.Clone())
}
