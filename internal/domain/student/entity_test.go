package student

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"Amarillo", LevelAmarillo},
		{"Azul", LevelAzul},
		{"Rojo", LevelRojo},
		{"  Azul  ", LevelAzul},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	for _, input := range []string{"", "Verde", "amarillo", "AZUL"} {
		_, err := ParseLevel(input)
		assert.ErrorIs(t, err, ErrUnknownLevel, "input %q", input)
	}
}

func TestLevel_Ordering(t *testing.T) {
	assert.Equal(t, 0, LevelAmarillo.Rank())
	assert.Equal(t, 1, LevelAzul.Rank())
	assert.Equal(t, 2, LevelRojo.Rank())
	assert.Equal(t, -1, Level("Verde").Rank())

	assert.True(t, LevelRojo.Above(LevelAzul))
	assert.True(t, LevelAzul.Above(LevelAmarillo))
	assert.False(t, LevelAmarillo.Above(LevelAmarillo))
	assert.False(t, LevelAmarillo.Above(LevelRojo))
}

func TestNewStudent(t *testing.T) {
	s, err := NewStudent("student-1", "  María Gómez  ", LevelAmarillo)
	require.NoError(t, err)

	assert.Equal(t, "student-1", s.ID)
	assert.Equal(t, "María Gómez", s.DisplayName)
	assert.Equal(t, LevelAmarillo, s.Level)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewStudent_Invalid(t *testing.T) {
	_, err := NewStudent("", "María", LevelAmarillo)
	assert.Error(t, err)

	_, err = NewStudent("student-1", "   ", LevelAmarillo)
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = NewStudent("student-1", strings.Repeat("x", 101), LevelAmarillo)
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = NewStudent("student-1", "María", Level("Verde"))
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestStudent_ChangeLevel(t *testing.T) {
	s, err := NewStudent("student-1", "María", LevelAmarillo)
	require.NoError(t, err)

	previous, err := s.ChangeLevel(LevelAzul)
	require.NoError(t, err)
	assert.Equal(t, LevelAmarillo, previous)
	assert.Equal(t, LevelAzul, s.Level)

	// Demotion is allowed too.
	previous, err = s.ChangeLevel(LevelAmarillo)
	require.NoError(t, err)
	assert.Equal(t, LevelAzul, previous)
	assert.Equal(t, LevelAmarillo, s.Level)
}

func TestStudent_ChangeLevel_Unknown(t *testing.T) {
	s, err := NewStudent("student-1", "María", LevelAmarillo)
	require.NoError(t, err)

	_, err = s.ChangeLevel(Level("Verde"))
	assert.ErrorIs(t, err, ErrUnknownLevel)
	assert.Equal(t, LevelAmarillo, s.Level, "failed change must not mutate the student")
}
