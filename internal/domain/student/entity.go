// Package student contiene el modelo de dominio del alumno de la fundación.
// Es el núcleo de la lógica de negocio - no hay dependencias externas aquí.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Level representa el nivel de competencia del alumno. Hay exactamente tres
// niveles ordenados; cada uno determina el catálogo de ejercicios y métricas.
type Level string

const (
	// LevelAmarillo - nivel inicial.
	LevelAmarillo Level = "Amarillo"
	// LevelAzul - nivel intermedio.
	LevelAzul Level = "Azul"
	// LevelRojo - nivel avanzado.
	LevelRojo Level = "Rojo"
)

// AllLevels returns the three levels in ascending order of proficiency.
func AllLevels() []Level {
	return []Level{LevelAmarillo, LevelAzul, LevelRojo}
}

// IsValid checks that the level is one of the three known tiers.
func (l Level) IsValid() bool {
	switch l {
	case LevelAmarillo, LevelAzul, LevelRojo:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the level (0-based), or -1 for an
// unknown level. Used only for ordering; never persisted.
func (l Level) Rank() int {
	for i, known := range AllLevels() {
		if l == known {
			return i
		}
	}
	return -1
}

// Above reports whether l is a higher tier than other.
func (l Level) Above(other Level) bool {
	return l.Rank() > other.Rank()
}

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.TrimSpace(s))
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - el alumno de equinoterapia. El motor de evaluaciones solo lee el
// nivel actual en el momento de crear un registro; todo lo demás (perfil,
// autenticación, clases) pertenece a otros subsistemas.
type Student struct {
	// ID - identificador interno único (UUID en formato string).
	ID string

	// DisplayName - nombre visible del alumno.
	DisplayName string

	// Level - nivel de competencia actual. Los registros de evaluación
	// capturan este valor al crearse y nunca lo vuelven a derivar.
	Level Level

	// ProfilePhotoURL - foto de perfil (opcional, propiedad del subsistema
	// de identidad; aquí solo se lee).
	ProfilePhotoURL string

	// CreatedAt - momento de creación del registro.
	CreatedAt time.Time

	// UpdatedAt - última actualización.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownLevel - nivel no reconocido.
	ErrUnknownLevel = errors.New("unknown proficiency level")

	// ErrInvalidDisplayName - nombre visible inválido.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrStudentNotFound - alumno no encontrado.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - el alumno ya existe.
	ErrStudentAlreadyExists = errors.New("student already exists")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// NewStudent crea un alumno nuevo con validación de todos los campos.
func NewStudent(id, displayName string, level Level) (*Student, error) {
	if id == "" {
		return nil, errors.New("student id is required")
	}

	displayName = strings.TrimSpace(displayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	if !level.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	now := time.Now().UTC()

	return &Student{
		ID:          id,
		DisplayName: displayName,
		Level:       level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ChangeLevel actualiza el nivel actual del alumno y devuelve el nivel
// anterior. Los registros históricos no se tocan: conservan el nivel
// capturado en su creación.
func (s *Student) ChangeLevel(newLevel Level) (previous Level, err error) {
	if !newLevel.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, newLevel)
	}

	previous = s.Level
	s.Level = newLevel
	s.UpdatedAt = time.Now().UTC()

	return previous, nil
}

// String devuelve la representación del alumno para logging.
func (s *Student) String() string {
	return fmt.Sprintf("Student{ID: %s, Name: %s, Level: %s}", s.ID, s.DisplayName, s.Level)
}

// Clone crea una copia del alumno.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
