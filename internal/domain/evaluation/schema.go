package evaluation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// MetricDomain describes the legal values for a metric rating: the inclusive
// [Min, Max] range and the step between values.
type MetricDomain struct {
	Min  float64
	Max  float64
	Step float64
}

// DefaultMetricDomain is the rating scale used by every built-in level:
// 0 to 50 in steps of 10.
func DefaultMetricDomain() MetricDomain {
	return MetricDomain{Min: 0, Max: 50, Step: 10}
}

// Contains reports whether value is a legal rating in this domain.
func (d MetricDomain) Contains(value float64) bool {
	if value < d.Min || value > d.Max {
		return false
	}
	if d.Step <= 0 {
		return true
	}

	// Ratings arrive as JSON numbers; tolerate float representation noise.
	steps := (value - d.Min) / d.Step
	nearest := float64(int(steps + 0.5))
	const eps = 1e-9
	return steps-nearest < eps && nearest-steps < eps
}

// Values enumerates the legal rating values in ascending order.
func (d MetricDomain) Values() []float64 {
	if d.Step <= 0 {
		return []float64{d.Min, d.Max}
	}
	var out []float64
	for v := d.Min; v <= d.Max+1e-9; v += d.Step {
		out = append(out, v)
	}
	return out
}

// String returns a compact representation, e.g. "[0..50 step 10]".
func (d MetricDomain) String() string {
	return fmt.Sprintf("[%v..%v step %v]", d.Min, d.Max, d.Step)
}

// Schema fixes, for one proficiency level, which exercises may be practiced
// and which metrics must be rated, plus the rating domain.
type Schema struct {
	Level     student.Level
	Exercises []string
	Metrics   []string
	Domain    MetricDomain
}

// HasMetric reports whether label belongs to the schema's metric catalog.
func (s Schema) HasMetric(label string) bool {
	for _, m := range s.Metrics {
		if m == label {
			return true
		}
	}
	return false
}

// HasExercise reports whether name belongs to the schema's exercise catalog.
func (s Schema) HasExercise(name string) bool {
	for _, e := range s.Exercises {
		if e == name {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEMA REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// SchemaRegistry is the single source of truth for per-level catalogs.
// Reads are concurrent-safe; Register is meant for startup wiring only.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[student.Level]Schema
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[student.Level]Schema)}
}

// DefaultSchemaRegistry returns a registry preloaded with the foundation's
// three-tier curriculum.
func DefaultSchemaRegistry() *SchemaRegistry {
	r := NewSchemaRegistry()
	for _, s := range defaultSchemas() {
		// Built-in schemas are valid by construction.
		_ = r.Register(s)
	}
	return r
}

// defaultSchemas son los catálogos oficiales de la fundación por nivel.
func defaultSchemas() []Schema {
	domain := DefaultMetricDomain()
	return []Schema{
		{
			Level: student.LevelAmarillo,
			Exercises: []string{
				"Monta asistida",
				"Caminata guiada",
				"Estiramientos sobre el caballo",
				"Juegos de equilibrio básico",
			},
			Metrics: []string{
				"Control del caballo",
				"Postura",
				"Movimientos corporales",
				"Control de la respiración",
			},
			Domain: domain,
		},
		{
			Level: student.LevelAzul,
			Exercises: []string{
				"Monta independiente al paso",
				"Transiciones paso-trote",
				"Circuito de conos",
				"Ejercicios de coordinación",
			},
			Metrics: []string{
				"Equilibrio",
				"Coordinación",
				"Estado emocional",
				"Seguimiento de instrucciones",
			},
			Domain: domain,
		},
		{
			Level: student.LevelRojo,
			Exercises: []string{
				"Monta independiente al trote",
				"Cambios de dirección",
				"Ejercicios sin estribos",
				"Recorrido completo de pista",
			},
			Metrics: []string{
				"Control del caballo",
				"Equilibrio en ejercicios",
				"Postura avanzada",
				"Autonomía",
			},
			Domain: domain,
		},
	}
}

// Register adds or replaces the schema for its level.
func (r *SchemaRegistry) Register(s Schema) error {
	if !s.Level.IsValid() {
		return shared.ErrUnknownLevel
	}
	if len(s.Exercises) == 0 {
		return shared.NewValidationError("exercises", "schema needs at least one exercise")
	}
	if len(s.Metrics) == 0 {
		return shared.NewValidationError("metrics", "schema needs at least one metric")
	}
	if s.Domain.Max < s.Domain.Min {
		return shared.NewValidationError("domain", "max must be >= min")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Level] = s
	return nil
}

// Schema returns the schema for the given level, or ErrUnknownLevel when the
// level has no registered catalogs.
func (r *SchemaRegistry) Schema(level student.Level) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[level]
	if !ok {
		return Schema{}, shared.ErrUnknownLevel
	}
	return s, nil
}

// ExerciseCatalog returns the exercise names for the level.
func (r *SchemaRegistry) ExerciseCatalog(level student.Level) ([]string, error) {
	s, err := r.Schema(level)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), s.Exercises...), nil
}

// MetricCatalog returns the metric labels for the level.
func (r *SchemaRegistry) MetricCatalog(level student.Level) ([]string, error) {
	s, err := r.Schema(level)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), s.Metrics...), nil
}

// Levels returns the registered levels in curriculum order.
func (r *SchemaRegistry) Levels() []student.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]student.Level, 0, len(r.schemas))
	for l := range r.schemas {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}
