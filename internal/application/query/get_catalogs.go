package query

import (
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CATALOGS QUERY
// Exposes the per-level exercise and metric catalogs so the client can render
// the recording form without hardcoding the curriculum.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogDTO describes one level's recording form.
type CatalogDTO struct {
	Level     string    `json:"level"`
	Exercises []string  `json:"exercises"`
	Metrics   []string  `json:"metrics"`
	Domain    DomainDTO `json:"domain"`
}

// DomainDTO is the legal rating range.
type DomainDTO struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// GetCatalogsHandler serves catalog lookups straight from the registry.
type GetCatalogsHandler struct {
	registry *evaluation.SchemaRegistry
}

// NewGetCatalogsHandler creates a new GetCatalogsHandler.
func NewGetCatalogsHandler(registry *evaluation.SchemaRegistry) *GetCatalogsHandler {
	return &GetCatalogsHandler{registry: registry}
}

// ForLevel returns the catalog of one level, or ErrUnknownLevel.
func (h *GetCatalogsHandler) ForLevel(level student.Level) (*CatalogDTO, error) {
	schema, err := h.registry.Schema(level)
	if err != nil {
		return nil, err
	}
	dto := toCatalogDTO(schema)
	return &dto, nil
}

// All returns every registered catalog in curriculum order.
func (h *GetCatalogsHandler) All() []CatalogDTO {
	levels := h.registry.Levels()
	out := make([]CatalogDTO, 0, len(levels))
	for _, level := range levels {
		schema, err := h.registry.Schema(level)
		if err != nil {
			continue
		}
		out = append(out, toCatalogDTO(schema))
	}
	return out
}

func toCatalogDTO(s evaluation.Schema) CatalogDTO {
	return CatalogDTO{
		Level:     s.Level.String(),
		Exercises: append([]string(nil), s.Exercises...),
		Metrics:   append([]string(nil), s.Metrics...),
		Domain:    DomainDTO{Min: s.Domain.Min, Max: s.Domain.Max, Step: s.Domain.Step},
	}
}
