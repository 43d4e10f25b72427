package query

import (
	"context"
	"errors"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LATEST / LATEST WITH EXTRAS QUERIES
// The profile screen shows the most recent evaluation next to the student's
// general history extras. Both pieces are optional: a student with no
// evaluations and no extras still resolves, with nulls.
// ══════════════════════════════════════════════════════════════════════════════

// GetLatestQuery asks for a student's most recent evaluation.
type GetLatestQuery struct {
	StudentID string

	// WithExtras also fetches the history extras sidecar.
	WithExtras bool
}

// EvaluationDTO is the full read model of one evaluation record.
type EvaluationDTO struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"studentId"`
	Level        string             `json:"level"`
	Exercises    []string           `json:"exercises"`
	Ratings      evaluation.Ratings `json:"ratings"`
	Comments     string             `json:"comments"`
	ImageURL     string             `json:"imageUrl,omitempty"`
	AverageScore float64            `json:"averageScore"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// ExtrasDTO is the read model of the history extras sidecar.
type ExtrasDTO struct {
	Comentarios string `json:"comentarios,omitempty"`
	ImagenURL   string `json:"imagenUrl,omitempty"`
}

// GetLatestResult pairs the latest evaluation with the extras. Either side
// may be nil.
type GetLatestResult struct {
	LastEvaluation  *EvaluationDTO `json:"lastEvaluation"`
	HistorialExtras *ExtrasDTO     `json:"historialExtras"`
}

// GetLatestHandler handles latest-evaluation queries.
type GetLatestHandler struct {
	studentRepo    student.Repository
	evaluationRepo evaluation.Repository
	extrasRepo     evaluation.ExtrasRepository
}

// NewGetLatestHandler creates a new GetLatestHandler.
func NewGetLatestHandler(
	studentRepo student.Repository,
	evaluationRepo evaluation.Repository,
	extrasRepo evaluation.ExtrasRepository,
) *GetLatestHandler {
	return &GetLatestHandler{
		studentRepo:    studentRepo,
		evaluationRepo: evaluationRepo,
		extrasRepo:     extrasRepo,
	}
}

// Handle executes the query.
func (h *GetLatestHandler) Handle(ctx context.Context, q GetLatestQuery) (*GetLatestResult, error) {
	if q.StudentID == "" {
		return nil, shared.NewValidationError("studentId", "student id is required")
	}

	exists, err := h.studentRepo.Exists(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrStudentNotFound
	}

	result := &GetLatestResult{}

	record, err := h.evaluationRepo.Latest(ctx, q.StudentID)
	switch {
	case err == nil:
		result.LastEvaluation = toEvaluationDTO(record)
	case errors.Is(err, shared.ErrNotFound):
		// No evaluations yet; latest stays null.
	default:
		return nil, err
	}

	if q.WithExtras {
		extras, err := h.extrasRepo.Get(ctx, q.StudentID)
		if err != nil {
			return nil, err
		}
		if !extras.IsZero() {
			result.HistorialExtras = &ExtrasDTO{
				Comentarios: extras.GeneralComment,
				ImagenURL:   extras.GeneralPhotoURL,
			}
		}
	}

	return result, nil
}

// toEvaluationDTO maps a domain record onto the read model.
func toEvaluationDTO(r *evaluation.Record) *EvaluationDTO {
	return &EvaluationDTO{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Level:        r.Level.String(),
		Exercises:    append([]string(nil), r.Exercises...),
		Ratings:      r.Ratings.Clone(),
		Comments:     r.Comment,
		ImageURL:     r.PhotoURL,
		AverageScore: r.AverageScore,
		CreatedAt:    r.CreatedAt,
	}
}
