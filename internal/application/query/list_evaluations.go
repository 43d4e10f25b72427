package query

import (
	"context"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST EVALUATIONS QUERY
// Flat reverse-chronological listing of a student's evaluations, used by the
// "evaluaciones anteriores" screen.
// ══════════════════════════════════════════════════════════════════════════════

// ListEvaluationsQuery contains the listing parameters.
type ListEvaluationsQuery struct {
	StudentID string

	// Limit caps the number of records. <= 0 means all, capped at MaxLimit.
	Limit int
}

// MaxListLimit bounds a single listing response.
const MaxListLimit = 200

// Validate checks and normalizes the query.
func (q *ListEvaluationsQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewValidationError("studentId", "student id is required")
	}
	if q.Limit <= 0 || q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return nil
}

// ListEvaluationsResult is the listing response.
type ListEvaluationsResult struct {
	StudentID   string          `json:"studentId"`
	Evaluations []EvaluationDTO `json:"evaluations"`
}

// ListEvaluationsHandler handles evaluation listings.
type ListEvaluationsHandler struct {
	studentRepo    student.Repository
	evaluationRepo evaluation.Repository
}

// NewListEvaluationsHandler creates a new ListEvaluationsHandler.
func NewListEvaluationsHandler(studentRepo student.Repository, evaluationRepo evaluation.Repository) *ListEvaluationsHandler {
	return &ListEvaluationsHandler{
		studentRepo:    studentRepo,
		evaluationRepo: evaluationRepo,
	}
}

// Handle executes the query.
func (h *ListEvaluationsHandler) Handle(ctx context.Context, q ListEvaluationsQuery) (*ListEvaluationsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	exists, err := h.studentRepo.Exists(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrStudentNotFound
	}

	records, err := h.evaluationRepo.ListByStudent(ctx, q.StudentID, q.Limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]EvaluationDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, *toEvaluationDTO(r))
	}

	return &ListEvaluationsResult{StudentID: q.StudentID, Evaluations: dtos}, nil
}
