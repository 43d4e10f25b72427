// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET HISTORY QUERY
// Devuelve la serie de evaluaciones del alumno dentro de una ventana local
// (semana, mes o año en Bogotá) con etiquetas de fecha cortas en español y
// el promedio del período. La ventana se calcula en hora local aunque el
// almacenamiento sea UTC: la "semana" del profesor es lunes a domingo.
// ══════════════════════════════════════════════════════════════════════════════

// GetHistoryQuery contains the history request parameters.
type GetHistoryQuery struct {
	// StudentID - the student whose history to list.
	StudentID string

	// Range - week, month or year relative to Now.
	Range evaluation.RangeKind

	// Level optionally restricts the series to records whose captured
	// level matches. A promoted student's older records simply fall out
	// of the filtered series; they are never relabeled.
	Level *student.Level

	// Now anchors the window. Zero means the current time.
	Now time.Time
}

// Validate checks and normalizes the query.
func (q *GetHistoryQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewValidationError("studentId", "student id is required")
	}
	if q.Range == "" {
		q.Range = evaluation.RangeWeek
	}
	if !q.Range.IsValid() {
		return shared.NewValidationError("range", "range must be week, month or year")
	}
	if q.Level != nil && !q.Level.IsValid() {
		return shared.ErrUnknownLevel
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	return nil
}

// HistoryPointDTO is one chart point in the series.
type HistoryPointDTO struct {
	EvaluationID string             `json:"evaluationId"`
	Date         time.Time          `json:"date"`
	DateLabel    string             `json:"dateLabel"`
	Level        string             `json:"level"`
	AverageScore float64            `json:"averageScore"`
	Ratings      evaluation.Ratings `json:"ratings"`
}

// GetHistoryResult is the full history response.
type GetHistoryResult struct {
	StudentID    string            `json:"studentId"`
	Range        string            `json:"range"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Points       []HistoryPointDTO `json:"points"`
	AverageScore float64           `json:"averageScore"`
}

// GetHistoryHandler handles history queries.
type GetHistoryHandler struct {
	studentRepo    student.Repository
	evaluationRepo evaluation.Repository
}

// NewGetHistoryHandler creates a new GetHistoryHandler.
func NewGetHistoryHandler(studentRepo student.Repository, evaluationRepo evaluation.Repository) *GetHistoryHandler {
	return &GetHistoryHandler{
		studentRepo:    studentRepo,
		evaluationRepo: evaluationRepo,
	}
}

// Handle executes the query.
func (h *GetHistoryHandler) Handle(ctx context.Context, q GetHistoryQuery) (*GetHistoryResult, error) {
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

	window := WindowFor(q.Range, q.Now)

	records, err := h.evaluationRepo.ListByWindow(ctx, evaluation.HistoryFilter{
		StudentID: q.StudentID,
		From:      window.From,
		To:        window.To,
		Level:     q.Level,
	})
	if err != nil {
		return nil, err
	}

	points := make([]HistoryPointDTO, 0, len(records))
	for _, r := range records {
		points = append(points, HistoryPointDTO{
			EvaluationID: r.ID,
			Date:         r.CreatedAt,
			DateLabel:    timeutil.FormatShortDateEs(r.CreatedAt),
			Level:        r.Level.String(),
			AverageScore: r.AverageScore,
			Ratings:      r.Ratings.Clone(),
		})
	}

	return &GetHistoryResult{
		StudentID:    q.StudentID,
		Range:        string(q.Range),
		From:         window.From,
		To:           window.To,
		Points:       points,
		AverageScore: evaluation.AverageAcrossRecords(records),
	}, nil
}

// WindowFor maps a range kind onto the local-time window anchored at now.
func WindowFor(kind evaluation.RangeKind, now time.Time) timeutil.Window {
	switch kind {
	case evaluation.RangeMonth:
		return timeutil.MonthWindow(now)
	case evaluation.RangeYear:
		return timeutil.YearWindow(now)
	default:
		return timeutil.WeekWindow(now)
	}
}
