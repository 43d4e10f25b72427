// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD EVALUATION COMMAND
// The single write path for new evaluation records. Captures the student's
// current level, validates against that level's schema, optionally commits a
// staged photo, persists, and announces the commit for points accrual.
// ══════════════════════════════════════════════════════════════════════════════

// RecordEvaluationCommand contains the teacher's submission.
type RecordEvaluationCommand struct {
	// StudentID is the evaluated student.
	StudentID string

	// Level is the tier the recording form was built for. Optional; when
	// set it must match the student's current level, otherwise the form
	// is stale and the submission is rejected.
	Level string

	// Exercises practiced in the session. Must be a non-empty subset of
	// the student's current level catalog.
	Exercises []string

	// Ratings per metric, exactly one entry per catalog metric.
	Ratings evaluation.Ratings

	// Comment is the teacher's free-text note. Required.
	Comment string

	// StagedPhoto is an optional photo picked or captured on the device.
	StagedPhoto *media.StagedRef

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks the command's own shape. Schema validation happens in the
// domain once the captured level is known.
func (c RecordEvaluationCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewValidationError("studentId", "student id is required")
	}
	return nil
}

// RecordEvaluationResult is returned to the interface layer.
type RecordEvaluationResult struct {
	EvaluationID string
	Level        student.Level
	AverageScore float64
	PhotoURL     string
	CreatedAt    time.Time
}

// RecordEvaluationHandler handles the RecordEvaluationCommand.
type RecordEvaluationHandler struct {
	studentRepo    student.Repository
	evaluationRepo evaluation.Repository
	registry       *evaluation.SchemaRegistry
	mediaManager   *media.Manager
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
}

// NewRecordEvaluationHandler creates a new RecordEvaluationHandler.
func NewRecordEvaluationHandler(
	studentRepo student.Repository,
	evaluationRepo evaluation.Repository,
	registry *evaluation.SchemaRegistry,
	mediaManager *media.Manager,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RecordEvaluationHandler {
	return &RecordEvaluationHandler{
		studentRepo:    studentRepo,
		evaluationRepo: evaluationRepo,
		registry:       registry,
		mediaManager:   mediaManager,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("record_evaluation")),
	}
}

// Handle executes the command. The ordering is fixed: validate, commit the
// photo, persist, announce. A validation failure never reaches the blob
// store; an upload failure never reaches the database.
func (h *RecordEvaluationHandler) Handle(ctx context.Context, cmd RecordEvaluationCommand) (*RecordEvaluationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	stud, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("evaluation", "Record", shared.ErrNotFound, "student lookup failed", err)
	}

	if cmd.Level != "" && cmd.Level != stud.Level.String() {
		return nil, shared.NewValidationError("level",
			"submitted level does not match the student's current level")
	}

	schema, err := h.registry.Schema(stud.Level)
	if err != nil {
		return nil, err
	}

	record, err := evaluation.NewRecord(evaluation.NewRecordParams{
		ID:        uuid.NewString(),
		StudentID: stud.ID,
		Level:     stud.Level,
		Exercises: cmd.Exercises,
		Ratings:   cmd.Ratings,
		Comment:   cmd.Comment,
	}, schema)
	if err != nil {
		return nil, err
	}

	// Photo goes to the blob store before the record goes to the database,
	// so a stored record always carries a durable URL or none at all.
	if cmd.StagedPhoto != nil {
		binding := &prePersistBinding{record: record}
		if _, err := h.mediaManager.CommitPhoto(ctx, cmd.StagedPhoto, record.ID, binding); err != nil {
			return nil, err
		}
	}

	if err := h.evaluationRepo.Create(ctx, record); err != nil {
		return nil, shared.WrapError("evaluation", "Record", shared.ErrExternalService, "failed to persist record", err)
	}

	event := shared.NewEvaluationRecordedEvent(record.ID, record.StudentID, record.Level.String(), record.AverageScore, record.HasPhoto())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		// The record is committed; accrual will be reconciled by the
		// worker's rebuild job.
		h.logger.Error("failed to publish evaluation.recorded",
			logger.EvaluationID(record.ID),
			logger.Err(err))
	}

	h.logger.Info("evaluation recorded",
		logger.EvaluationID(record.ID),
		logger.StudentID(record.StudentID),
		logger.LevelName(record.Level.String()),
		logger.Score(record.AverageScore))

	return &RecordEvaluationResult{
		EvaluationID: record.ID,
		Level:        record.Level,
		AverageScore: record.AverageScore,
		PhotoURL:     record.PhotoURL,
		CreatedAt:    record.CreatedAt,
	}, nil
}

// prePersistBinding routes a photo commit into a record that is not in the
// database yet. The record starts with no photo, so Current is always empty.
type prePersistBinding struct {
	record *evaluation.Record
}

func (b *prePersistBinding) Current(context.Context, string) (string, string, error) {
	return b.record.PhotoURL, b.record.PhotoKey, nil
}

func (b *prePersistBinding) Bind(_ context.Context, _ string, url, storageKey string) error {
	b.record.AttachPhoto(url, storageKey)
	return nil
}

func (b *prePersistBinding) Unbind(context.Context, string) error {
	b.record.DetachPhoto()
	return nil
}
