package command

import (
	"context"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE LEVEL COMMAND
// Promotes or demotes a student. History is untouched: every existing record
// keeps the level captured when it was created.
// ══════════════════════════════════════════════════════════════════════════════

// ChangeLevelCommand moves a student to a new proficiency level.
type ChangeLevelCommand struct {
	StudentID string
	NewLevel  string

	CorrelationID string
}

// ChangeLevelResult reports the transition.
type ChangeLevelResult struct {
	StudentID     string
	PreviousLevel student.Level
	NewLevel      student.Level
}

// ChangeLevelHandler handles the ChangeLevelCommand.
type ChangeLevelHandler struct {
	studentRepo    student.Repository
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
}

// NewChangeLevelHandler creates a new ChangeLevelHandler.
func NewChangeLevelHandler(
	studentRepo student.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ChangeLevelHandler {
	return &ChangeLevelHandler{
		studentRepo:    studentRepo,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("change_level")),
	}
}

// Handle executes the command.
func (h *ChangeLevelHandler) Handle(ctx context.Context, cmd ChangeLevelCommand) (*ChangeLevelResult, error) {
	if cmd.StudentID == "" {
		return nil, shared.NewValidationError("studentId", "student id is required")
	}

	newLevel, err := student.ParseLevel(cmd.NewLevel)
	if err != nil {
		return nil, shared.ErrUnknownLevel
	}

	stud, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	previous, err := stud.ChangeLevel(newLevel)
	if err != nil {
		return nil, shared.ErrUnknownLevel
	}

	if previous == newLevel {
		return &ChangeLevelResult{StudentID: stud.ID, PreviousLevel: previous, NewLevel: newLevel}, nil
	}

	if err := h.studentRepo.UpdateLevel(ctx, stud.ID, newLevel); err != nil {
		return nil, err
	}

	event := shared.NewStudentLevelChangedEvent(stud.ID, previous.String(), newLevel.String())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.logger.Error("failed to publish level_changed", logger.Err(err))
	}

	h.logger.Info("student level changed",
		logger.StudentID(stud.ID),
		logger.String("from", previous.String()),
		logger.String("to", newLevel.String()))

	return &ChangeLevelResult{StudentID: stud.ID, PreviousLevel: previous, NewLevel: newLevel}, nil
}
