package command

import (
	"context"
	"strings"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE EXTRAS COMMAND
// Upserts the student's general history comment. The general photo goes
// through AttachPhotoHandler with TargetExtras; this command only touches
// the text sidecar.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateExtrasCommand sets the general comment on a student's history.
type UpdateExtrasCommand struct {
	StudentID string
	Comment   string

	CorrelationID string
}

// Validate validates the command.
func (c UpdateExtrasCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewValidationError("studentId", "student id is required")
	}
	if strings.TrimSpace(c.Comment) == "" {
		return shared.NewValidationError("comment", "comment must not be blank")
	}
	return nil
}

// UpdateExtrasHandler handles the UpdateExtrasCommand.
type UpdateExtrasHandler struct {
	studentRepo    student.Repository
	extrasRepo     evaluation.ExtrasRepository
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
}

// NewUpdateExtrasHandler creates a new UpdateExtrasHandler.
func NewUpdateExtrasHandler(
	studentRepo student.Repository,
	extrasRepo evaluation.ExtrasRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *UpdateExtrasHandler {
	return &UpdateExtrasHandler{
		studentRepo:    studentRepo,
		extrasRepo:     extrasRepo,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("update_extras")),
	}
}

// Handle executes the command.
func (h *UpdateExtrasHandler) Handle(ctx context.Context, cmd UpdateExtrasCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	exists, err := h.studentRepo.Exists(ctx, cmd.StudentID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.ErrStudentNotFound
	}

	if err := h.extrasRepo.UpsertComment(ctx, cmd.StudentID, cmd.Comment); err != nil {
		return shared.WrapError("evaluation", "UpdateExtras", shared.ErrExternalService, "failed to upsert extras", err)
	}

	event := shared.NewExtrasUpdatedEvent(cmd.StudentID, true, false)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.logger.Error("failed to publish extras_updated", logger.Err(err))
	}

	h.logger.Info("history extras updated", logger.StudentID(cmd.StudentID))
	return nil
}
