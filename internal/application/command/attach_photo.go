package command

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTACH / REMOVE PHOTO COMMANDS
// Photo lifecycle on targets that already exist in the database: an
// evaluation record or a student's history extras. The fresh-key and
// cleanup ordering rules live in media.Manager; here we pick the binding.
// ══════════════════════════════════════════════════════════════════════════════

// PhotoTargetKind selects what the photo is attached to.
type PhotoTargetKind string

const (
	// TargetEvaluation attaches to a single evaluation record.
	TargetEvaluation PhotoTargetKind = "evaluation"
	// TargetExtras attaches to the student's general history photo.
	TargetExtras PhotoTargetKind = "extras"
)

// AttachPhotoCommand commits a staged photo onto an existing target.
type AttachPhotoCommand struct {
	TargetKind PhotoTargetKind

	// TargetID is the evaluation record ID or, for extras, the student ID.
	TargetID string

	StagedPhoto *media.StagedRef

	CorrelationID string
}

// Validate validates the command.
func (c AttachPhotoCommand) Validate() error {
	if c.TargetKind != TargetEvaluation && c.TargetKind != TargetExtras {
		return shared.NewValidationError("targetKind", "unknown photo target")
	}
	if c.TargetID == "" {
		return shared.NewValidationError("targetId", "target id is required")
	}
	if c.StagedPhoto == nil {
		return shared.ErrStagedRefNotFound
	}
	return nil
}

// AttachPhotoResult describes the committed attachment.
type AttachPhotoResult struct {
	URL        string
	StorageKey string
	Replaced   bool
	UploadedAt time.Time
}

// RemovePhotoCommand detaches the target's photo. Idempotent.
type RemovePhotoCommand struct {
	TargetKind    PhotoTargetKind
	TargetID      string
	CorrelationID string
}

// Validate validates the command.
func (c RemovePhotoCommand) Validate() error {
	if c.TargetKind != TargetEvaluation && c.TargetKind != TargetExtras {
		return shared.NewValidationError("targetKind", "unknown photo target")
	}
	if c.TargetID == "" {
		return shared.NewValidationError("targetId", "target id is required")
	}
	return nil
}

// AttachPhotoHandler handles attach and remove photo commands.
type AttachPhotoHandler struct {
	evaluationRepo evaluation.Repository
	extrasRepo     evaluation.ExtrasRepository
	mediaManager   *media.Manager
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
}

// NewAttachPhotoHandler creates a new AttachPhotoHandler.
func NewAttachPhotoHandler(
	evaluationRepo evaluation.Repository,
	extrasRepo evaluation.ExtrasRepository,
	mediaManager *media.Manager,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *AttachPhotoHandler {
	return &AttachPhotoHandler{
		evaluationRepo: evaluationRepo,
		extrasRepo:     extrasRepo,
		mediaManager:   mediaManager,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("attach_photo")),
	}
}

// HandleAttach executes the attach (or replace) command.
func (h *AttachPhotoHandler) HandleAttach(ctx context.Context, cmd AttachPhotoCommand) (*AttachPhotoResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	binding, err := h.binding(ctx, cmd.TargetKind, cmd.TargetID)
	if err != nil {
		return nil, err
	}

	_, oldKey, err := binding.Current(ctx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	replaced := oldKey != ""

	attachment, err := h.mediaManager.CommitPhoto(ctx, cmd.StagedPhoto, cmd.TargetID, binding)
	if err != nil {
		return nil, err
	}

	event := shared.NewPhotoAttachedEvent(cmd.TargetID, attachment.StorageKey, attachment.URL, replaced)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.logger.Error("failed to publish photo_attached", logger.Err(err))
	}

	return &AttachPhotoResult{
		URL:        attachment.URL,
		StorageKey: attachment.StorageKey,
		Replaced:   replaced,
		UploadedAt: attachment.UploadedAt,
	}, nil
}

// HandleRemove executes the remove command.
func (h *AttachPhotoHandler) HandleRemove(ctx context.Context, cmd RemovePhotoCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	binding, err := h.binding(ctx, cmd.TargetKind, cmd.TargetID)
	if err != nil {
		return err
	}

	if err := h.mediaManager.RemovePhoto(ctx, cmd.TargetID, binding); err != nil {
		return err
	}

	event := shared.NewBaseEvent(shared.EventPhotoRemoved, cmd.TargetID)
	if cmd.CorrelationID != "" {
		event = event.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(photoRemovedEvent{event}); err != nil {
		h.logger.Error("failed to publish photo_removed", logger.Err(err))
	}

	return nil
}

// binding resolves the target kind into a media.Binding, checking the target
// exists for evaluation records.
func (h *AttachPhotoHandler) binding(ctx context.Context, kind PhotoTargetKind, targetID string) (media.Binding, error) {
	switch kind {
	case TargetEvaluation:
		if _, err := h.evaluationRepo.GetByID(ctx, targetID); err != nil {
			return nil, err
		}
		return &evaluationBinding{repo: h.evaluationRepo}, nil
	case TargetExtras:
		return &extrasBinding{repo: h.extrasRepo}, nil
	default:
		return nil, shared.NewValidationError("targetKind", "unknown photo target")
	}
}

// photoRemovedEvent carries no payload beyond the base fields.
type photoRemovedEvent struct {
	shared.BaseEvent
}

func (e photoRemovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"target_id": e.AggregateID()}
}

// ─────────────────────────────────────────────────────────────────────────────
// Bindings over the two persisted photo targets
// ─────────────────────────────────────────────────────────────────────────────

type evaluationBinding struct {
	repo evaluation.Repository
}

func (b *evaluationBinding) Current(ctx context.Context, targetID string) (string, string, error) {
	record, err := b.repo.GetByID(ctx, targetID)
	if err != nil {
		return "", "", err
	}
	return record.PhotoURL, record.PhotoKey, nil
}

func (b *evaluationBinding) Bind(ctx context.Context, targetID, url, storageKey string) error {
	return b.repo.SetPhoto(ctx, targetID, url, storageKey)
}

func (b *evaluationBinding) Unbind(ctx context.Context, targetID string) error {
	return b.repo.ClearPhoto(ctx, targetID)
}

type extrasBinding struct {
	repo evaluation.ExtrasRepository
}

func (b *extrasBinding) Current(ctx context.Context, studentID string) (string, string, error) {
	extras, err := b.repo.Get(ctx, studentID)
	if err != nil {
		return "", "", err
	}
	return extras.GeneralPhotoURL, extras.GeneralPhotoKey, nil
}

func (b *extrasBinding) Bind(ctx context.Context, studentID, url, storageKey string) error {
	return b.repo.UpsertPhoto(ctx, studentID, url, storageKey)
}

func (b *extrasBinding) Unbind(ctx context.Context, studentID string) error {
	return b.repo.ClearPhoto(ctx, studentID)
}
