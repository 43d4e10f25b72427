// Package eventhandler contiene los manejadores de eventos de dominio.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/query"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON EVALUATION RECORDED HANDLER
// Acredita puntos exactamente una vez por registro confirmado. La política
// decide la cantidad; el repositorio garantiza la idempotencia por
// evaluation_id, así que un evento duplicado no acredita dos veces.
// ═══════════════════════════════════════════════════════════════════════════

// OnEvaluationRecordedHandler accrues points when an evaluation commits.
type OnEvaluationRecordedHandler struct {
	evaluationRepo evaluation.Repository
	pointsRepo     points.Repository
	policy         points.AccrualPolicy
	cache          query.BalanceCache
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
}

// NewOnEvaluationRecordedHandler creates the handler. cache may be nil.
func NewOnEvaluationRecordedHandler(
	evaluationRepo evaluation.Repository,
	pointsRepo points.Repository,
	policy points.AccrualPolicy,
	cache query.BalanceCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *OnEvaluationRecordedHandler {
	return &OnEvaluationRecordedHandler{
		evaluationRepo: evaluationRepo,
		pointsRepo:     pointsRepo,
		policy:         policy,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("on_evaluation_recorded")),
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnEvaluationRecordedHandler) EventType() shared.EventType {
	return shared.EventEvaluationRecorded
}

// Handle implements shared.EventHandler.
func (h *OnEvaluationRecordedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	recorded, ok := event.(shared.EvaluationRecordedEvent)
	if !ok {
		h.logger.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())))
		return nil
	}

	record, err := h.evaluationRepo.GetByID(ctx, recorded.EvaluationID)
	if err != nil {
		return fmt.Errorf("load evaluation for accrual: %w", err)
	}

	amount := h.policy.PointsFor(record)
	if err := points.ValidateAmount(amount); err != nil {
		return err
	}
	if amount == 0 {
		h.logger.Debug("accrual policy awarded zero points",
			logger.EvaluationID(record.ID))
		return nil
	}

	newBalance, accrued, err := h.pointsRepo.Accrue(ctx, record.StudentID, record.ID, amount)
	if err != nil {
		return fmt.Errorf("accrue points: %w", err)
	}
	if !accrued {
		// Duplicate delivery; the ledger already has this evaluation.
		h.logger.Debug("accrual skipped, already credited",
			logger.EvaluationID(record.ID))
		return nil
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, record.StudentID); err != nil {
			h.logger.Warn("failed to invalidate points cache",
				logger.StudentID(record.StudentID), logger.Err(err))
		}
	}

	accruedEvent := shared.NewPointsAccruedEvent(record.StudentID, record.ID, amount, newBalance)
	if err := h.eventPublisher.Publish(accruedEvent); err != nil {
		h.logger.Warn("failed to publish points_accrued", logger.Err(err))
	}

	h.logger.Info("points accrued",
		logger.StudentID(record.StudentID),
		logger.EvaluationID(record.ID),
		logger.PointsAmount(amount),
		logger.Int("new_balance", newBalance))

	return nil
}
