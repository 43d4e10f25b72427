package query

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POINTS QUERY
// Balance lookups hit Redis first; on a miss the ledger is the source of
// truth and the cache is refilled. A cache outage degrades to plain reads.
// ══════════════════════════════════════════════════════════════════════════════

// BalanceCache is the read-through cache in front of the points ledger.
// Implemented by the Redis points cache in infrastructure.
type BalanceCache interface {
	// Get returns the cached balance and whether it was present.
	Get(ctx context.Context, studentID string) (int, bool, error)

	// Set stores the balance with the cache's configured TTL.
	Set(ctx context.Context, studentID string, balance int) error

	// Invalidate drops the student's cached balance.
	Invalidate(ctx context.Context, studentID string) error
}

// GetPointsResult is the balance response.
type GetPointsResult struct {
	StudentID string    `json:"studentId"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// GetPointsHandler handles balance queries.
type GetPointsHandler struct {
	studentRepo student.Repository
	pointsRepo  points.Repository
	cache       BalanceCache
	logger      *logger.Logger
}

// NewGetPointsHandler creates a new GetPointsHandler. cache may be nil.
func NewGetPointsHandler(
	studentRepo student.Repository,
	pointsRepo points.Repository,
	cache BalanceCache,
	log *logger.Logger,
) *GetPointsHandler {
	return &GetPointsHandler{
		studentRepo: studentRepo,
		pointsRepo:  pointsRepo,
		cache:       cache,
		logger:      log.With(logger.Component("get_points")),
	}
}

// Handle executes the query.
func (h *GetPointsHandler) Handle(ctx context.Context, studentID string) (*GetPointsResult, error) {
	if studentID == "" {
		return nil, shared.NewValidationError("studentId", "student id is required")
	}

	exists, err := h.studentRepo.Exists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrStudentNotFound
	}

	if h.cache != nil {
		if cached, ok, err := h.cache.Get(ctx, studentID); err == nil && ok {
			return &GetPointsResult{StudentID: studentID, Points: cached}, nil
		} else if err != nil {
			h.logger.Warn("points cache read failed, falling back to ledger",
				logger.StudentID(studentID), logger.Err(err))
		}
	}

	balance, err := h.pointsRepo.GetBalance(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, studentID, balance.Points); err != nil {
			h.logger.Warn("points cache refill failed",
				logger.StudentID(studentID), logger.Err(err))
		}
	}

	return &GetPointsResult{
		StudentID: balance.StudentID,
		Points:    balance.Points,
		UpdatedAt: balance.UpdatedAt,
	}, nil
}
