// Package points contiene el libro de puntos acumulables del alumno. Los
// puntos se acreditan una sola vez por registro de evaluación confirmado; la
// cantidad la decide una política inyectada, no el dominio.
package points

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
)

// Balance is a student's current accumulated points.
type Balance struct {
	StudentID string
	Points    int
	UpdatedAt time.Time
}

// Entry is one accrual line in the ledger, tied to the evaluation that
// produced it. The EvaluationID uniqueness is what makes accrual idempotent.
type Entry struct {
	StudentID    string
	EvaluationID string
	Amount       int
	AccruedAt    time.Time
}

// AccrualPolicy decides how many points a committed evaluation earns.
// Implementations must return a non-negative amount.
type AccrualPolicy interface {
	PointsFor(record *evaluation.Record) int
}

// FlatAccrual awards a fixed amount per evaluation regardless of score.
type FlatAccrual struct {
	Amount int
}

// PointsFor implements AccrualPolicy.
func (p FlatAccrual) PointsFor(_ *evaluation.Record) int {
	if p.Amount < 0 {
		return 0
	}
	return p.Amount
}

// ScoreProportionalAccrual awards points proportional to the record's
// average score: floor(avg * Factor). Factor of 0 disables accrual.
type ScoreProportionalAccrual struct {
	Factor float64
}

// PointsFor implements AccrualPolicy.
func (p ScoreProportionalAccrual) PointsFor(record *evaluation.Record) int {
	amount := int(record.AverageScore * p.Factor)
	if amount < 0 {
		return 0
	}
	return amount
}

// Repository defines persistence for balances and accrual entries.
// Implementations live in internal/infrastructure/persistence.
type Repository interface {
	// Accrue records one entry and bumps the balance atomically. A second
	// call with the same evaluationID is a no-op that returns the current
	// balance and accrued=false.
	Accrue(ctx context.Context, studentID, evaluationID string, amount int) (newBalance int, accrued bool, err error)

	// GetBalance returns the student's balance. A student with no entries
	// has balance 0, not an error.
	GetBalance(ctx context.Context, studentID string) (*Balance, error)

	// ListEntries returns the student's accrual entries, newest first.
	ListEntries(ctx context.Context, studentID string) ([]*Entry, error)

	// Rebuild recomputes the balance from the entries. Used by the
	// reconciliation worker job.
	Rebuild(ctx context.Context, studentID string) (int, error)
}

// ValidateAmount rejects amounts that would break the non-negative balance
// invariant at the source.
func ValidateAmount(amount int) error {
	if amount < 0 {
		return shared.ErrNegativeBalance
	}
	return nil
}
