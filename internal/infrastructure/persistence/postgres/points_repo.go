package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS REPOSITORY IMPLEMENTATION
// The entries table is the source of truth; the balances table is a running
// total maintained in the same transaction. The unique evaluation_id on
// entries makes Accrue idempotent.
// ══════════════════════════════════════════════════════════════════════════════

// PointsRepository implements points.Repository for PostgreSQL.
type PointsRepository struct {
	conn *Connection
}

// NewPointsRepository creates a new PointsRepository.
func NewPointsRepository(conn *Connection) *PointsRepository {
	return &PointsRepository{conn: conn}
}

// Accrue records one entry and bumps the balance atomically.
func (r *PointsRepository) Accrue(ctx context.Context, studentID, evaluationID string, amount int) (int, bool, error) {
	if err := points.ValidateAmount(amount); err != nil {
		return 0, false, err
	}

	var newBalance int
	var accrued bool

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO points_entries (student_id, evaluation_id, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (evaluation_id) DO NOTHING
		`, studentID, evaluationID, amount)
		if err != nil {
			return fmt.Errorf("failed to insert points entry: %w", err)
		}

		accrued = tag.RowsAffected() > 0
		if !accrued {
			// Duplicate delivery; just report the current balance.
			return tx.QueryRow(ctx,
				`SELECT COALESCE((SELECT points FROM points_balances WHERE student_id = $1), 0)`,
				studentID).Scan(&newBalance)
		}

		return tx.QueryRow(ctx, `
			INSERT INTO points_balances (student_id, points, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (student_id)
			DO UPDATE SET points = points_balances.points + EXCLUDED.points, updated_at = NOW()
			RETURNING points
		`, studentID, amount).Scan(&newBalance)
	})
	if err != nil {
		if IsForeignKeyViolation(err) {
			return 0, false, shared.ErrEvaluationNotFound
		}
		return 0, false, err
	}

	return newBalance, accrued, nil
}

// GetBalance returns the student's balance, zero when absent.
func (r *PointsRepository) GetBalance(ctx context.Context, studentID string) (*points.Balance, error) {
	query := `SELECT points, updated_at FROM points_balances WHERE student_id = $1`

	balance := &points.Balance{StudentID: studentID}
	err := r.conn.QueryRow(ctx, query, studentID).Scan(&balance.Points, &balance.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return balance, nil
		}
		return nil, fmt.Errorf("failed to get points balance: %w", err)
	}

	return balance, nil
}

// ListEntries returns the student's accrual entries, newest first.
func (r *PointsRepository) ListEntries(ctx context.Context, studentID string) ([]*points.Entry, error) {
	query := `
		SELECT student_id, evaluation_id, amount, accrued_at
		FROM points_entries
		WHERE student_id = $1
		ORDER BY accrued_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list points entries: %w", err)
	}
	defer rows.Close()

	var entries []*points.Entry
	for rows.Next() {
		var e points.Entry
		var accruedAt time.Time
		if err := rows.Scan(&e.StudentID, &e.EvaluationID, &e.Amount, &accruedAt); err != nil {
			return nil, fmt.Errorf("failed to scan points entry: %w", err)
		}
		e.AccruedAt = accruedAt
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Rebuild recomputes the balance from the entries.
func (r *PointsRepository) Rebuild(ctx context.Context, studentID string) (int, error) {
	var total int

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM points_entries WHERE student_id = $1`,
			studentID).Scan(&total); err != nil {
			return fmt.Errorf("failed to sum points entries: %w", err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO points_balances (student_id, points, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (student_id)
			DO UPDATE SET points = EXCLUDED.points, updated_at = NOW()
		`, studentID, total)
		return err
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}
