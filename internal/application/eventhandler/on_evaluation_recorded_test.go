package eventhandler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeEvaluationReader struct {
	records map[string]*evaluation.Record
}

func (r *fakeEvaluationReader) Create(_ context.Context, record *evaluation.Record) error {
	r.records[record.ID] = record
	return nil
}

func (r *fakeEvaluationReader) GetByID(_ context.Context, id string) (*evaluation.Record, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, shared.ErrEvaluationNotFound
	}
	return record, nil
}

func (r *fakeEvaluationReader) ListByWindow(_ context.Context, _ evaluation.HistoryFilter) ([]*evaluation.Record, error) {
	return nil, nil
}

func (r *fakeEvaluationReader) ListByStudent(_ context.Context, _ string, _ int) ([]*evaluation.Record, error) {
	return nil, nil
}

func (r *fakeEvaluationReader) Latest(_ context.Context, _ string) (*evaluation.Record, error) {
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationReader) SetPhoto(_ context.Context, _, _, _ string) error  { return nil }
func (r *fakeEvaluationReader) ClearPhoto(_ context.Context, _ string) error      { return nil }
func (r *fakeEvaluationReader) ListPhotoKeys(_ context.Context) ([]string, error) { return nil, nil }

type fakeLedger struct {
	credited map[string]int // evaluationID -> amount
	balances map[string]int
	accrues  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{credited: make(map[string]int), balances: make(map[string]int)}
}

func (l *fakeLedger) Accrue(_ context.Context, studentID, evaluationID string, amount int) (int, bool, error) {
	l.accrues++
	if _, ok := l.credited[evaluationID]; ok {
		return l.balances[studentID], false, nil
	}
	l.credited[evaluationID] = amount
	l.balances[studentID] += amount
	return l.balances[studentID], true, nil
}

func (l *fakeLedger) GetBalance(_ context.Context, studentID string) (*points.Balance, error) {
	return &points.Balance{StudentID: studentID, Points: l.balances[studentID]}, nil
}

func (l *fakeLedger) ListEntries(_ context.Context, _ string) ([]*points.Entry, error) {
	return nil, nil
}

func (l *fakeLedger) Rebuild(_ context.Context, studentID string) (int, error) {
	return l.balances[studentID], nil
}

type fakeBalanceCache struct {
	invalidated []string
}

func (c *fakeBalanceCache) Get(_ context.Context, _ string) (int, bool, error) { return 0, false, nil }
func (c *fakeBalanceCache) Set(_ context.Context, _ string, _ int) error       { return nil }

func (c *fakeBalanceCache) Invalidate(_ context.Context, studentID string) error {
	c.invalidated = append(c.invalidated, studentID)
	return nil
}

type capturePublisher struct {
	events []shared.Event
}

func (p *capturePublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────

func accrualFixture(policy points.AccrualPolicy) (*OnEvaluationRecordedHandler, *fakeLedger, *fakeBalanceCache, *capturePublisher, shared.EvaluationRecordedEvent) {
	record := &evaluation.Record{
		ID:           "eval-1",
		StudentID:    "student-1",
		Level:        student.LevelAmarillo,
		AverageScore: 35.0,
	}
	evals := &fakeEvaluationReader{records: map[string]*evaluation.Record{record.ID: record}}
	ledger := newFakeLedger()
	cache := &fakeBalanceCache{}
	publisher := &capturePublisher{}
	log := logger.New(logger.Options{Output: io.Discard})

	handler := NewOnEvaluationRecordedHandler(evals, ledger, policy, cache, publisher, log)
	event := shared.NewEvaluationRecordedEvent(record.ID, record.StudentID, record.Level.String(), record.AverageScore, false)
	return handler, ledger, cache, publisher, event
}

func TestAccrual(t *testing.T) {
	handler, ledger, cache, publisher, event := accrualFixture(points.FlatAccrual{Amount: 10})

	require.NoError(t, handler.Handle(event))

	assert.Equal(t, 10, ledger.balances["student-1"])
	assert.Equal(t, []string{"student-1"}, cache.invalidated)

	require.Len(t, publisher.events, 1)
	accrued, ok := publisher.events[0].(shared.PointsAccruedEvent)
	require.True(t, ok)
	assert.Equal(t, shared.EventPointsAccrued, accrued.EventType())
	assert.Equal(t, 10, accrued.Amount)
	assert.Equal(t, 10, accrued.NewBalance)
}

func TestAccrual_DuplicateDeliveryCreditsOnce(t *testing.T) {
	handler, ledger, cache, publisher, event := accrualFixture(points.FlatAccrual{Amount: 10})

	require.NoError(t, handler.Handle(event))
	require.NoError(t, handler.Handle(event))

	assert.Equal(t, 10, ledger.balances["student-1"], "a redelivered event never credits twice")
	assert.Equal(t, 2, ledger.accrues)
	assert.Len(t, cache.invalidated, 1, "no invalidation for a skipped accrual")
	assert.Len(t, publisher.events, 1, "no accrued announcement for a duplicate")
}

func TestAccrual_ProportionalPolicy(t *testing.T) {
	handler, ledger, _, _, event := accrualFixture(points.ScoreProportionalAccrual{Factor: 0.5})

	require.NoError(t, handler.Handle(event))

	// floor(35.0 * 0.5) = 17
	assert.Equal(t, 17, ledger.balances["student-1"])
}

func TestAccrual_ZeroAmountSkipsLedger(t *testing.T) {
	handler, ledger, cache, publisher, event := accrualFixture(points.FlatAccrual{Amount: 0})

	require.NoError(t, handler.Handle(event))

	assert.Zero(t, ledger.accrues, "a zero award never touches the ledger")
	assert.Empty(t, cache.invalidated)
	assert.Empty(t, publisher.events)
}

func TestAccrual_MissingEvaluation(t *testing.T) {
	handler, _, _, _, _ := accrualFixture(points.FlatAccrual{Amount: 10})

	ghost := shared.NewEvaluationRecordedEvent("ghost", "student-1", "Amarillo", 30, false)
	err := handler.Handle(ghost)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestAccrual_IgnoresForeignEvents(t *testing.T) {
	handler, ledger, _, _, _ := accrualFixture(points.FlatAccrual{Amount: 10})

	foreign := shared.NewPhotoAttachedEvent("eval-1", "key", "url", false)
	require.NoError(t, handler.Handle(foreign), "unexpected event types are logged, not failed")
	assert.Zero(t, ledger.accrues)
}

func TestAccrual_SubscribedEventType(t *testing.T) {
	handler, _, _, _, _ := accrualFixture(points.FlatAccrual{Amount: 10})
	assert.Equal(t, shared.EventEvaluationRecorded, handler.EventType())
}
