// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Evaluation events
	EventEvaluationRecorded EventType = "evaluation.recorded"
	EventPhotoAttached      EventType = "evaluation.photo_attached"
	EventPhotoRemoved       EventType = "evaluation.photo_removed"
	EventExtrasUpdated      EventType = "evaluation.extras_updated"

	// Points events
	EventPointsAccrued EventType = "points.accrued"

	// Student events
	EventStudentLevelChanged EventType = "student.level_changed"

	// System events
	EventOrphanMediaCleaned EventType = "system.orphan_media_cleaned"
	EventPointsRebuilt      EventType = "system.points_rebuilt"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Evaluation Events
// ═══════════════════════════════════════════════════════════════════════════

// EvaluationRecordedEvent is emitted exactly once for every committed
// evaluation record. The points ledger subscribes to this event, so its
// delivery guarantee is what backs the "one accrual attempt per record" rule.
type EvaluationRecordedEvent struct {
	BaseEvent
	EvaluationID string  `json:"evaluation_id"`
	StudentID    string  `json:"student_id"`
	Level        string  `json:"level"`
	AverageScore float64 `json:"average_score"`
	HasPhoto     bool    `json:"has_photo"`
}

// Payload implements Event interface.
func (e EvaluationRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"evaluation_id": e.EvaluationID,
		"student_id":    e.StudentID,
		"level":         e.Level,
		"average_score": e.AverageScore,
		"has_photo":     e.HasPhoto,
	}
}

// NewEvaluationRecordedEvent creates a new EvaluationRecordedEvent.
func NewEvaluationRecordedEvent(evaluationID, studentID, level string, averageScore float64, hasPhoto bool) EvaluationRecordedEvent {
	return EvaluationRecordedEvent{
		BaseEvent:    NewBaseEvent(EventEvaluationRecorded, evaluationID),
		EvaluationID: evaluationID,
		StudentID:    studentID,
		Level:        level,
		AverageScore: averageScore,
		HasPhoto:     hasPhoto,
	}
}

// PhotoAttachedEvent is emitted when a photo is linked to a target
// (an evaluation record or a student's history extras).
type PhotoAttachedEvent struct {
	BaseEvent
	TargetID   string `json:"target_id"`
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
	Replaced   bool   `json:"replaced"`
}

// Payload implements Event interface.
func (e PhotoAttachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"target_id":   e.TargetID,
		"storage_key": e.StorageKey,
		"url":         e.URL,
		"replaced":    e.Replaced,
	}
}

// NewPhotoAttachedEvent creates a new PhotoAttachedEvent.
func NewPhotoAttachedEvent(targetID, storageKey, url string, replaced bool) PhotoAttachedEvent {
	return PhotoAttachedEvent{
		BaseEvent:  NewBaseEvent(EventPhotoAttached, targetID),
		TargetID:   targetID,
		StorageKey: storageKey,
		URL:        url,
		Replaced:   replaced,
	}
}

// ExtrasUpdatedEvent is emitted when a student's history extras are upserted.
type ExtrasUpdatedEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	CommentChanged bool   `json:"comment_changed"`
	PhotoChanged   bool   `json:"photo_changed"`
}

// Payload implements Event interface.
func (e ExtrasUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"comment_changed": e.CommentChanged,
		"photo_changed":   e.PhotoChanged,
	}
}

// NewExtrasUpdatedEvent creates a new ExtrasUpdatedEvent.
func NewExtrasUpdatedEvent(studentID string, commentChanged, photoChanged bool) ExtrasUpdatedEvent {
	return ExtrasUpdatedEvent{
		BaseEvent:      NewBaseEvent(EventExtrasUpdated, studentID),
		StudentID:      studentID,
		CommentChanged: commentChanged,
		PhotoChanged:   photoChanged,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAccruedEvent is emitted when points are added to a student's balance.
type PointsAccruedEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	EvaluationID string `json:"evaluation_id"`
	Amount       int    `json:"amount"`
	NewBalance   int    `json:"new_balance"`
}

// Payload implements Event interface.
func (e PointsAccruedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"evaluation_id": e.EvaluationID,
		"amount":        e.Amount,
		"new_balance":   e.NewBalance,
	}
}

// NewPointsAccruedEvent creates a new PointsAccruedEvent.
func NewPointsAccruedEvent(studentID, evaluationID string, amount, newBalance int) PointsAccruedEvent {
	return PointsAccruedEvent{
		BaseEvent:    NewBaseEvent(EventPointsAccrued, studentID),
		StudentID:    studentID,
		EvaluationID: evaluationID,
		Amount:       amount,
		NewBalance:   newBalance,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentLevelChangedEvent is emitted when a teacher promotes or demotes a
// student. Existing evaluation records keep the level captured at creation.
type StudentLevelChangedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldLevel  string `json:"old_level"`
	NewLevel  string `json:"new_level"`
}

// Payload implements Event interface.
func (e StudentLevelChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
	}
}

// NewStudentLevelChangedEvent creates a new StudentLevelChangedEvent.
func NewStudentLevelChangedEvent(studentID, oldLevel, newLevel string) StudentLevelChangedEvent {
	return StudentLevelChangedEvent{
		BaseEvent: NewBaseEvent(EventStudentLevelChanged, studentID),
		StudentID: studentID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
