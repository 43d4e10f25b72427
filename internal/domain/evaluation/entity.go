// Package evaluation contains the domain model for periodic skill evaluations:
// the immutable evaluation record, the per-level schema registry, and the
// score aggregation rules. No external dependencies here.
package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// Ratings maps a metric label to its numeric score.
type Ratings map[string]float64

// Clone returns a copy of the ratings map.
func (r Ratings) Clone() Ratings {
	if r == nil {
		return nil
	}
	out := make(Ratings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVALUATION RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is one teacher-submitted assessment event for a student.
//
// Records are append-only: after creation the only permitted mutation is a
// one-time photo attach (or its later replacement/removal through the media
// manager). Level is captured at creation time and never re-derived from the
// student's current tier, so a promoted student keeps their historical
// lower-tier series unchanged.
type Record struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// StudentID - the evaluated student.
	StudentID string

	// Level - proficiency tier captured at creation time. Immutable.
	Level student.Level

	// Exercises - non-empty subset of the level's exercise catalog.
	Exercises []string

	// Ratings - one entry per metric in the level's metric catalog.
	Ratings Ratings

	// Comment - non-empty free text from the teacher.
	Comment string

	// PhotoURL - durable URL of the class photo, if any.
	PhotoURL string

	// PhotoKey - blob storage key of the photo. Stored explicitly so that
	// deletion never depends on parsing the key back out of the URL.
	PhotoKey string

	// AverageScore - arithmetic mean of Ratings, computed once at commit
	// time and stored with the record.
	AverageScore float64

	// CreatedAt - assigned by the persistence layer at commit, never
	// client-supplied.
	CreatedAt time.Time
}

// NewRecordParams contains the caller-supplied fields for a new record.
type NewRecordParams struct {
	ID        string
	StudentID string
	Level     student.Level
	Exercises []string
	Ratings   Ratings
	Comment   string
}

// NewRecord builds and validates a new evaluation record against the schema
// of the captured level. Validation is fail-fast, in this order:
//
//  1. exercises is a non-empty subset of the level's exercise catalog;
//  2. ratings contains exactly the level's metric catalog keys, each value
//     inside the configured metric domain;
//  3. comment is non-blank.
//
// Each failure returns a *shared.ValidationError naming the offending field.
// On success AverageScore is computed via AverageOf.
func NewRecord(params NewRecordParams, schema Schema) (*Record, error) {
	if params.ID == "" {
		return nil, shared.NewValidationError("id", "record id is required")
	}
	if params.StudentID == "" {
		return nil, shared.NewValidationError("studentId", "student id is required")
	}
	if params.Level != schema.Level {
		return nil, shared.NewValidationError("level", fmt.Sprintf("schema is for level %q, record is for %q", schema.Level, params.Level))
	}

	if err := validateExercises(params.Exercises, schema); err != nil {
		return nil, err
	}
	if err := validateRatings(params.Ratings, schema); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Comment) == "" {
		return nil, shared.NewValidationError("comment", "comment must not be blank")
	}

	avg, err := AverageOf(params.Ratings)
	if err != nil {
		// Unreachable: ratings were just validated non-empty.
		return nil, err
	}

	return &Record{
		ID:           params.ID,
		StudentID:    params.StudentID,
		Level:        params.Level,
		Exercises:    append([]string(nil), params.Exercises...),
		Ratings:      params.Ratings.Clone(),
		Comment:      params.Comment,
		AverageScore: avg,
	}, nil
}

// validateExercises checks rule 1: non-empty subset of the exercise catalog.
func validateExercises(exercises []string, schema Schema) error {
	if len(exercises) == 0 {
		return shared.NewValidationError("exercises", "at least one exercise is required")
	}

	catalog := make(map[string]struct{}, len(schema.Exercises))
	for _, e := range schema.Exercises {
		catalog[e] = struct{}{}
	}

	seen := make(map[string]struct{}, len(exercises))
	for _, e := range exercises {
		if _, ok := catalog[e]; !ok {
			return shared.NewValidationError("exercises", fmt.Sprintf("%q is not in the %s exercise catalog", e, schema.Level))
		}
		if _, dup := seen[e]; dup {
			return shared.NewValidationError("exercises", fmt.Sprintf("%q listed twice", e))
		}
		seen[e] = struct{}{}
	}

	return nil
}

// validateRatings checks rule 2: exactly the metric catalog keys, each value
// inside the configured domain.
func validateRatings(ratings Ratings, schema Schema) error {
	for _, metric := range schema.Metrics {
		value, ok := ratings[metric]
		if !ok {
			return shared.NewValidationError("ratings", fmt.Sprintf("missing metric %q", metric))
		}
		if !schema.Domain.Contains(value) {
			return shared.NewValidationError("ratings", fmt.Sprintf("metric %q: value %v outside domain %s", metric, value, schema.Domain))
		}
	}

	if len(ratings) != len(schema.Metrics) {
		for label := range ratings {
			if !schema.HasMetric(label) {
				return shared.NewValidationError("ratings", fmt.Sprintf("%q is not in the %s metric catalog", label, schema.Level))
			}
		}
	}

	return nil
}

// HasPhoto reports whether a photo is attached to the record.
func (r *Record) HasPhoto() bool {
	return r.PhotoURL != ""
}

// AttachPhoto links an uploaded photo to the record. The record itself stays
// otherwise immutable.
func (r *Record) AttachPhoto(url, storageKey string) {
	r.PhotoURL = url
	r.PhotoKey = storageKey
}

// DetachPhoto clears the photo association. Idempotent.
func (r *Record) DetachPhoto() {
	r.PhotoURL = ""
	r.PhotoKey = ""
}

// String returns a log-friendly representation.
func (r *Record) String() string {
	return fmt.Sprintf("Record{ID: %s, Student: %s, Level: %s, Avg: %.2f}", r.ID, r.StudentID, r.Level, r.AverageScore)
}

// Clone creates a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Exercises = append([]string(nil), r.Exercises...)
	clone.Ratings = r.Ratings.Clone()
	return &clone
}
