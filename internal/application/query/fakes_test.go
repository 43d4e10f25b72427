package query

import (
	"context"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
)

// In-memory fakes shared by the query handler tests.

type fakeStudentRepo struct {
	ids map[string]bool
}

func newFakeStudentRepo(ids ...string) *fakeStudentRepo {
	r := &fakeStudentRepo{ids: make(map[string]bool)}
	for _, id := range ids {
		r.ids[id] = true
	}
	return r
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.ids[s.ID] = true
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	if !r.ids[id] {
		return nil, shared.ErrStudentNotFound
	}
	return &student.Student{ID: id, DisplayName: "María", Level: student.LevelAmarillo}, nil
}

func (r *fakeStudentRepo) UpdateLevel(_ context.Context, _ string, _ student.Level) error {
	return nil
}

func (r *fakeStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	return r.ids[id], nil
}

func (r *fakeStudentRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeEvaluationRepo struct {
	records []*evaluation.Record
}

func (r *fakeEvaluationRepo) Create(_ context.Context, record *evaluation.Record) error {
	r.records = append(r.records, record)
	return nil
}

func (r *fakeEvaluationRepo) GetByID(_ context.Context, id string) (*evaluation.Record, error) {
	for _, record := range r.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationRepo) ListByWindow(_ context.Context, filter evaluation.HistoryFilter) ([]*evaluation.Record, error) {
	var out []*evaluation.Record
	for _, record := range r.records {
		if record.StudentID != filter.StudentID {
			continue
		}
		if record.CreatedAt.Before(filter.From) || !record.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.Level != nil && record.Level != *filter.Level {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListByStudent(_ context.Context, studentID string, limit int) ([]*evaluation.Record, error) {
	var out []*evaluation.Record
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].StudentID != studentID {
			continue
		}
		out = append(out, r.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) Latest(_ context.Context, studentID string) (*evaluation.Record, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].StudentID == studentID {
			return r.records[i], nil
		}
	}
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationRepo) SetPhoto(_ context.Context, _, _, _ string) error  { return nil }
func (r *fakeEvaluationRepo) ClearPhoto(_ context.Context, _ string) error      { return nil }
func (r *fakeEvaluationRepo) ListPhotoKeys(_ context.Context) ([]string, error) { return nil, nil }

// ─────────────────────────────────────────────────────────────────────────────

type fakeExtrasRepo struct {
	extras map[string]*evaluation.Extras
}

func (r *fakeExtrasRepo) Get(_ context.Context, studentID string) (*evaluation.Extras, error) {
	if e, ok := r.extras[studentID]; ok {
		return e, nil
	}
	return &evaluation.Extras{StudentID: studentID}, nil
}

func (r *fakeExtrasRepo) UpsertComment(_ context.Context, studentID, comment string) error {
	if r.extras == nil {
		r.extras = make(map[string]*evaluation.Extras)
	}
	e, ok := r.extras[studentID]
	if !ok {
		e = &evaluation.Extras{StudentID: studentID}
		r.extras[studentID] = e
	}
	e.GeneralComment = comment
	return nil
}

func (r *fakeExtrasRepo) UpsertPhoto(_ context.Context, _, _, _ string) error   { return nil }
func (r *fakeExtrasRepo) ClearPhoto(_ context.Context, _ string) error          { return nil }
func (r *fakeExtrasRepo) ListPhotoKeys(_ context.Context) ([]string, error)     { return nil, nil }

// ─────────────────────────────────────────────────────────────────────────────

func recordAt(id, studentID string, level student.Level, avg float64, createdAt time.Time) *evaluation.Record {
	return &evaluation.Record{
		ID:           id,
		StudentID:    studentID,
		Level:        level,
		Exercises:    []string{"Monta asistida"},
		Ratings:      evaluation.Ratings{"Postura": avg},
		Comment:      "ok",
		AverageScore: avg,
		CreatedAt:    createdAt,
	}
}
