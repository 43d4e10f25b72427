package command

import (
	"context"
	"io"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// In-memory fakes shared by the command handler tests.

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentRepo struct {
	students map[string]*student.Student
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{students: make(map[string]*student.Student)}
	for _, s := range students {
		r.students[s.ID] = s
	}
	return r
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.students[s.ID] = s
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s, nil
}

func (r *fakeStudentRepo) UpdateLevel(_ context.Context, id string, level student.Level) error {
	s, ok := r.students[id]
	if !ok {
		return shared.ErrStudentNotFound
	}
	s.Level = level
	return nil
}

func (r *fakeStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}

func (r *fakeStudentRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.students))
	for id := range r.students {
		ids = append(ids, id)
	}
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeEvaluationRepo struct {
	records   map[string]*evaluation.Record
	order     []string
	createErr error
}

func newFakeEvaluationRepo() *fakeEvaluationRepo {
	return &fakeEvaluationRepo{records: make(map[string]*evaluation.Record)}
}

func (r *fakeEvaluationRepo) Create(_ context.Context, record *evaluation.Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	record.CreatedAt = time.Now().UTC()
	r.records[record.ID] = record.Clone()
	r.order = append(r.order, record.ID)
	return nil
}

func (r *fakeEvaluationRepo) GetByID(_ context.Context, id string) (*evaluation.Record, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, shared.ErrEvaluationNotFound
	}
	return record.Clone(), nil
}

func (r *fakeEvaluationRepo) ListByWindow(_ context.Context, filter evaluation.HistoryFilter) ([]*evaluation.Record, error) {
	var out []*evaluation.Record
	for _, id := range r.order {
		record := r.records[id]
		if record.StudentID != filter.StudentID {
			continue
		}
		if record.CreatedAt.Before(filter.From) || !record.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.Level != nil && record.Level != *filter.Level {
			continue
		}
		out = append(out, record.Clone())
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListByStudent(_ context.Context, studentID string, limit int) ([]*evaluation.Record, error) {
	var out []*evaluation.Record
	for i := len(r.order) - 1; i >= 0; i-- {
		record := r.records[r.order[i]]
		if record.StudentID != studentID {
			continue
		}
		out = append(out, record.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) Latest(_ context.Context, studentID string) (*evaluation.Record, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		record := r.records[r.order[i]]
		if record.StudentID == studentID {
			return record.Clone(), nil
		}
	}
	return nil, shared.ErrEvaluationNotFound
}

func (r *fakeEvaluationRepo) SetPhoto(_ context.Context, recordID, url, storageKey string) error {
	record, ok := r.records[recordID]
	if !ok {
		return shared.ErrEvaluationNotFound
	}
	record.AttachPhoto(url, storageKey)
	return nil
}

func (r *fakeEvaluationRepo) ClearPhoto(_ context.Context, recordID string) error {
	record, ok := r.records[recordID]
	if !ok {
		return shared.ErrEvaluationNotFound
	}
	record.DetachPhoto()
	return nil
}

func (r *fakeEvaluationRepo) ListPhotoKeys(_ context.Context) ([]string, error) {
	var keys []string
	for _, record := range r.records {
		if record.PhotoKey != "" {
			keys = append(keys, record.PhotoKey)
		}
	}
	return keys, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeExtrasRepo struct {
	extras map[string]*evaluation.Extras
}

func newFakeExtrasRepo() *fakeExtrasRepo {
	return &fakeExtrasRepo{extras: make(map[string]*evaluation.Extras)}
}

func (r *fakeExtrasRepo) Get(_ context.Context, studentID string) (*evaluation.Extras, error) {
	if e, ok := r.extras[studentID]; ok {
		copied := *e
		return &copied, nil
	}
	return &evaluation.Extras{StudentID: studentID}, nil
}

func (r *fakeExtrasRepo) UpsertComment(_ context.Context, studentID, comment string) error {
	e := r.ensure(studentID)
	e.GeneralComment = comment
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeExtrasRepo) UpsertPhoto(_ context.Context, studentID, url, storageKey string) error {
	e := r.ensure(studentID)
	e.GeneralPhotoURL = url
	e.GeneralPhotoKey = storageKey
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeExtrasRepo) ClearPhoto(_ context.Context, studentID string) error {
	if e, ok := r.extras[studentID]; ok {
		e.GeneralPhotoURL = ""
		e.GeneralPhotoKey = ""
	}
	return nil
}

func (r *fakeExtrasRepo) ListPhotoKeys(_ context.Context) ([]string, error) {
	var keys []string
	for _, e := range r.extras {
		if e.GeneralPhotoKey != "" {
			keys = append(keys, e.GeneralPhotoKey)
		}
	}
	return keys, nil
}

func (r *fakeExtrasRepo) ensure(studentID string) *evaluation.Extras {
	if e, ok := r.extras[studentID]; ok {
		return e
	}
	e := &evaluation.Extras{StudentID: studentID}
	r.extras[studentID] = e
	return e
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeBlobStore struct {
	blobs   map[string][]byte
	deletes []string
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.blobs[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) List(_ context.Context, _ string) ([]string, error) {
	var keys []string
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type capturePublisher struct {
	events []shared.Event
	err    error
}

func (p *capturePublisher) Publish(event shared.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) last() shared.Event {
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// ─────────────────────────────────────────────────────────────────────────────

func testRegistry() *evaluation.SchemaRegistry {
	r := evaluation.NewSchemaRegistry()
	_ = r.Register(evaluation.Schema{
		Level:     student.LevelAmarillo,
		Exercises: []string{"Monta asistida", "Cepillado del caballo", "Paso guiado"},
		Metrics:   []string{"Postura", "Confianza"},
		Domain:    evaluation.DefaultMetricDomain(),
	})
	_ = r.Register(evaluation.Schema{
		Level:     student.LevelAzul,
		Exercises: []string{"Transiciones paso-trote"},
		Metrics:   []string{"Equilibrio"},
		Domain:    evaluation.DefaultMetricDomain(),
	})
	return r
}

func testStaged() *media.StagedRef {
	return &media.StagedRef{
		Source:      media.SourceGallery,
		Data:        []byte("jpeg bytes"),
		ContentType: "image/jpeg",
		StagedAt:    time.Now(),
	}
}

func mustStudent(id, name string, level student.Level) *student.Student {
	s, err := student.NewStudent(id, name, level)
	if err != nil {
		panic(err)
	}
	return s
}
