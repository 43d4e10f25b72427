package media

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeStore struct {
	blobs   map[string][]byte
	puts    []string
	deletes []string

	putErr    error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.blobs[key] = data
	s.puts = append(s.puts, key)
	return "https://cdn.test/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, key)
	return nil
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range s.blobs {
		keys = append(keys, k)
	}
	_ = prefix
	return keys, nil
}

type fakeBinding struct {
	url, key string

	currentErr error
	bindErr    error
}

func (b *fakeBinding) Current(_ context.Context, _ string) (string, string, error) {
	if b.currentErr != nil {
		return "", "", b.currentErr
	}
	return b.url, b.key, nil
}

func (b *fakeBinding) Bind(_ context.Context, _, url, key string) error {
	if b.bindErr != nil {
		return b.bindErr
	}
	b.url, b.key = url, key
	return nil
}

func (b *fakeBinding) Unbind(_ context.Context, _ string) error {
	b.url, b.key = "", ""
	return nil
}

func testManager(store *fakeStore) *Manager {
	log := logger.New(logger.Options{Output: io.Discard})
	return NewManager(store, log)
}

func staged() *StagedRef {
	return &StagedRef{
		Source:      SourceCamera,
		Data:        []byte("jpeg bytes"),
		ContentType: "image/jpeg",
		StagedAt:    time.Now(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT
// ══════════════════════════════════════════════════════════════════════════════

func TestCommitPhoto(t *testing.T) {
	store := newFakeStore()
	binding := &fakeBinding{}
	m := testManager(store)

	att, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.NoError(t, err)

	assert.Equal(t, "eval-1", att.TargetID)
	assert.Equal(t, "eval-1", TargetIDFromKey(att.StorageKey))
	assert.Equal(t, "https://cdn.test/"+att.StorageKey, att.URL)
	assert.False(t, att.UploadedAt.IsZero())

	assert.Equal(t, att.URL, binding.url, "binding points at the uploaded blob")
	assert.Equal(t, att.StorageKey, binding.key)
	assert.Contains(t, store.blobs, att.StorageKey)
}

func TestCommitPhoto_UploadFailureLeavesBindingUntouched(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("storage unavailable")
	binding := &fakeBinding{url: "https://cdn.test/old", key: "evaluations/eval-1/1.jpg"}
	m := testManager(store)

	_, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUpload)

	assert.Equal(t, "https://cdn.test/old", binding.url, "old photo survives a failed upload")
	assert.Empty(t, store.deletes)
}

func TestCommitPhoto_BindFailureCleansUpOrphanBlob(t *testing.T) {
	store := newFakeStore()
	binding := &fakeBinding{bindErr: errors.New("row gone")}
	m := testManager(store)

	_, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.Error(t, err)

	require.Len(t, store.puts, 1)
	assert.Equal(t, store.puts, store.deletes, "uploaded blob is deleted when the bind fails")
	assert.Empty(t, store.blobs)
}

func TestCommitPhoto_ReplaceDeletesOldBlob(t *testing.T) {
	store := newFakeStore()
	binding := &fakeBinding{}
	clock := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	m := testManager(store).WithClock(func() time.Time { return clock })

	first, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	second, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageKey, second.StorageKey, "replacement never reuses the old key")
	assert.Contains(t, store.deletes, first.StorageKey)
	assert.Equal(t, second.URL, binding.url)
	assert.NotContains(t, store.blobs, first.StorageKey)
	assert.Contains(t, store.blobs, second.StorageKey)
}

func TestCommitPhoto_ReplaceSurvivesOldBlobDeleteFailure(t *testing.T) {
	store := newFakeStore()
	binding := &fakeBinding{url: "https://cdn.test/old", key: "evaluations/eval-1/1.jpg"}
	store.deleteErr = errors.New("transient")
	m := testManager(store)

	att, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.NoError(t, err, "delete of the replaced blob is best-effort")
	assert.Equal(t, att.URL, binding.url)
}

func TestCommitPhoto_InvalidInput(t *testing.T) {
	m := testManager(newFakeStore())
	binding := &fakeBinding{}

	_, err := m.CommitPhoto(context.Background(), nil, "eval-1", binding)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = m.CommitPhoto(context.Background(), staged(), "", binding)
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE
// ══════════════════════════════════════════════════════════════════════════════

func TestRemovePhoto(t *testing.T) {
	store := newFakeStore()
	binding := &fakeBinding{}
	m := testManager(store)

	att, err := m.CommitPhoto(context.Background(), staged(), "eval-1", binding)
	require.NoError(t, err)

	require.NoError(t, m.RemovePhoto(context.Background(), "eval-1", binding))
	assert.Empty(t, binding.url)
	assert.Empty(t, binding.key)
	assert.NotContains(t, store.blobs, att.StorageKey)
}

func TestRemovePhoto_NoPhotoIsNoOp(t *testing.T) {
	store := newFakeStore()
	m := testManager(store)

	require.NoError(t, m.RemovePhoto(context.Background(), "eval-1", &fakeBinding{}))
	assert.Empty(t, store.deletes)
}

func TestRemovePhoto_DeleteFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("transient")
	binding := &fakeBinding{url: "https://cdn.test/x", key: "evaluations/eval-1/1.jpg"}
	m := testManager(store)

	require.NoError(t, m.RemovePhoto(context.Background(), "eval-1", binding))
	assert.Empty(t, binding.key, "association is cleared even when the blob delete fails")
}
