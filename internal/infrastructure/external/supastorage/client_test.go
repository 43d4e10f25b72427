package supastorage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		ServiceKey: "test-key",
		Bucket:     "evaluations-media",
		Timeout:    5 * time.Second,
	})
	return client, server
}

func TestClient_Put(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte

	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/evaluations-media/evaluations/student-1/123.jpg", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Key":"evaluations-media/evaluations/student-1/123.jpg"}`))
	}))

	url, err := client.Put(context.Background(), "evaluations/student-1/123.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, []byte("jpeg-bytes"), gotBody)
	assert.Equal(t, server.URL+"/storage/v1/object/public/evaluations-media/evaluations/student-1/123.jpg", url)
}

func TestClient_Put_EmptyData(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Put(context.Background(), "evaluations/s/1.jpg", nil, "image/jpeg")
	assert.Error(t, err)
}

func TestClient_Put_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	_, err := client.Put(context.Background(), "evaluations/s/1.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Put_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"InvalidRequest","message":"bad key"}`))
	}))

	_, err := client.Put(context.Background(), "evaluations/s/1.jpg", []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Delete_MissingKeyIsNotError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"Object not found"}`))
	}))

	err := client.Delete(context.Background(), "evaluations/s/gone.jpg")
	assert.NoError(t, err)
}

func TestClient_List_WalksFolders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/storage/v1/object/list/evaluations-media", r.URL.Path)

		var body struct {
			Prefix string `json:"prefix"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		switch body.Prefix {
		case "evaluations":
			// One folder per student; folders have no object ID.
			w.Write([]byte(`[{"name":"student-1"},{"name":"student-2"}]`))
		case "evaluations/student-1":
			w.Write([]byte(`[{"name":"100.jpg","id":"a"},{"name":"200.jpg","id":"b"}]`))
		case "evaluations/student-2":
			w.Write([]byte(`[{"name":"300.jpg","id":"c"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))

	keys, err := client.List(context.Background(), "evaluations/")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"evaluations/student-1/100.jpg",
		"evaluations/student-1/200.jpg",
		"evaluations/student-2/300.jpg",
	}, keys)
}

func TestClient_PublicURL(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL:    "https://proj.supabase.co",
		ServiceKey: "k",
		Bucket:     "evaluations-media",
	})

	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/evaluations-media/evaluations/s1/42.jpg",
		client.PublicURL("evaluations/s1/42.jpg"))
}
