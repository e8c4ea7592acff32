package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

type memRecorder struct {
	mu       sync.Mutex
	statuses map[string]string
}

func (r *memRecorder) RecordWebhook(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]string{}
	}
	r.statuses[id] = status
	return nil
}

func (r *memRecorder) get(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[id]
}

type received struct {
	payload   models.WebhookPayload
	signature string
	calls     int
}

func hookServer(t *testing.T, status int) (*httptest.Server, *received, *sync.Mutex) {
	t.Helper()
	var (
		mu  sync.Mutex
		got received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		got.calls++
		got.signature = r.Header.Get(SignatureHeader)
		json.Unmarshal(body, &got.payload)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &mu
}

func TestNotify_Completed(t *testing.T) {
	srv, got, mu := hookServer(t, http.StatusNoContent)
	rec := &memRecorder{}
	s := New(rec, "hook-secret")

	s.Notify(models.Conversion{ID: "cv-1", Tool: "word-to-pdf", Status: models.StatusCompleted, WebhookURL: srv.URL})
	require.NoError(t, s.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, got.calls)
	assert.Equal(t, models.EventConversionCompleted, got.payload.Event)
	assert.Equal(t, "cv-1", got.payload.Data.ID)
	assert.Equal(t, "word-to-pdf", got.payload.Data.Tool)
	assert.False(t, got.payload.Timestamp.IsZero())
	assert.Len(t, got.signature, 64)
	assert.Equal(t, StatusDelivered, rec.get("cv-1"))
}

func TestNotify_FailedEndpointIsNotRetried(t *testing.T) {
	srv, got, mu := hookServer(t, http.StatusInternalServerError)
	rec := &memRecorder{}
	s := New(rec, "")

	s.Notify(models.Conversion{ID: "cv-2", Status: models.StatusFailed, ErrorMessage: "boom", WebhookURL: srv.URL})
	require.NoError(t, s.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, got.calls)
	assert.Equal(t, models.EventConversionFailed, got.payload.Event)
	assert.Equal(t, "boom", got.payload.Data.ErrorMessage)
	assert.Empty(t, got.signature, "no secret, no signature")
	assert.Equal(t, StatusFailed, rec.get("cv-2"))
}

func TestNotify_IgnoresUnfinished(t *testing.T) {
	srv, got, mu := hookServer(t, http.StatusOK)
	s := New(&memRecorder{}, "")

	s.Notify(models.Conversion{ID: "cv-3", Status: models.StatusProcessing, WebhookURL: srv.URL})
	s.Notify(models.Conversion{ID: "cv-4", Status: models.StatusCompleted})
	require.NoError(t, s.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, got.calls)
}

func TestShutdown_AbortsSlowDelivery(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	rec := &memRecorder{}
	s := New(rec, "")
	s.Notify(models.Conversion{ID: "cv-5", Status: models.StatusCompleted, WebhookURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, rec.get("cv-5"))
}

func TestSignPayload(t *testing.T) {
	a := SignPayload([]byte(`{"event":"x"}`), "secret")
	assert.Equal(t, a, SignPayload([]byte(`{"event":"x"}`), "secret"))
	assert.NotEqual(t, a, SignPayload([]byte(`{"event":"x"}`), "other"))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://example.com/hooks/smartconverter", true},
		{"http://localhost:9000/cb", true},
		{"ftp://example.com/x", false},
		{"/relative/path", false},
		{"https://", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateURL(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}
