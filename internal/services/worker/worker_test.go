package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/convert"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]models.Conversion
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{rows: map[string]models.Conversion{}}
	for _, id := range ids {
		s.rows[id] = models.Conversion{ID: id, Status: models.StatusPending}
	}
	return s
}

func (s *memStore) GetConversion(_ context.Context, id string) (*models.Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &cv, nil
}

func (s *memStore) UpdateConversion(_ context.Context, cv *models.Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[cv.ID] = *cv
	return nil
}

func (s *memStore) get(id string) models.Conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

type fakeRunner struct {
	err   error
	block chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context, slug string, in convert.Input) (convert.Result, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return convert.Result{}, ctx.Err()
		}
	}
	if r.err != nil {
		return convert.Result{}, r.err
	}
	return convert.Result{Data: []byte("%PDF-out"), Name: slug + "-smartconverter-" + in.Name, Pages: 2}, nil
}

type memResults struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memResults) Save(id string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[id] = data
	return "/results/" + id, nil
}

func TestPool_CompletesJob(t *testing.T) {
	store := newMemStore("job-1")
	results := &memResults{}
	p := NewPool(1, 4, time.Second, store, &fakeRunner{}, results)
	p.Start()

	require.NoError(t, p.Submit(Job{ID: "job-1", Tool: "word-to-pdf", Input: convert.Input{Name: "a.pdf"}}))
	p.Stop()

	cv := store.get("job-1")
	assert.Equal(t, models.StatusCompleted, cv.Status)
	assert.Equal(t, "word-to-pdf-smartconverter-a.pdf", cv.OutputName)
	assert.Equal(t, int64(8), cv.OutputBytes)
	assert.Equal(t, 2, cv.PageCount)
	assert.Equal(t, "/results/job-1", cv.ResultPath)
	assert.Equal(t, "%PDF-out", string(results.files["job-1"]))
}

func TestPool_RecordsFailure(t *testing.T) {
	store := newMemStore("job-2")
	p := NewPool(1, 4, time.Second, store, &fakeRunner{err: errors.New("soffice crashed")}, &memResults{})
	p.Start()

	require.NoError(t, p.Submit(Job{ID: "job-2", Tool: "word-to-pdf"}))
	p.Stop()

	cv := store.get("job-2")
	assert.Equal(t, models.StatusFailed, cv.Status)
	assert.Equal(t, "soffice crashed", cv.ErrorMessage)
}

func TestPool_SubmitWhenFull(t *testing.T) {
	block := make(chan struct{})
	store := newMemStore("a", "b", "c")
	p := NewPool(1, 1, time.Second, store, &fakeRunner{block: block}, &memResults{})
	p.Start()

	require.NoError(t, p.Submit(Job{ID: "a"}))
	// Wait for the worker to pick up "a" so the buffer slot frees.
	require.Eventually(t, func() bool { return p.QueueSize() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Submit(Job{ID: "b"}))
	assert.ErrorIs(t, p.Submit(Job{ID: "c"}), ErrQueueFull)

	close(block)
	p.Stop()
	assert.ErrorIs(t, p.Submit(Job{ID: "c"}), ErrQueueFull, "stopped pool rejects jobs")
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(0, 0, 0, newMemStore(), &fakeRunner{}, &memResults{})
	assert.Equal(t, 1, p.WorkerCount())
	assert.Equal(t, 5*time.Minute, p.timeout)
}

type memNotifier struct {
	mu   sync.Mutex
	seen []models.Conversion
}

func (n *memNotifier) Notify(cv models.Conversion) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, cv)
}

func (n *memNotifier) statuses() map[string]models.ConversionStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[string]models.ConversionStatus{}
	for _, cv := range n.seen {
		out[cv.ID] = cv.Status
	}
	return out
}

func TestPool_StopDrainsQueue(t *testing.T) {
	block := make(chan struct{})
	store := newMemStore("running", "queued")
	p := NewPool(1, 4, time.Second, store, &fakeRunner{block: block}, &memResults{})
	p.Start()

	require.NoError(t, p.Submit(Job{ID: "running", Tool: "pdf-to-jpg"}))
	require.Eventually(t, func() bool { return p.QueueSize() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Submit(Job{ID: "queued", Tool: "pdf-to-jpg"}))

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still running")
	case <-time.After(50 * time.Millisecond):
	}
	assert.ErrorIs(t, p.Submit(Job{ID: "late"}), ErrQueueFull, "closed queue rejects jobs")

	close(block)
	<-stopped

	assert.Equal(t, models.StatusCompleted, store.get("running").Status)
	assert.Equal(t, models.StatusCompleted, store.get("queued").Status)
}

func TestPool_ShutdownDeadline(t *testing.T) {
	store := newMemStore("running", "queued")
	p := NewPool(1, 4, time.Minute, store, &fakeRunner{block: make(chan struct{})}, &memResults{})
	p.Start()

	require.NoError(t, p.Submit(Job{ID: "running"}))
	require.Eventually(t, func() bool { return p.QueueSize() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Submit(Job{ID: "queued"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	running := store.get("running")
	assert.Equal(t, models.StatusFailed, running.Status)
	assert.Equal(t, context.Canceled.Error(), running.ErrorMessage)

	queued := store.get("queued")
	assert.Equal(t, models.StatusFailed, queued.Status)
	assert.Equal(t, "server shutting down", queued.ErrorMessage)
}

func TestPool_NotifiesFinalOutcome(t *testing.T) {
	store := newMemStore("hooked", "quiet", "broken")
	for _, id := range []string{"hooked", "broken"} {
		cv := store.rows[id]
		cv.WebhookURL = "https://example.com/hook"
		store.rows[id] = cv
	}
	n := &memNotifier{}

	ok := NewPool(1, 4, time.Second, store, &fakeRunner{}, &memResults{})
	ok.SetNotifier(n)
	ok.Start()
	require.NoError(t, ok.Submit(Job{ID: "hooked"}))
	require.NoError(t, ok.Submit(Job{ID: "quiet"}))
	ok.Stop()

	bad := NewPool(1, 4, time.Second, store, &fakeRunner{err: errors.New("soffice crashed")}, &memResults{})
	bad.SetNotifier(n)
	bad.Start()
	require.NoError(t, bad.Submit(Job{ID: "broken"}))
	bad.Stop()

	assert.Equal(t, map[string]models.ConversionStatus{
		"hooked": models.StatusCompleted,
		"broken": models.StatusFailed,
	}, n.statuses(), "jobs without a webhook URL are not reported")
}
