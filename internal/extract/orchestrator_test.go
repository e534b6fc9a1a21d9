package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// fakeService records call batching and fails URLs listed in failURLs.
type fakeService struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	batches     [][]string
	current     []string
	failURLs    map[string]error
	delay       time.Duration
	calls       int
}

func (f *fakeService) Extract(ctx context.Context, url string) (*catalog.Extraction, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.current = append(f.current, url)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	if f.inFlight == 0 {
		f.batches = append(f.batches, f.current)
		f.current = nil
	}
	f.mu.Unlock()

	if err, ok := f.failURLs[url]; ok {
		return nil, err
	}
	return &catalog.Extraction{
		Title:  "Product at " + url,
		Images: []string{url + "/image.jpg"},
	}, nil
}

func newRun(t *testing.T, n int, svc Service, opts Options) (*Orchestrator, *Store) {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("product-%d", i)
	}
	store := NewStore(pendingProducts(ids...))
	return NewOrchestrator(observability.Nop(), svc, store, opts), store
}

func TestRun_BatchesOfTwo(t *testing.T) {
	svc := &fakeService{delay: 10 * time.Millisecond}
	orch, store := newRun(t, 5, svc, Options{BatchSize: 2})

	report, err := orch.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Completed)
	assert.Equal(t, 0, report.Failed)

	// 5 products with batch size 2 form batches of 2, 2, 1, and concurrency
	// never exceeds the batch size.
	require.Len(t, svc.batches, 3)
	assert.Len(t, svc.batches[0], 2)
	assert.Len(t, svc.batches[1], 2)
	assert.Len(t, svc.batches[2], 1)
	assert.LessOrEqual(t, svc.maxInFlight, 2)

	for _, p := range store.Snapshot() {
		assert.Equal(t, catalog.StatusCompleted, p.Status)
	}
}

func TestRun_BatchJoinsBeforeNextDispatch(t *testing.T) {
	svc := &fakeService{delay: 5 * time.Millisecond}
	orch, _ := newRun(t, 6, svc, Options{BatchSize: 2})

	_, err := orch.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	// Every batch must be fully drained (recorded) before the next one
	// started, so batch membership matches consecutive pending pairs.
	require.Len(t, svc.batches, 3)
	seen := make(map[string]int)
	for i, batch := range svc.batches {
		for _, url := range batch {
			seen[url] = i
		}
	}
	assert.Len(t, seen, 6)
}

func TestRun_FailureIsolated(t *testing.T) {
	svc := &fakeService{failURLs: map[string]error{
		"https://amazon.com/dp/product-1": errors.New("quota exceeded"),
	}}
	orch, store := newRun(t, 4, svc, Options{BatchSize: 2})

	report, err := orch.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, report.Completed)
	assert.Equal(t, 1, report.Failed)

	p, _ := store.Get("product-1")
	assert.Equal(t, catalog.StatusFailed, p.Status)
	assert.Equal(t, "quota exceeded", p.Error)
	assert.Empty(t, p.Images)

	p, _ = store.Get("product-3")
	assert.Equal(t, catalog.StatusCompleted, p.Status)
}

func TestRun_SecondInvocationRejected(t *testing.T) {
	svc := &fakeService{delay: 50 * time.Millisecond}
	orch, _ := newRun(t, 2, svc, Options{BatchSize: 2})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := orch.Run(context.Background(), RunOptions{})
		assert.NoError(t, err)
	}()

	// Wait for the first run to take the guard.
	require.Eventually(t, orch.Running, time.Second, time.Millisecond)

	_, err := orch.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInFlight)

	<-done
	assert.False(t, orch.Running())
}

func TestRun_CancellationStopsBeforeNextBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{delay: 20 * time.Millisecond}
	orch, store := newRun(t, 6, svc, Options{
		BatchSize: 2,
		OnUpdate: func(p catalog.Product) {
			if p.Status.Terminal() {
				cancel()
			}
		},
	})

	report, err := orch.Run(ctx, RunOptions{})

	require.Error(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 2, svc.calls)

	counts := store.Counts()
	assert.Equal(t, 4, counts[catalog.StatusPending])
	assert.Equal(t, 2, counts[catalog.StatusCompleted])
}

func TestRun_SkipsNonPendingByDefault(t *testing.T) {
	svc := &fakeService{}
	orch, store := newRun(t, 3, svc, Options{BatchSize: 2})

	require.NoError(t, store.MarkProcessing("product-0"))
	require.NoError(t, store.Fail("product-0", "earlier failure"))

	report, err := orch.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)

	// The earlier failure is untouched.
	p, _ := store.Get("product-0")
	assert.Equal(t, catalog.StatusFailed, p.Status)
	assert.Equal(t, "earlier failure", p.Error)
}

func TestRun_IncludeFailedRequeues(t *testing.T) {
	svc := &fakeService{}
	orch, store := newRun(t, 2, svc, Options{BatchSize: 2})

	require.NoError(t, store.MarkProcessing("product-0"))
	require.NoError(t, store.Fail("product-0", "earlier failure"))

	report, err := orch.Run(context.Background(), RunOptions{IncludeFailed: true})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Completed)

	p, _ := store.Get("product-0")
	assert.Equal(t, catalog.StatusCompleted, p.Status)
}

func TestRun_ProcessingVisibleBeforeResolution(t *testing.T) {
	var statuses []catalog.Status
	var mu sync.Mutex

	svc := &fakeService{}
	orch, _ := newRun(t, 1, svc, Options{
		BatchSize: 1,
		OnUpdate: func(p catalog.Product) {
			mu.Lock()
			statuses = append(statuses, p.Status)
			mu.Unlock()
		},
	})

	_, err := orch.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, statuses, 2)
	assert.Equal(t, catalog.StatusProcessing, statuses[0])
	assert.Equal(t, catalog.StatusCompleted, statuses[1])
}
