package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agrovolt/fieldsync/internal/adapters/observability"
	"github.com/agrovolt/fieldsync/internal/adapters/store"
	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

type stubProbe struct {
	mu     sync.Mutex
	online bool
}

func (p *stubProbe) Online(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *stubProbe) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

type stubTransport struct {
	mu       sync.Mutex
	batches  [][]*domain.Snapshot
	failNext int
	failAll  bool
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Send(_ context.Context, batch []*domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("collector unreachable")
	}
	if s.failNext > 0 {
		s.failNext--
		return errors.New("collector unreachable")
	}
	cp := make([]*domain.Snapshot, len(batch))
	copy(cp, batch)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *stubTransport) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type failingQueue struct {
	ports.DurableQueue
}

func (failingQueue) Enqueue(context.Context, *domain.Snapshot) error {
	return errors.New("disk full")
}

func newTestEngine(q ports.DurableQueue, tr ports.Transport, pr ports.ConnectivityProbe, opts ...Option) *Engine {
	opts = append([]Option{WithBatchPause(0)}, opts...)
	return New(q, tr, pr, observability.NewNopObs(), opts...)
}

// sizedSnapshot marshals to exactly size bytes so eviction math in the
// drain scenario is deterministic.
func sizedSnapshot(t *testing.T, seq int, size int) *domain.Snapshot {
	t.Helper()
	s := &domain.Snapshot{
		Timestamp: "2026-08-24T12:00:00Z",
		Signals:   map[string]any{"seq": seq, "pad": ""},
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) > size {
		t.Fatalf("base snapshot already %d bytes, want <= %d", len(raw), size)
	}
	s.Signals["pad"] = strings.Repeat("x", size-len(raw))
	return s
}

func TestIngestOfflineQueues(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	tr := &stubTransport{}
	e := newTestEngine(q, tr, &stubProbe{online: false})

	if got := e.Ingest(ctx, sizedSnapshot(t, 1, 100)); got != OutcomeQueued {
		t.Fatalf("expected queued, got %s", got)
	}
	if got := q.PendingCount(ctx); got != 1 {
		t.Fatalf("expected 1 pending, got %d", got)
	}
	if tr.sent() != 0 {
		t.Fatalf("transport must not be called while offline")
	}
}

func TestIngestOnlineDelivers(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	tr := &stubTransport{}
	e := newTestEngine(q, tr, &stubProbe{online: true})

	if got := e.Ingest(ctx, sizedSnapshot(t, 1, 100)); got != OutcomeDelivered {
		t.Fatalf("expected delivered, got %s", got)
	}
	if got := q.PendingCount(ctx); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
	if tr.sent() != 1 {
		t.Fatalf("expected 1 record sent, got %d", tr.sent())
	}
}

func TestIngestTransportFailureQueues(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	tr := &stubTransport{failNext: 1}
	e := newTestEngine(q, tr, &stubProbe{online: true})

	if got := e.Ingest(ctx, sizedSnapshot(t, 1, 100)); got != OutcomeQueued {
		t.Fatalf("expected queued on transport failure, got %s", got)
	}
	if got := q.PendingCount(ctx); got != 1 {
		t.Fatalf("expected 1 pending, got %d", got)
	}
}

func TestIngestStorageFailureDrops(t *testing.T) {
	ctx := context.Background()
	q := failingQueue{store.NewMemQueue(0)}
	e := newTestEngine(q, &stubTransport{}, &stubProbe{online: false})

	if got := e.Ingest(ctx, sizedSnapshot(t, 1, 100)); got != OutcomeDropped {
		t.Fatalf("expected dropped when storage fails, got %s", got)
	}
}

func TestDrainOnceOffline(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	if err := q.Enqueue(ctx, sizedSnapshot(t, 1, 100)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	e := newTestEngine(q, &stubTransport{}, &stubProbe{online: false})

	if got := e.DrainOnce(ctx); got != 0 {
		t.Fatalf("expected 0 uploaded while offline, got %d", got)
	}
	if got := q.PendingCount(ctx); got != 1 {
		t.Fatalf("record must stay queued while offline")
	}
}

// 1000-byte budget, 100-byte records, 15 ingests while
// offline leave 10 after eviction (oldest 5 gone); a drain with a working
// transport uploads exactly those 10 in enqueue order.
func TestOfflineBacklogEvictsThenDrains(t *testing.T) {
	ctx := context.Background()
	q, err := store.OpenSQLiteQueue(filepath.Join(t.TempDir(), "queue.db"), 1000, observability.NewNopObs())
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	defer q.Close()

	probe := &stubProbe{online: false}
	tr := &stubTransport{}
	e := newTestEngine(q, tr, probe)

	for i := 1; i <= 15; i++ {
		if got := e.Ingest(ctx, sizedSnapshot(t, i, 100)); got != OutcomeQueued {
			t.Fatalf("ingest %d: expected queued, got %s", i, got)
		}
	}
	if got := q.PendingCount(ctx); got != 10 {
		t.Fatalf("expected 10 pending after eviction, got %d", got)
	}

	probe.set(true)
	if got := e.DrainOnce(ctx); got != 10 {
		t.Fatalf("expected drain to upload 10, got %d", got)
	}
	if got := q.PendingCount(ctx); got != 0 {
		t.Fatalf("expected empty queue after drain, got %d", got)
	}

	if len(tr.batches) != 1 || len(tr.batches[0]) != 10 {
		t.Fatalf("expected one batch of 10, got %d batches", len(tr.batches))
	}
	for i, snap := range tr.batches[0] {
		want := i + 6 // the oldest 5 were evicted
		if got := int(snap.Signals["seq"].(float64)); got != want {
			t.Fatalf("batch position %d: expected seq %d, got %d", i, want, got)
		}
	}
}

func TestDrainOnceKeepsBatchOnFailure(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(ctx, sizedSnapshot(t, i, 100)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	tr := &stubTransport{failAll: true}
	e := newTestEngine(q, tr, &stubProbe{online: true})

	if got := e.DrainOnce(ctx); got != 0 {
		t.Fatalf("expected 0 uploaded on transport failure, got %d", got)
	}
	if got := q.PendingCount(ctx); got != 5 {
		t.Fatalf("no record may be removed after a failed send, pending=%d", got)
	}

	// Same batch succeeds wholesale on the next invocation.
	tr.mu.Lock()
	tr.failAll = false
	tr.mu.Unlock()
	if got := e.DrainOnce(ctx); got != 5 {
		t.Fatalf("expected 5 uploaded after recovery, got %d", got)
	}
	if got := q.PendingCount(ctx); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
}

func TestDrainOnceBatches(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(ctx, sizedSnapshot(t, i, 100)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	tr := &stubTransport{}
	e := newTestEngine(q, tr, &stubProbe{online: true}, WithBatchSize(2))

	if got := e.DrainOnce(ctx); got != 5 {
		t.Fatalf("expected 5 uploaded, got %d", got)
	}
	if len(tr.batches) != 3 {
		t.Fatalf("expected 3 batches for 5 records with batch size 2, got %d", len(tr.batches))
	}
	if len(tr.batches[0]) != 2 || len(tr.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %d, %d, %d",
			len(tr.batches[0]), len(tr.batches[1]), len(tr.batches[2]))
	}
}

type flakyTransport struct {
	stubTransport
	okCalls int
}

func (f *flakyTransport) Send(ctx context.Context, batch []*domain.Snapshot) error {
	f.mu.Lock()
	if f.okCalls <= 0 {
		f.mu.Unlock()
		return errors.New("collector unreachable")
	}
	f.okCalls--
	f.mu.Unlock()
	return f.stubTransport.Send(ctx, batch)
}

func TestDrainOncePartialFailureRemovesOnlySentBatches(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(ctx, sizedSnapshot(t, i, 100)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	// First batch of 2 succeeds, second fails: exactly 2 removed.
	tr := &flakyTransport{okCalls: 1}
	e := newTestEngine(q, tr, &stubProbe{online: true}, WithBatchSize(2))

	if got := e.DrainOnce(ctx); got != 2 {
		t.Fatalf("expected 2 uploaded before the failure, got %d", got)
	}
	if got := q.PendingCount(ctx); got != 3 {
		t.Fatalf("expected 3 pending after partial drain, got %d", got)
	}
	if len(tr.batches) != 1 || len(tr.batches[0]) != 2 {
		t.Fatalf("expected exactly one accepted batch of 2")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	q := store.NewMemQueue(0)
	e := newTestEngine(q, &stubTransport{}, &stubProbe{online: false})

	// Stop before any start is a safe no-op.
	e.StopBackgroundSync()

	e.StartBackgroundSync(10 * time.Millisecond)
	e.StartBackgroundSync(10 * time.Millisecond)
	if !e.Running() {
		t.Fatalf("expected running after start")
	}

	e.StopBackgroundSync()
	if e.Running() {
		t.Fatalf("expected stopped after stop")
	}
	e.StopBackgroundSync()
}

func TestBackgroundSyncDrainsWhenOnline(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(0)
	for i := 1; i <= 4; i++ {
		if err := q.Enqueue(ctx, sizedSnapshot(t, i, 100)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	probe := &stubProbe{online: false}
	tr := &stubTransport{}
	e := newTestEngine(q, tr, probe)

	e.StartBackgroundSync(5 * time.Millisecond)
	defer e.StopBackgroundSync()

	// Offline: nothing moves.
	time.Sleep(30 * time.Millisecond)
	if got := q.PendingCount(ctx); got != 4 {
		t.Fatalf("expected 4 pending while offline, got %d", got)
	}

	probe.set(true)
	deadline := time.Now().Add(2 * time.Second)
	for q.PendingCount(ctx) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("background sync did not drain the queue, pending=%d", q.PendingCount(ctx))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if tr.sent() != 4 {
		t.Fatalf("expected 4 records uploaded, got %d", tr.sent())
	}
}

func TestStatusReportsQueueAndConnectivity(t *testing.T) {
	ctx := context.Background()
	q := store.NewMemQueue(4096)
	probe := &stubProbe{online: true}
	e := newTestEngine(q, &stubTransport{}, probe)

	if err := q.Enqueue(ctx, sizedSnapshot(t, 1, 100)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	status := e.Status(ctx)
	if !status.Online {
		t.Fatalf("expected online status")
	}
	if status.PendingRecords != 1 || status.StorageUsedBytes != 100 || status.StorageLimitBytes != 4096 {
		t.Fatalf("unexpected status: %+v", status)
	}

	probe.set(false)
	if e.Status(ctx).Online {
		t.Fatalf("expected offline status")
	}
}
