package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// MemQueue is an in-memory DurableQueue with the same FIFO and eviction
// semantics as the SQLite store, minus the durability. Useful for
// embedding scenarios and tests that do not want a database file.
type MemQueue struct {
	mu         sync.Mutex
	recs       []memRecord
	nextID     ports.RecordID
	usedBytes  int64
	limitBytes int64
}

type memRecord struct {
	id         ports.RecordID
	enqueuedAt float64
	payload    []byte
}

func NewMemQueue(limitBytes int64) *MemQueue {
	return &MemQueue{limitBytes: limitBytes}
}

func (q *MemQueue) Enqueue(_ context.Context, s *domain.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	q.recs = append(q.recs, memRecord{
		id:         q.nextID,
		enqueuedAt: float64(time.Now().UnixNano()) / 1e9,
		payload:    payload,
	})
	q.usedBytes += int64(len(payload))

	evicted := 0
	for q.limitBytes > 0 && q.usedBytes > q.limitBytes && evicted < evictChunk && len(q.recs) > 0 {
		q.usedBytes -= int64(len(q.recs[0].payload))
		q.recs = q.recs[1:]
		evicted++
	}
	return nil
}

func (q *MemQueue) PendingCount(context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.recs)
}

func (q *MemQueue) PeekBatch(_ context.Context, max int) ([]ports.QueueRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.recs) == 0 {
		return nil, nil
	}
	if max > len(q.recs) {
		max = len(q.recs)
	}

	batch := make([]ports.QueueRecord, 0, max)
	for _, rec := range q.recs[:max] {
		var snap domain.Snapshot
		if err := json.Unmarshal(rec.payload, &snap); err != nil {
			return nil, fmt.Errorf("peek record %d: %w", rec.id, err)
		}
		batch = append(batch, ports.QueueRecord{
			ID:         rec.id,
			EnqueuedAt: rec.enqueuedAt,
			Snapshot:   &snap,
		})
	}
	return batch, nil
}

func (q *MemQueue) Remove(_ context.Context, ids []ports.RecordID) error {
	if len(ids) == 0 {
		return nil
	}
	victims := make(map[ports.RecordID]bool, len(ids))
	for _, id := range ids {
		victims[id] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.recs[:0]
	for _, rec := range q.recs {
		if victims[rec.id] {
			q.usedBytes -= int64(len(rec.payload))
			continue
		}
		kept = append(kept, rec)
	}
	q.recs = kept
	return nil
}

func (q *MemQueue) Stats(context.Context) ports.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ports.QueueStats{
		PendingRecords:    len(q.recs),
		StorageUsedBytes:  q.usedBytes,
		StorageLimitBytes: q.limitBytes,
	}
}

var _ ports.DurableQueue = (*MemQueue)(nil)
