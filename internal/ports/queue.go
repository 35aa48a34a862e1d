package ports

import (
	"context"

	"github.com/agrovolt/fieldsync/internal/domain"
)

// RecordID uniquely identifies a queued record. IDs are assigned by the
// queue and strictly increase in enqueue order.
type RecordID int64

// QueueRecord is one persisted snapshot awaiting upload.
type QueueRecord struct {
	ID         RecordID
	EnqueuedAt float64 // unix seconds
	Snapshot   *domain.Snapshot
}

// QueueStats describes queue occupancy for the status surface.
type QueueStats struct {
	PendingRecords    int   `json:"pending_records"`
	StorageUsedBytes  int64 `json:"storage_used_bytes"`
	StorageLimitBytes int64 `json:"storage_limit_bytes"`
}

// DurableQueue is the persistent FIFO buffer between the producer and the
// collector. Implementations must be safe for one producer-side caller and
// one drain-loop caller operating concurrently; each operation takes its
// own transaction scope against the backing store.
type DurableQueue interface {
	// Enqueue persists a new record and runs the overflow eviction check.
	// Failure means local storage failure and is non-fatal to the caller.
	Enqueue(ctx context.Context, s *domain.Snapshot) error

	// PendingCount returns the number of queued records, 0 on internal error.
	PendingCount(ctx context.Context) int

	// PeekBatch returns up to max records oldest-first. Non-destructive.
	PeekBatch(ctx context.Context, max int) ([]QueueRecord, error)

	// Remove deletes exactly the named records. Idempotent: ids already
	// removed are skipped without error.
	Remove(ctx context.Context, ids []RecordID) error

	// Stats reports occupancy; zero values on internal error.
	Stats(ctx context.Context) QueueStats
}
