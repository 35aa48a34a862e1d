package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// evictChunk bounds how many records a single enqueue may evict. Repeated
// enqueues re-trigger eviction, so a backlog larger than one chunk still
// shrinks over time without a single unbounded deletion storm.
const evictChunk = 100

const schema = `
CREATE TABLE IF NOT EXISTS pending_uploads (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	enqueued_at REAL NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_uploads_enqueued_at
	ON pending_uploads(enqueued_at);
`

// SQLiteQueue persists pending snapshots in a single SQLite table so they
// survive process restarts. Every operation runs in its own transaction
// scope; the WAL journal plus busy_timeout handle the producer/drainer
// concurrency without an application-level lock.
type SQLiteQueue struct {
	db         *sql.DB
	limitBytes int64
	obs        ports.Observability
}

// OpenSQLiteQueue opens (creating if needed) the queue database at path.
// limitBytes is the storage budget enforced by oldest-first eviction.
func OpenSQLiteQueue(path string, limitBytes int64, obs ports.Observability) (*SQLiteQueue, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("queue dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue ping: %w", err)
	}

	return &SQLiteQueue{db: db, limitBytes: limitBytes, obs: obs}, nil
}

func (q *SQLiteQueue) Close() error { return q.db.Close() }

// Enqueue inserts the snapshot and, in the same transaction, evicts the
// oldest records if the storage budget is exceeded. The producer is never
// blocked to enforce the limit.
func (q *SQLiteQueue) Enqueue(ctx context.Context, s *domain.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("enqueue begin: %w", err)
	}
	defer tx.Rollback()

	now := float64(time.Now().UnixNano()) / 1e9
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pending_uploads (enqueued_at, payload) VALUES (?, ?)`,
		now, string(payload)); err != nil {
		return fmt.Errorf("enqueue insert: %w", err)
	}

	evicted, err := q.evictTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("enqueue evict: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("enqueue commit: %w", err)
	}

	if evicted > 0 {
		q.obs.LogWarn("queue storage limit reached, evicted oldest records",
			ports.Field{Key: "evicted", Value: evicted},
			ports.Field{Key: "limit_bytes", Value: q.limitBytes})
		q.obs.IncCounter("fieldsync_records_evicted_total", float64(evicted))
	}
	return nil
}

// evictTx deletes the oldest records until the persisted payload bytes fit
// the budget again, at most evictChunk per call. A single payload larger
// than the whole budget can therefore leave the store over the limit; this
// lossy-degradation policy is deliberate.
func (q *SQLiteQueue) evictTx(ctx context.Context, tx *sql.Tx) (int, error) {
	if q.limitBytes <= 0 {
		return 0, nil
	}

	var used int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(payload)), 0) FROM pending_uploads`).Scan(&used); err != nil {
		return 0, err
	}
	if used <= q.limitBytes {
		return 0, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, LENGTH(payload) FROM pending_uploads
		 ORDER BY enqueued_at ASC, id ASC LIMIT ?`, evictChunk)
	if err != nil {
		return 0, err
	}

	var victims []ports.RecordID
	for rows.Next() {
		var (
			id   ports.RecordID
			size int64
		)
		if err := rows.Scan(&id, &size); err != nil {
			rows.Close()
			return 0, err
		}
		victims = append(victims, id)
		used -= size
		if used <= q.limitBytes {
			break
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(victims) == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_uploads WHERE id IN (`+placeholders(len(victims))+`)`,
		idArgs(victims)...); err != nil {
		return 0, err
	}
	return len(victims), nil
}

// PendingCount never fails observably; internal errors are logged and
// reported as an empty queue.
func (q *SQLiteQueue) PendingCount(ctx context.Context) int {
	var n int
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_uploads`).Scan(&n); err != nil {
		q.obs.LogError("queue pending count failed", err)
		return 0
	}
	return n
}

// PeekBatch returns up to max records oldest-first without removing them.
func (q *SQLiteQueue) PeekBatch(ctx context.Context, max int) ([]ports.QueueRecord, error) {
	if max <= 0 {
		return nil, nil
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, enqueued_at, payload FROM pending_uploads
		 ORDER BY enqueued_at ASC, id ASC LIMIT ?`, max)
	if err != nil {
		return nil, fmt.Errorf("peek batch: %w", err)
	}
	defer rows.Close()

	var batch []ports.QueueRecord
	for rows.Next() {
		var (
			rec     ports.QueueRecord
			payload string
		)
		if err := rows.Scan(&rec.ID, &rec.EnqueuedAt, &payload); err != nil {
			return nil, fmt.Errorf("peek scan: %w", err)
		}
		var snap domain.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("peek record %d: %w", rec.ID, err)
		}
		rec.Snapshot = &snap
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("peek rows: %w", err)
	}
	return batch, nil
}

// Remove deletes exactly the named records. Removing an id that is already
// gone is a no-op, so a retried removal after a crash stays safe.
func (q *SQLiteQueue) Remove(ctx context.Context, ids []ports.RecordID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM pending_uploads WHERE id IN (`+placeholders(len(ids))+`)`,
		idArgs(ids)...); err != nil {
		return fmt.Errorf("remove records: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Stats(ctx context.Context) ports.QueueStats {
	stats := ports.QueueStats{StorageLimitBytes: q.limitBytes}
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM pending_uploads`).
		Scan(&stats.PendingRecords, &stats.StorageUsedBytes); err != nil {
		q.obs.LogError("queue stats failed", err)
		return ports.QueueStats{StorageLimitBytes: q.limitBytes}
	}
	return stats
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []ports.RecordID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

var _ ports.DurableQueue = (*SQLiteQueue)(nil)
