package transport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// PostgresTransport delivers snapshot batches straight into a Postgres
// table, for deployments where the collector is an on-prem database rather
// than an HTTP endpoint. A single multi-row INSERT keeps the batch atomic.
type PostgresTransport struct {
	db        *sql.DB
	tableName string
}

func NewPostgresTransport(db *sql.DB, table string) *PostgresTransport {
	return &PostgresTransport{db: db, tableName: table}
}

func (t *PostgresTransport) Name() string { return "postgres" }

func (t *PostgresTransport) Send(ctx context.Context, batch []*domain.Snapshot) error {
	if len(batch) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (recorded_at, signals) VALUES ")

	args := make([]any, 0, len(batch)*2)
	for i, s := range batch {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d)", len(args)+1, len(args)+2))

		signals, err := json.Marshal(s.Signals)
		if err != nil {
			return fmt.Errorf("transport: marshal signals: %w", err)
		}
		args = append(args, s.Timestamp, signals)
	}

	// Duplicates are expected under at-least-once delivery; a unique
	// constraint on the collector side makes re-sends harmless.
	b.WriteString(" ON CONFLICT DO NOTHING")

	if _, err := t.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("transport: insert batch: %w", err)
	}
	return nil
}

var _ ports.Transport = (*PostgresTransport)(nil)
