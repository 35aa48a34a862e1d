package ports

import (
	"context"

	"github.com/agrovolt/fieldsync/internal/domain"
)

// Transport sends an ordered batch of snapshots to the collector as an
// atomic unit: either the collector durably accepts the whole batch or the
// call reports failure. Transport errors are always non-fatal upstream.
type Transport interface {
	Send(ctx context.Context, batch []*domain.Snapshot) error
	Name() string
}
