package transport

import (
	"context"
	"fmt"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// BatchFunc is invoked with ordered batches handed to a callback transport.
type BatchFunc func(ctx context.Context, batch []*domain.Snapshot) error

// NewCallbackTransport adapts a plain function into a ports.Transport so
// embedders can route batches anywhere without defining a struct.
func NewCallbackTransport(name string, fn BatchFunc) ports.Transport {
	if name == "" {
		name = "callback"
	}
	return &callbackTransport{name: name, fn: fn}
}

type callbackTransport struct {
	name string
	fn   BatchFunc
}

func (t *callbackTransport) Name() string { return t.name }

func (t *callbackTransport) Send(ctx context.Context, batch []*domain.Snapshot) error {
	if t.fn == nil {
		return fmt.Errorf("callback transport %q: nil handler", t.name)
	}
	if len(batch) == 0 {
		return nil
	}
	return t.fn(ctx, batch)
}
