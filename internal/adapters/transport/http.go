package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// ErrNotConfigured is returned by Send when no collector URL is set. The
// engine treats it like any transport failure, so an unconfigured device
// keeps collecting in queue-only mode.
var ErrNotConfigured = errors.New("transport: collector url not configured")

const DefaultSendTimeout = 30 * time.Second

// HTTPTransport posts snapshot batches as a JSON array to the collector
// endpoint. The collector acknowledges with HTTP 200 and a body of
// {"status":"ok"}; anything else is a failure for the whole batch.
type HTTPTransport struct {
	url    string
	client *http.Client
}

func NewHTTPTransport(url string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &HTTPTransport{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Name() string { return "http" }

// Configured reports whether a collector URL is set.
func (t *HTTPTransport) Configured() bool { return t.url != "" }

func (t *HTTPTransport) Send(ctx context.Context, batch []*domain.Snapshot) error {
	if len(batch) == 0 {
		return nil
	}
	if t.url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("transport: marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: collector returned %s", resp.Status)
	}

	var ack struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ack); err != nil {
		return fmt.Errorf("transport: decode ack: %w", err)
	}
	if ack.Status != "ok" {
		return fmt.Errorf("transport: collector rejected batch: %s", ack.Message)
	}
	return nil
}

var _ ports.Transport = (*HTTPTransport)(nil)
