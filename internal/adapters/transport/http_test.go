package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrovolt/fieldsync/internal/domain"
)

func testBatch(n int) []*domain.Snapshot {
	batch := make([]*domain.Snapshot, n)
	for i := range batch {
		batch[i] = &domain.Snapshot{
			Timestamp: "2026-08-24T12:00:00Z",
			Signals:   map[string]any{"EngineSpeed": 1500.0, "idx": i},
		}
	}
	return batch
}

func TestHTTPTransportSendAcknowledged(t *testing.T) {
	var received []domain.Snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, time.Second)
	if err := tr.Send(context.Background(), testBatch(3)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(received) != 3 {
		t.Fatalf("collector received %d records, want 3", len(received))
	}
	if received[0].Timestamp != "2026-08-24T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", received[0].Timestamp)
	}
}

func TestHTTPTransportSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "bad sheet"})
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, time.Second)
	if err := tr.Send(context.Background(), testBatch(1)); err == nil {
		t.Fatalf("expected error for rejected batch")
	}
}

func TestHTTPTransportSendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, time.Second)
	if err := tr.Send(context.Background(), testBatch(1)); err == nil {
		t.Fatalf("expected error for HTTP 500")
	}
}

func TestHTTPTransportUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewHTTPTransport(url, 200*time.Millisecond)
	if err := tr.Send(context.Background(), testBatch(1)); err == nil {
		t.Fatalf("expected error for unreachable collector")
	}
}

func TestHTTPTransportNotConfigured(t *testing.T) {
	tr := NewHTTPTransport("", time.Second)
	if tr.Configured() {
		t.Fatalf("expected Configured() false for empty url")
	}
	err := tr.Send(context.Background(), testBatch(1))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHTTPTransportEmptyBatch(t *testing.T) {
	tr := NewHTTPTransport("", time.Second)
	if err := tr.Send(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
}
