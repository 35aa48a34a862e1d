package domain

import "time"

// Snapshot is the canonical unit of field telemetry in FieldSync: one
// timestamped set of named signal values handed over by the acquisition
// collaborator (J1939 reader, simulator, ...).
type Snapshot struct {
	// Timestamp is an ISO-8601 string assigned by the producer.
	Timestamp string `json:"timestamp"`
	// Signals maps signal name to a numeric or string value. Decoding raw
	// bus frames into this canonical form happens entirely upstream.
	Signals map[string]any `json:"signals"`
}

// NewSnapshot stamps the given signals with the current wall clock.
func NewSnapshot(signals map[string]any) *Snapshot {
	return &Snapshot{
		Timestamp: time.Now().Format(time.RFC3339),
		Signals:   signals,
	}
}
