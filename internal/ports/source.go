package ports

import "github.com/agrovolt/fieldsync/internal/domain"

// Source streams snapshots from any acquisition collaborator (J1939 bus
// reader, simulator, ...) into the uplink.
type Source interface {
	Start(out chan<- *domain.Snapshot) error
	Stop() error
}
