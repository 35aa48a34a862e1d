package ports

import "context"

// ConnectivityProbe answers "can we reach the network right now". It must
// not block beyond a short fixed timeout and reports false on any
// uncertainty.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}
