package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/agrovolt/fieldsync/internal/ports"
)

const DefaultProbeTimeout = 5 * time.Second

// HTTPProbe checks reachability with a GET against a well-known URL. Any
// response at all counts as online; errors, timeouts, and uncertainty
// count as offline.
type HTTPProbe struct {
	url    string
	client *http.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProbe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProbe) Online(ctx context.Context) bool {
	if p.url == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

var _ ports.ConnectivityProbe = (*HTTPProbe)(nil)

// Static always reports the same answer. Useful for tests and for
// deployments where the transport itself is the only reachability signal.
type Static bool

func (s Static) Online(context.Context) bool { return bool(s) }

var _ ports.ConnectivityProbe = Static(false)
