package systems

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Status is the reachability of one collaborator.
type Status struct {
	Name       string `json:"name"`
	BaseURL    string `json:"base_url"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

// Prober checks the health endpoints of the configured collaborators.
type Prober struct {
	endpoints []Endpoint
	http      *http.Client
}

func NewProber(timeout time.Duration, endpoints ...Endpoint) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{endpoints: endpoints, http: &http.Client{Timeout: timeout}}
}

// Probe checks every endpoint concurrently and returns results in
// configuration order.
func (p *Prober) Probe(ctx context.Context) []Status {
	out := make([]Status, len(p.endpoints))
	var wg sync.WaitGroup
	for i, ep := range p.endpoints {
		wg.Add(1)
		go func(i int, ep Endpoint) {
			defer wg.Done()
			out[i] = p.probe(ctx, ep)
		}(i, ep)
	}
	wg.Wait()
	return out
}

func (p *Prober) probe(ctx context.Context, ep Endpoint) Status {
	st := Status{Name: ep.Name, BaseURL: ep.BaseURL}
	if ep.BaseURL == "" {
		st.Error = "not configured"
		return st
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+ep.HealthPath, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	resp, err := p.http.Do(req)
	st.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	resp.Body.Close()

	st.StatusCode = resp.StatusCode
	st.Reachable = resp.StatusCode < 500
	return st
}
