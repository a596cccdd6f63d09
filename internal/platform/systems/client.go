// Package systems holds the HTTP clients for the collaborating HR, hospital
// and hotel systems.
package systems

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrUpstreamFailure = errors.New("upstream system failure")
	ErrUpstreamTimeout = errors.New("upstream system timeout")
)

// DefaultTimeout bounds every outbound call unless configured otherwise.
const DefaultTimeout = 8 * time.Second

// Endpoint describes how to reach one collaborating system.
type Endpoint struct {
	Name    string
	BaseURL string
	// Token is sent as the token query parameter.
	Token string
	// BearerToken is sent in the Authorization header.
	BearerToken string
	HealthPath  string
}

// client performs JSON calls against one collaborator.
type client struct {
	endpoint Endpoint
	http     *http.Client
}

func newClient(ep Endpoint, timeout time.Duration, hc *http.Client) client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return client{endpoint: ep, http: hc}
}

// url joins path onto the base URL and appends the access token as the
// token query parameter.
func (c client) url(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if c.endpoint.Token != "" {
		query.Set("token", c.endpoint.Token)
	}
	u := c.endpoint.BaseURL + path
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. The call is detached from the caller's cancellation so a client
// disconnect never aborts a half-sent sync, but it is still bounded by the
// client timeout.
func (c client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx = context.WithoutCancel(ctx)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.endpoint.Name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrUpstreamFailure, c.endpoint.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.endpoint.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.endpoint.BearerToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(c.endpoint.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUpstreamFailure, c.endpoint.Name, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s: %v", ErrUpstreamTimeout, c.endpoint.Name, err)
		}
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstreamFailure, c.endpoint.Name, err)
	}
	return nil
}

func classify(name string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamTimeout, name, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamFailure, name, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
