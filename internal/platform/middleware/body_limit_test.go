package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1M", 1 << 20},
		{"10MB", 10 << 20},
		{"512K", 512 << 10},
		{"1G", 1 << 30},
		{"1024", 1024},
		{"", 1 << 20},
		{"invalid", 1 << 20},
		{"-5", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.input); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func postBody(path string, body []byte) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func readAll(c echo.Context) error {
	_, err := io.ReadAll(c.Request().Body)
	return err
}

func expect413(t *testing.T, err error) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", httpErr.Code)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	c, _ := postBody("/api/gateway/health-check/campaigns", []byte(`{"campaign_name":"Q1"}`))

	if err := BodyLimit("1K", "8K")(readAll)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyLimit_RejectsOversizedBody_ContentLength(t *testing.T) {
	c, _ := postBody("/api/gateway/health-check/sync-to-his", bytes.Repeat([]byte("a"), 2048))

	called := false
	err := BodyLimit("1K", "8K")(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	expect413(t, err)
	if called {
		t.Error("expected handler not to run")
	}
}

func TestBodyLimit_UsesLargerLimitForResultSubmission(t *testing.T) {
	c, _ := postBody("/api/gateway/health-check/his/submit-result", bytes.Repeat([]byte("a"), 4096))

	if err := BodyLimit("1K", "8K")(readAll)(c); err != nil {
		t.Fatalf("expected result submission within its limit, got %v", err)
	}

	c, _ = postBody("/api/gateway/health-check/his/submit-result", bytes.Repeat([]byte("a"), 9000))
	expect413(t, BodyLimit("1K", "8K")(readAll)(c))
}

func TestBodyLimit_SkipsNilBody(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/gateway/health-check/campaigns", nil), httptest.NewRecorder())

	called := false
	err := BodyLimit("1", "1")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called for GET with no body")
	}
}

func TestBodyLimit_EnforcesLimitDuringRead(t *testing.T) {
	c, _ := postBody("/api/gateway/health-check/campaigns", nil)
	req := c.Request()
	req.Body = io.NopCloser(strings.NewReader(strings.Repeat("a", 1024)))
	req.ContentLength = -1

	expect413(t, BodyLimit("512", "10M")(readAll)(c))
}
