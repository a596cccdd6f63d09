package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/portal/gateway/internal/config"
)

func testConfig(upstream string) *config.Config {
	return &config.Config{
		Env:             "development",
		StoreBackend:    config.BackendMemory,
		HRAPIURL:        upstream,
		HospitalAPIURL:  upstream,
		HotelAPIURL:     upstream,
		UpstreamTimeout: 2 * time.Second,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		CORSOrigins:     []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T) (http.Handler, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/employees/third-party/all":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1,"firstName":"An","lastName":"Ng","department":{"name":"Ops"}}]`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(upstream.Close)

	a, err := newApp(context.Background(), testConfig(upstream.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return newServer(testConfig(upstream.URL), zerolog.Nop(), a), upstream
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, out
}

func TestServer_CampaignLifecycle(t *testing.T) {
	h, _ := newTestServer(t)

	rec, body := do(t, h, http.MethodPost, "/api/gateway/health-check/campaigns",
		`{"campaign_id":"Q1","campaign_name":"Q1 checks","campaign_type":"Quarterly","start_date":"2024-01-15","end_date":"2024-03-31"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["code"] != float64(0) || body["success"] != true {
		t.Errorf("unexpected envelope: %v", body)
	}

	rec, body = do(t, h, http.MethodGet, "/api/gateway/health-check/due-employees?campaign_id=Q1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["total"] != float64(1) {
		t.Errorf("expected roster to populate one due employee, got %v", body["total"])
	}

	rec, body = do(t, h, http.MethodGet, "/api/gateway/health-check/campaigns", "")
	if rec.Code != http.StatusOK || body["total"] != float64(1) {
		t.Errorf("expected one campaign listed, got %d %v", rec.Code, body)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	h, _ := newTestServer(t)

	rec, body := do(t, h, http.MethodGet, "/api/gateway/nope", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if body["code"] != float64(2) || body["message"] != "Endpoint not found" {
		t.Errorf("unexpected body: %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header on error responses")
	}
}

func TestServer_Probes(t *testing.T) {
	h, _ := newTestServer(t)

	rec, body := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("expected healthy memory backend, got %d %v", rec.Code, body)
	}

	rec, body = do(t, h, http.MethodGet, "/api/gateway/systems", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["all_reachable"] != true {
		t.Errorf("expected all collaborators reachable, got %v", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK || !strings.Contains(mrec.Body.String(), "http_requests_total") {
		t.Errorf("expected prometheus exposition, got %d", mrec.Code)
	}
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.StoreBackend = "sqlite"

	if _, err := newApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
