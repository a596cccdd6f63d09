package systems

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestProber(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/actuator/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	p := NewProber(time.Second,
		Endpoint{Name: "hr", BaseURL: up.URL, HealthPath: "/actuator/health"},
		Endpoint{Name: "hospital", BaseURL: broken.URL, HealthPath: "/api/health"},
		Endpoint{Name: "hotel"},
	)
	got := p.Probe(context.Background())

	if len(got) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(got))
	}
	if got[0].Name != "hr" || !got[0].Reachable || got[0].StatusCode != http.StatusOK {
		t.Errorf("expected hr reachable, got %+v", got[0])
	}
	if got[1].Reachable || got[1].StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected hospital unreachable on 503, got %+v", got[1])
	}
	if got[2].Reachable || got[2].Error != "not configured" {
		t.Errorf("expected hotel not configured, got %+v", got[2])
	}
}

func TestStatusHandler(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	p := NewProber(time.Second, Endpoint{Name: "hr", BaseURL: downURL})
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/gateway/systems", nil), rec)

	if err := StatusHandler(p)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["all_reachable"] != false || body["success"] != true {
		t.Errorf("unexpected body %v", body)
	}
	systems := body["systems"].([]any)
	if s := systems[0].(map[string]any); s["error"] == "" || s["reachable"] != false {
		t.Errorf("expected unreachable hr with error, got %v", s)
	}
}
