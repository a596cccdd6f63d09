package envelope

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func render(t *testing.T, method string, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, "/api/gateway/x", nil), rec)

	ErrorHandler(zerolog.Nop())(err, c)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rec, body
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := OK(c, http.StatusCreated, "Created", map[string]any{"id": "1", "code": 99}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if body["code"] != float64(CodeOK) || body["success"] != true || body["message"] != "Created" || body["id"] != "1" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestErrorHandler_APIError(t *testing.T) {
	rec, body := render(t, http.MethodPost, NewError(http.StatusConflict, CodeDuplicate, "Campaign already exists").With("campaign_id", "Q1"))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if body["code"] != float64(CodeDuplicate) || body["success"] != false || body["campaign_id"] != "Q1" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestErrorHandler_HTTPErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   int
	}{
		{echo.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{echo.ErrMethodNotAllowed, http.StatusNotFound, CodeNotFound},
		{echo.NewHTTPError(http.StatusBadRequest, "bad"), http.StatusBadRequest, CodeValidation},
		{echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, CodeValidation},
		{echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized, CodeUnauthorized},
		{echo.NewHTTPError(http.StatusForbidden, "forbidden"), http.StatusForbidden, CodeUnauthorized},
		{echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, CodeServerError},
		{echo.NewHTTPError(http.StatusBadGateway, "gw"), http.StatusBadGateway, CodeServerError},
		{errors.New("boom"), http.StatusInternalServerError, CodeServerError},
	}
	for _, tt := range tests {
		rec, body := render(t, http.MethodGet, tt.err)
		if rec.Code != tt.wantStatus {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.wantStatus, rec.Code)
		}
		if body["code"] != float64(tt.wantCode) {
			t.Errorf("%v: expected code %d, got %v", tt.err, tt.wantCode, body["code"])
		}
	}
}

func TestErrorHandler_NotFoundBody(t *testing.T) {
	_, body := render(t, http.MethodGet, echo.ErrNotFound)

	if body["message"] != "Endpoint not found" || body["path"] != "/api/gateway/x" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestErrorHandler_InternalMessageHidden(t *testing.T) {
	_, body := render(t, http.MethodGet, errors.New("pq: connection refused"))

	if body["message"] != "internal server error" {
		t.Errorf("expected generic message, got %v", body["message"])
	}
}

func TestErrorHandler_Head(t *testing.T) {
	rec, _ := render(t, http.MethodHead, echo.ErrNotFound)

	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("expected bodiless 404, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}
