package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func pageFor(target string) Page {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantNumber int
		wantLimit  int
		wantOffset int
	}{
		{"/", 1, DefaultLimit, 0},
		{"/?page=3&limit=25", 3, 25, 50},
		{"/?page=0", 1, DefaultLimit, 0},
		{"/?limit=500", 1, MaxLimit, 0},
		{"/?limit=-1", 1, DefaultLimit, 0},
		{"/?limit=10&offset=35", 4, 10, 35},
		{"/?page=3&limit=10&offset=5", 1, 10, 5},
		{"/?page=2&offset=-5", 1, DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := pageFor(tt.query)
			if p.Number != tt.wantNumber || p.Limit != tt.wantLimit || p.Offset() != tt.wantOffset {
				t.Errorf("expected page=%d limit=%d offset=%d, got page=%d limit=%d offset=%d",
					tt.wantNumber, tt.wantLimit, tt.wantOffset, p.Number, p.Limit, p.Offset())
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	logs := []string{"a", "b", "c"}

	r := NewResponse(logs, 10, Page{Number: 1, Limit: 3})
	if r.Total != 10 || r.TotalPages != 4 {
		t.Errorf("expected total 10 over 4 pages, got %d over %d", r.Total, r.TotalPages)
	}
	if !r.HasMore {
		t.Error("expected has_more on the first of four pages")
	}

	r = NewResponse(logs, 9, Page{Number: 3, Limit: 3, Skip: 6})
	if r.HasMore {
		t.Error("expected no more pages after the last one")
	}
	if r.Page != 3 {
		t.Errorf("expected page 3, got %d", r.Page)
	}

	r = NewResponse([]string{}, 0, Page{Number: 1, Limit: 20})
	if r.TotalPages != 0 || r.HasMore {
		t.Errorf("expected empty listing to have no pages, got %+v", r)
	}
}
