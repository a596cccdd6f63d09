package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is a 1-based window over a listing. Skip overrides the page-derived
// offset when a caller asked for an explicit offset.
type Page struct {
	Number int
	Limit  int
	Skip   int
}

// FromContext reads page and limit from the query string. An explicit
// offset parameter takes precedence over page.
func FromContext(c echo.Context) Page {
	p := Page{Number: atoi(c.QueryParam("page")), Limit: atoi(c.QueryParam("limit"))}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	if p.Number < 1 {
		p.Number = 1
	}
	p.Skip = (p.Number - 1) * p.Limit

	if raw := c.QueryParam("offset"); raw != "" {
		if off := atoi(raw); off > 0 {
			p.Skip = off
			p.Number = off/p.Limit + 1
		} else {
			p.Skip, p.Number = 0, 1
		}
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Offset is the number of rows to skip for this page.
func (p Page) Offset() int { return p.Skip }

// Response wraps one page of a listing.
type Response struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
	HasMore    bool        `json:"has_more"`
}

func NewResponse(items interface{}, total int, p Page) *Response {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &Response{
		Items:      items,
		Total:      total,
		Page:       p.Number,
		Limit:      p.Limit,
		TotalPages: pages,
		HasMore:    p.Skip+p.Limit < total,
	}
}
