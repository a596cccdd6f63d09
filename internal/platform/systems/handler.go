package systems

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/portal/gateway/internal/platform/envelope"
)

// StatusHandler reports collaborator reachability. It always answers 200;
// unreachable systems are flagged per entry.
func StatusHandler(p *Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		statuses := p.Probe(c.Request().Context())
		all := true
		for _, s := range statuses {
			all = all && s.Reachable
		}
		return envelope.OK(c, http.StatusOK, "Success", map[string]any{
			"systems":       statuses,
			"all_reachable": all,
		})
	}
}
