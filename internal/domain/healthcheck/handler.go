package healthcheck

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/portal/gateway/internal/platform/auth"
	"github.com/portal/gateway/internal/platform/envelope"
	"github.com/portal/gateway/internal/platform/systems"
	"github.com/portal/gateway/pkg/pagination"
)

type Handler struct {
	campaigns *CampaignService
	results   *ResultService
	sync      *SyncService
	validate  *requestValidator
}

func NewHandler(campaigns *CampaignService, results *ResultService, sync *SyncService) *Handler {
	return &Handler{
		campaigns: campaigns,
		results:   results,
		sync:      sync,
		validate:  newRequestValidator(),
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/health-check")
	g.POST("/campaigns", h.CreateCampaign)
	g.GET("/campaigns", h.ListCampaigns)
	g.GET("/campaigns/:id", h.GetCampaign)
	g.GET("/due-employees", h.DueEmployees)
	g.POST("/sync-to-his", h.SyncToHIS)
	g.GET("/results", h.ListResults)
	g.POST("/his/submit-result", h.SubmitResult)
	g.GET("/report", h.Report)
	g.GET("/report/export", h.ExportReport)
	g.GET("/schedule", h.Schedule)
	g.POST("/sync/init", h.SyncInit)
	g.POST("/sync/results", h.SyncResults)
	g.GET("/sync-logs", h.ListSyncLogs)
}

func (h *Handler) CreateCampaign(c echo.Context) error {
	var req createCampaignRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(validationError("Invalid request body"))
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorResponse(err)
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return errorResponse(validationError("Invalid start_date format. Use YYYY-MM-DD"))
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return errorResponse(validationError("Invalid end_date format. Use YYYY-MM-DD"))
	}
	employees, _ := systems.NormalizeEmployees(req.Employees)

	camp, err := h.campaigns.CreateCampaign(c.Request().Context(), CreateCampaignInput{
		CampaignID:  req.CampaignID.String(),
		Name:        req.CampaignName,
		Type:        CampaignType(req.CampaignType),
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Employees:   employees,
	})
	if err != nil {
		apiErr := errorResponse(err)
		if errors.Is(err, ErrDuplicateCampaign) {
			apiErr = apiErr.With("campaign_id", req.CampaignID.String())
		}
		return apiErr
	}
	return envelope.OK(c, http.StatusCreated, "Campaign created successfully", map[string]any{
		"campaign_id":     camp.CampaignID,
		"total_employees": camp.TotalEmployees,
		"status":          camp.Status,
	})
}

func (h *Handler) ListCampaigns(c echo.Context) error {
	list, err := h.campaigns.ListCampaigns(c.Request().Context())
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{
		"total":     len(list),
		"campaigns": list,
	})
}

func (h *Handler) GetCampaign(c echo.Context) error {
	camp, err := h.campaigns.GetCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{"campaign": camp})
}

func (h *Handler) DueEmployees(c echo.Context) error {
	campaignID := strings.TrimSpace(c.QueryParam("campaign_id"))
	if campaignID == "" {
		return errorResponse(validationError("campaign_id is required"))
	}
	camp, err := h.campaigns.EnsureDueEmployeesPopulated(c.Request().Context(), campaignID)
	if err != nil {
		return errorResponse(err)
	}
	due := DueEmployees(camp)
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{
		"campaign_id":   camp.CampaignID,
		"total":         len(due),
		"due_employees": due,
	})
}

func (h *Handler) SyncToHIS(c echo.Context) error {
	var req syncToHISRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(validationError("Invalid request body: employees must be an array"))
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorResponse(err)
	}

	in := SyncToHISInput{
		CampaignID:  req.CampaignID.String(),
		InitiatedBy: initiatedBy(c),
	}
	if req.Employees != nil {
		in.Employees, in.Skipped = systems.NormalizeEmployees(req.Employees)
	}

	res, err := h.sync.SyncToHIS(c.Request().Context(), in)
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Employees synced to HIS", map[string]any{
		"his_campaign_id": res.HISCampaignID,
		"total_sent":      res.TotalSent,
		"appended":        res.Appended,
	})
}

func (h *Handler) ListResults(c echo.Context) error {
	list, err := h.results.ListResults(c.Request().Context(),
		strings.TrimSpace(c.QueryParam("campaign_id")),
		strings.TrimSpace(c.QueryParam("employee_id")))
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{
		"total":   len(list),
		"results": list,
	})
}

func (h *Handler) SubmitResult(c echo.Context) error {
	var req submitResultRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(validationError("Invalid request body"))
	}
	res, err := req.toResult()
	if err != nil {
		return errorResponse(err)
	}
	recordID, err := h.sync.SubmitResult(c.Request().Context(), res, initiatedBy(c))
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusCreated, "Health check result submitted", map[string]any{
		"his_record_id": recordID,
	})
}

func (h *Handler) Report(c echo.Context) error {
	rep, err := h.results.BuildReport(c.Request().Context(), strings.TrimSpace(c.QueryParam("campaign_id")))
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{"report": rep})
}

func (h *Handler) ExportReport(c echo.Context) error {
	ctx := c.Request().Context()
	campaignID := strings.TrimSpace(c.QueryParam("campaign_id"))
	rep, err := h.results.BuildReport(ctx, campaignID)
	if err != nil {
		return errorResponse(err)
	}
	results, err := h.results.ListResults(ctx, campaignID, "")
	if err != nil {
		return errorResponse(err)
	}
	buf, err := ExportReport(rep, results)
	if err != nil {
		return errorResponse(fmt.Errorf("%w: export report: %v", ErrStorage, err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, ExportFilename(campaignID)))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) Schedule(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return errorResponse(validationError("date is required (YYYY-MM-DD)"))
	}
	day, err := parseDate(date)
	if err != nil {
		return errorResponse(validationError("Invalid date format. Use YYYY-MM-DD"))
	}
	list, err := h.campaigns.ListSchedule(c.Request().Context(), day, strings.TrimSpace(c.QueryParam("campaign_id")))
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{
		"date":     day.Format("2006-01-02"),
		"total":    len(list),
		"schedule": list,
	})
}

func (h *Handler) SyncInit(c echo.Context) error {
	var req syncInitRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(validationError("Invalid request body"))
	}
	res, err := h.sync.SyncInit(c.Request().Context(), req.CampaignID.String(), req.CampaignName, initiatedBy(c), SyncHRMToHIS)
	if err != nil {
		return errorResponse(err)
	}
	msg := "Sync init completed"
	if res.SyncedCount == 0 {
		msg = "No employees due for health check"
	}
	return envelope.OK(c, http.StatusOK, msg, map[string]any{
		"campaign_id":       res.CampaignID,
		"synced_count":      res.SyncedCount,
		"hospital_response": res.HospitalResponse,
	})
}

func (h *Handler) SyncResults(c echo.Context) error {
	var req syncResultsRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(validationError("Invalid request body"))
	}
	res, err := h.sync.SyncResults(c.Request().Context(), req.CampaignID.String(), initiatedBy(c), SyncHISToHRM)
	if err != nil {
		return errorResponse(err)
	}
	msg := "Sync results completed"
	if res.TotalFound == 0 {
		msg = "No new completed results to sync"
	}
	return envelope.OK(c, http.StatusOK, msg, map[string]any{
		"total_found":    res.TotalFound,
		"synced_success": res.SyncedSuccess,
		"failed":         res.Failed,
	})
}

func (h *Handler) ListSyncLogs(c echo.Context) error {
	p := pagination.FromContext(c)
	f := LedgerFilter{
		CampaignID: strings.TrimSpace(c.QueryParam("campaign_id")),
		Status:     SyncStatus(strings.TrimSpace(c.QueryParam("status"))),
		SyncType:   SyncType(strings.TrimSpace(c.QueryParam("sync_type"))),
	}
	entries, total, err := h.sync.ListSyncLogs(c.Request().Context(), f, p.Limit, p.Offset())
	if err != nil {
		return errorResponse(err)
	}
	return envelope.OK(c, http.StatusOK, "Success", map[string]any{
		"sync_logs": pagination.NewResponse(entries, total, p),
	})
}

func initiatedBy(c echo.Context) string {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		return uid
	}
	return "system"
}

// errorResponse maps a domain error onto its HTTP status and result code.
func errorResponse(err error) *envelope.Error {
	msg := Message(err)
	switch {
	case errors.Is(err, ErrValidation):
		return envelope.NewError(http.StatusBadRequest, envelope.CodeValidation, msg)
	case errors.Is(err, ErrNotFound):
		return envelope.NewError(http.StatusNotFound, envelope.CodeNotFound, msg)
	case errors.Is(err, ErrDuplicateCampaign):
		return envelope.NewError(http.StatusConflict, envelope.CodeDuplicate, "Campaign already exists")
	case errors.Is(err, ErrConflict):
		return envelope.NewError(http.StatusConflict, envelope.CodeDuplicate, msg)
	case errors.Is(err, ErrUpstreamTimeout):
		return envelope.NewError(http.StatusServiceUnavailable, envelope.CodeUpstreamTimeout, msg)
	case errors.Is(err, ErrUpstreamFailure):
		return envelope.NewError(http.StatusInternalServerError, envelope.CodeUpstreamFailure, msg)
	default:
		return envelope.NewError(http.StatusInternalServerError, envelope.CodeServerError, msg)
	}
}
