package systems

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	hrRosterPath  = "/api/employees/third-party/all"
	hrDuePath     = "/api/hrm/health-check/due-employees"
	hrResultsPath = "/api/hrm/health-check/results"
)

// HRResult is the summary pushed back to the HR system for one employee.
type HRResult struct {
	EmployeeID       string `json:"employeeId"`
	CheckDate        string `json:"checkDate"`
	HealthStatus     string `json:"healthStatus"`
	DoctorConclusion string `json:"doctorConclusion"`
}

// HRClient talks to the HR management system.
type HRClient struct {
	client
}

func NewHRClient(ep Endpoint, timeout time.Duration, hc *http.Client) *HRClient {
	if ep.Name == "" {
		ep.Name = "hr"
	}
	return &HRClient{client: newClient(ep, timeout, hc)}
}

// FetchEmployees returns the full employee roster. Entries without an id are
// dropped.
func (c *HRClient) FetchEmployees(ctx context.Context) ([]Employee, error) {
	raw, err := c.fetchList(ctx, hrRosterPath)
	if err != nil {
		return nil, fmt.Errorf("fetch employee roster: %w", err)
	}
	employees, _ := NormalizeEmployees(raw)
	return employees, nil
}

// FetchDueEmployees returns the employees HR considers due for a check.
func (c *HRClient) FetchDueEmployees(ctx context.Context) ([]Employee, error) {
	raw, err := c.fetchList(ctx, hrDuePath)
	if err != nil {
		return nil, fmt.Errorf("fetch due employees: %w", err)
	}
	employees, _ := NormalizeEmployees(raw)
	return employees, nil
}

// PushResult sends one result summary to HR.
func (c *HRClient) PushResult(ctx context.Context, r HRResult) error {
	if err := c.do(ctx, http.MethodPost, hrResultsPath, nil, r, nil); err != nil {
		return fmt.Errorf("push result for employee %s: %w", r.EmployeeID, err)
	}
	return nil
}

func (c *HRClient) fetchList(ctx context.Context, path string) ([]map[string]any, error) {
	var body json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &body); err != nil {
		return nil, err
	}
	return decodeList(body)
}

// decodeList accepts either a bare JSON array or an object wrapping the array
// in a data field.
func decodeList(body json.RawMessage) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: unexpected list payload: %v", ErrUpstreamFailure, err)
	}
	return wrapped.Data, nil
}
