package systems

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const hospitalSchedulePath = "/api/his/health-check/schedule"

// HospitalSchedule is the payload that asks the hospital to plan checks for a
// list of employees.
type HospitalSchedule struct {
	HRMCampaignID string     `json:"hrm_campaign_id"`
	CampaignName  string     `json:"campaign_name"`
	Employees     []Employee `json:"employees"`
}

// HospitalAppointment is one entry of the hospital's own schedule.
type HospitalAppointment struct {
	EmployeeID string
	Status     string
	Result     *HospitalResult
}

type HospitalResult struct {
	CheckDate        string
	HealthStatus     string
	DoctorConclusion string
}

// Completed reports whether the appointment finished with a result.
func (a HospitalAppointment) Completed() bool {
	return a.Status == "completed" && a.Result != nil
}

// HospitalClient talks to the hospital information system.
type HospitalClient struct {
	client
}

func NewHospitalClient(ep Endpoint, timeout time.Duration, hc *http.Client) *HospitalClient {
	if ep.Name == "" {
		ep.Name = "hospital"
	}
	return &HospitalClient{client: newClient(ep, timeout, hc)}
}

// CreateSchedule forwards a schedule request and returns the hospital's raw
// response body.
func (c *HospitalClient) CreateSchedule(ctx context.Context, s HospitalSchedule) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, hospitalSchedulePath, nil, s, &resp); err != nil {
		return nil, fmt.Errorf("create hospital schedule: %w", err)
	}
	return resp, nil
}

// FetchSchedule lists the hospital's health-check appointments.
func (c *HospitalClient) FetchSchedule(ctx context.Context) ([]HospitalAppointment, error) {
	var body json.RawMessage
	if err := c.do(ctx, http.MethodGet, hospitalSchedulePath, nil, nil, &body); err != nil {
		return nil, fmt.Errorf("fetch hospital schedule: %w", err)
	}
	raw, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("fetch hospital schedule: %w", err)
	}

	out := make([]HospitalAppointment, 0, len(raw))
	for _, r := range raw {
		apt := HospitalAppointment{
			EmployeeID: IDString(first(r, "employee_id", "employeeId")),
			Status:     str(r["status"]),
		}
		if res, ok := r["result"].(map[string]any); ok {
			apt.Result = &HospitalResult{
				CheckDate:        str(res["check_date"]),
				HealthStatus:     str(res["health_status"]),
				DoctorConclusion: str(res["doctor_conclusion"]),
			}
		}
		out = append(out, apt)
	}
	return out, nil
}
