package healthcheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/portal/gateway/internal/platform/systems"
)

// flexID accepts identifiers sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	id := systems.IDString(v)
	if id == "" {
		if _, isString := v.(string); !isString {
			return fmt.Errorf("identifier must be a string or number")
		}
	}
	*f = flexID(id)
	return nil
}

func (f flexID) String() string { return string(f) }

// dateLayouts are the accepted calendar date formats.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

type createCampaignRequest struct {
	CampaignID   flexID           `json:"campaign_id"`
	CampaignName string           `json:"campaign_name" validate:"required"`
	CampaignType string           `json:"campaign_type" validate:"required,oneof=Annual Quarterly Special"`
	Description  string           `json:"description"`
	StartDate    string           `json:"start_date" validate:"required"`
	EndDate      string           `json:"end_date" validate:"required"`
	Employees    []map[string]any `json:"employees"`
}

type syncToHISRequest struct {
	CampaignID flexID           `json:"campaign_id" validate:"required"`
	Employees  []map[string]any `json:"employees"`
}

type syncInitRequest struct {
	CampaignID   flexID `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
}

type syncResultsRequest struct {
	CampaignID flexID `json:"campaign_id"`
}

type submitResultRequest struct {
	AppointmentID flexID `json:"appointment_id"`
	CampaignID    flexID `json:"campaign_id"`
	EmployeeID    flexID `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	Department    string `json:"department"`
	DoctorID      flexID `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	CheckDate     string `json:"check_date"`
	CheckTime     string `json:"check_time"`

	Vitals               *Vitals               `json:"vitals"`
	LabResults           *LabResults           `json:"lab_results"`
	Imaging              []ImagingStudy        `json:"imaging"`
	PhysicalExamination  *PhysicalExamination  `json:"physical_examination"`
	DetailedDiagnosis    *DetailedDiagnosis    `json:"detailed_diagnosis"`
	RecommendedTreatment *RecommendedTreatment `json:"recommended_treatment"`
	DoctorPrivateNotes   string                `json:"doctor_private_notes"`
	FollowUpNotes        string                `json:"follow_up_notes"`

	HealthStatus     string   `json:"health_status"`
	Restrictions     []string `json:"restrictions"`
	DoctorConclusion string   `json:"doctor_conclusion"`
	SummaryForHR     string   `json:"summary_for_hr"`
}

func (r *submitResultRequest) toResult() (*Result, error) {
	res := &Result{
		AppointmentID:        r.AppointmentID.String(),
		CampaignID:           r.CampaignID.String(),
		EmployeeID:           r.EmployeeID.String(),
		EmployeeName:         r.EmployeeName,
		Department:           r.Department,
		DoctorID:             r.DoctorID.String(),
		DoctorName:           r.DoctorName,
		CheckTime:            r.CheckTime,
		Vitals:               r.Vitals,
		LabResults:           r.LabResults,
		Imaging:              r.Imaging,
		PhysicalExamination:  r.PhysicalExamination,
		DetailedDiagnosis:    r.DetailedDiagnosis,
		RecommendedTreatment: r.RecommendedTreatment,
		DoctorPrivateNotes:   r.DoctorPrivateNotes,
		FollowUpNotes:        r.FollowUpNotes,
		HealthStatus:         HealthStatus(strings.TrimSpace(r.HealthStatus)),
		Restrictions:         r.Restrictions,
		DoctorConclusion:     r.DoctorConclusion,
		SummaryForHR:         r.SummaryForHR,
	}
	if r.CheckDate != "" {
		d, err := parseDate(r.CheckDate)
		if err != nil {
			return nil, validationError("Invalid check_date format. Use YYYY-MM-DD")
		}
		res.CheckDate = d
	}
	return res, nil
}

// requestValidator validates request DTOs and reports failures by JSON
// field name.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Struct(req any) error {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return validationError("%s", err.Error())
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "oneof":
			invalid = append(invalid, fmt.Sprintf("Invalid %s. Must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			invalid = append(invalid, fmt.Sprintf("Invalid %s", fe.Field()))
		}
	}
	if len(missing) > 0 {
		return validationError("Missing required fields: %s", strings.Join(missing, ", "))
	}
	return validationError("%s", strings.Join(invalid, "; "))
}
