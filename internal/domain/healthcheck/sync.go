package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/portal/gateway/internal/platform/systems"
)

// HRGateway is the part of the HR system the orchestrator talks to.
type HRGateway interface {
	RosterSource
	FetchDueEmployees(ctx context.Context) ([]systems.Employee, error)
	PushResult(ctx context.Context, r systems.HRResult) error
}

// HospitalGateway is the part of the hospital system the orchestrator talks to.
type HospitalGateway interface {
	CreateSchedule(ctx context.Context, s systems.HospitalSchedule) (json.RawMessage, error)
	FetchSchedule(ctx context.Context) ([]systems.HospitalAppointment, error)
}

// SyncToHISInput asks for employees to be pushed into a campaign. A nil
// Employees slice means the due list is fetched from HR.
type SyncToHISInput struct {
	CampaignID  string
	Employees   []systems.Employee
	Skipped     int
	InitiatedBy string
	SyncType    SyncType
}

type SyncToHISResult struct {
	HISCampaignID string `json:"his_campaign_id"`
	TotalSent     int    `json:"total_sent"`
	Appended      int    `json:"appended"`
}

type SyncInitResult struct {
	CampaignID       string          `json:"campaign_id"`
	SyncedCount      int             `json:"synced_count"`
	HospitalResponse json.RawMessage `json:"hospital_response,omitempty"`
}

type SyncResultsResult struct {
	TotalFound    int `json:"total_found"`
	SyncedSuccess int `json:"synced_success"`
	Failed        int `json:"failed"`
}

// SyncService coordinates transfers between HR, the hospital and the local
// stores. Every transfer is bracketed by a ledger entry.
type SyncService struct {
	campaigns *CampaignService
	results   *ResultService
	ledger    *Ledger
	hr        HRGateway
	hospital  HospitalGateway
	logger    zerolog.Logger
	now       func() time.Time
}

func NewSyncService(campaigns *CampaignService, results *ResultService, ledger *Ledger, hr HRGateway, hospital HospitalGateway, logger zerolog.Logger) *SyncService {
	return &SyncService{
		campaigns: campaigns,
		results:   results,
		ledger:    ledger,
		hr:        hr,
		hospital:  hospital,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncToHIS appends employees to a campaign, creating it when needed.
func (s *SyncService) SyncToHIS(ctx context.Context, in SyncToHISInput) (*SyncToHISResult, error) {
	if in.CampaignID == "" {
		return nil, validationError("campaign_id is required")
	}
	syncType := in.SyncType
	if syncType == "" {
		syncType = SyncHRMToHIS
	}

	entry, err := s.ledger.Begin(ctx, in.CampaignID, syncType, DirectionOutbound, in.InitiatedBy)
	if err != nil {
		return nil, err
	}

	employees := in.Employees
	skipped := in.Skipped
	source := "request"
	if employees == nil {
		source = "hr_due_list"
		employees, err = s.hr.FetchDueEmployees(ctx)
		if err != nil {
			s.fail(ctx, entry, err)
			return nil, err
		}
	}

	_, added, err := s.campaigns.AppendEmployees(ctx, in.CampaignID, employees)
	if err != nil {
		s.fail(ctx, entry, err)
		return nil, err
	}

	received := len(employees) + skipped
	if err := s.ledger.Complete(ctx, entry, Outcome{
		RecordsCount:    received,
		SuccessfulCount: added,
		FailedCount:     skipped,
		Message:         fmt.Sprintf("Appended %d of %d employees", added, received),
		Details:         map[string]any{"source": source, "duplicates": len(employees) - added},
	}); err != nil {
		s.logger.Error().Err(err).Str("sync_log_id", entry.ID).Msg("failed to close sync log")
	}

	return &SyncToHISResult{
		HISCampaignID: fmt.Sprintf("his_%s_%d", in.CampaignID, s.now().UnixMilli()),
		TotalSent:     received,
		Appended:      added,
	}, nil
}

// SubmitResult stores a clinical result and links it to its campaign
// appointment. The stored result is authoritative: a failed link is logged and
// recorded in the ledger details but never fails the submission.
func (s *SyncService) SubmitResult(ctx context.Context, r *Result, initiatedBy string) (string, error) {
	if err := s.results.Validate(r); err != nil {
		return "", err
	}

	// A ledger outage never blocks storing the result.
	entry, err := s.ledger.Begin(ctx, r.CampaignID, SyncHISToHRM, DirectionInbound, initiatedBy)
	if err != nil {
		s.logger.Error().Err(err).
			Str("campaign_id", r.CampaignID).
			Str("appointment_id", r.AppointmentID).
			Msg("failed to open sync log, storing result without it")
		entry = nil
	}

	recordID, err := s.results.Submit(ctx, r)
	if err != nil {
		s.fail(ctx, entry, err)
		return "", err
	}

	linked := true
	details := map[string]any{"his_record_id": recordID, "appointment_id": r.AppointmentID}
	if err := s.campaigns.RecordResult(ctx, r.CampaignID, r.AppointmentID, r.Summary()); err != nil {
		linked = false
		details["link_error"] = err.Error()
		s.logger.Warn().Err(err).
			Str("his_record_id", recordID).
			Str("campaign_id", r.CampaignID).
			Str("appointment_id", r.AppointmentID).
			Msg("result stored but not linked to a campaign appointment")
	}
	details["linked"] = linked

	s.complete(ctx, entry, Outcome{
		RecordsCount:    1,
		SuccessfulCount: 1,
		Message:         "Result received",
		Details:         details,
	})
	return recordID, nil
}

// SyncInit forwards HR's due list to the hospital as a new schedule.
func (s *SyncService) SyncInit(ctx context.Context, campaignID, campaignName, initiatedBy string, syncType SyncType) (*SyncInitResult, error) {
	now := s.now().UTC()
	if campaignID == "" {
		campaignID = fmt.Sprintf("campaign_%d", now.UnixMilli())
	}
	if campaignName == "" {
		campaignName = "Health Check Campaign " + now.Format(time.RFC3339)
	}
	if syncType == "" {
		syncType = SyncHRMToHIS
	}

	entry, err := s.ledger.Begin(ctx, campaignID, syncType, DirectionOutbound, initiatedBy)
	if err != nil {
		return nil, err
	}

	employees, err := s.hr.FetchDueEmployees(ctx)
	if err != nil {
		s.fail(ctx, entry, err)
		return nil, err
	}
	res := &SyncInitResult{CampaignID: campaignID}
	if len(employees) == 0 {
		s.complete(ctx, entry, Outcome{Message: "No employees due"})
		return res, nil
	}

	resp, err := s.hospital.CreateSchedule(ctx, systems.HospitalSchedule{
		HRMCampaignID: campaignID,
		CampaignName:  campaignName,
		Employees:     employees,
	})
	if err != nil {
		s.fail(ctx, entry, err)
		return nil, err
	}

	res.SyncedCount = len(employees)
	res.HospitalResponse = resp
	s.complete(ctx, entry, Outcome{
		RecordsCount:    len(employees),
		SuccessfulCount: len(employees),
		Message:         "Sync init completed",
		Details:         map[string]any{"hospital_response": resp},
	})
	return res, nil
}

// SyncResults pushes every completed hospital appointment's result to HR.
// Individual push failures are counted rather than aborting the run.
func (s *SyncService) SyncResults(ctx context.Context, campaignID, initiatedBy string, syncType SyncType) (*SyncResultsResult, error) {
	if syncType == "" {
		syncType = SyncHISToHRM
	}
	entry, err := s.ledger.Begin(ctx, campaignID, syncType, DirectionOutbound, initiatedBy)
	if err != nil {
		return nil, err
	}

	schedule, err := s.hospital.FetchSchedule(ctx)
	if err != nil {
		s.fail(ctx, entry, err)
		return nil, err
	}

	var completed []systems.HospitalAppointment
	for _, apt := range schedule {
		if apt.Completed() {
			completed = append(completed, apt)
		}
	}
	res := &SyncResultsResult{TotalFound: len(completed)}
	if len(completed) == 0 {
		s.complete(ctx, entry, Outcome{Message: "No new results"})
		return res, nil
	}

	today := s.now().UTC().Format("2006-01-02")
	var failures []string
	for _, apt := range completed {
		checkDate := apt.Result.CheckDate
		if checkDate == "" {
			checkDate = today
		}
		err := s.hr.PushResult(ctx, systems.HRResult{
			EmployeeID:       apt.EmployeeID,
			CheckDate:        checkDate,
			HealthStatus:     apt.Result.HealthStatus,
			DoctorConclusion: apt.Result.DoctorConclusion,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("employee_id", apt.EmployeeID).Msg("failed to push result to HR")
			failures = append(failures, apt.EmployeeID)
			continue
		}
		res.SyncedSuccess++
	}
	res.Failed = len(failures)

	out := Outcome{
		RecordsCount:    len(completed),
		SuccessfulCount: res.SyncedSuccess,
		FailedCount:     res.Failed,
		Message:         "Sync results completed",
	}
	if len(failures) > 0 {
		out.Details = map[string]any{"failed_employee_ids": failures}
	}
	s.complete(ctx, entry, out)
	return res, nil
}

// ListSyncLogs exposes the ledger listing.
func (s *SyncService) ListSyncLogs(ctx context.Context, f LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error) {
	return s.ledger.List(ctx, f, limit, offset)
}

func (s *SyncService) complete(ctx context.Context, entry *SyncLogEntry, out Outcome) {
	if entry == nil {
		return
	}
	if err := s.ledger.Complete(ctx, entry, out); err != nil {
		s.logger.Error().Err(err).Str("sync_log_id", entry.ID).Msg("failed to close sync log")
	}
}

func (s *SyncService) fail(ctx context.Context, entry *SyncLogEntry, cause error) {
	if entry == nil {
		return
	}
	if err := s.ledger.Fail(ctx, entry, Message(cause)); err != nil && !errors.Is(err, ErrLedgerClosed) {
		s.logger.Error().Err(err).Str("sync_log_id", entry.ID).Msg("failed to record sync failure")
	}
}
