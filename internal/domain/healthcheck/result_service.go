package healthcheck

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResultService stores clinical results and serves their HR-visible views.
type ResultService struct {
	results   ResultRepository
	campaigns CampaignRepository
	now       func() time.Time
}

func NewResultService(results ResultRepository, campaigns CampaignRepository) *ResultService {
	return &ResultService{results: results, campaigns: campaigns, now: time.Now}
}

// Validate checks a submission before anything is written.
func (s *ResultService) Validate(r *Result) error {
	var missing []string
	if strings.TrimSpace(r.AppointmentID) == "" {
		missing = append(missing, "appointment_id")
	}
	if strings.TrimSpace(r.EmployeeID) == "" {
		missing = append(missing, "employee_id")
	}
	if r.HealthStatus == "" {
		missing = append(missing, "health_status")
	}
	if len(missing) > 0 {
		return validationError("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if !r.HealthStatus.Valid() {
		return validationError("Invalid health_status. Must be one of: Type_1, Type_2, Type_3, Type_4")
	}
	return nil
}

// Submit validates and stores a result, returning its generated record id.
func (s *ResultService) Submit(ctx context.Context, r *Result) (string, error) {
	if err := s.Validate(r); err != nil {
		return "", err
	}
	now := s.now().UTC()
	r.HISRecordID = uuid.NewString()
	r.CreatedAt = now
	if r.CheckDate.IsZero() {
		r.CheckDate = now
	}
	if r.Restrictions == nil {
		r.Restrictions = []string{}
	}
	if err := s.results.Create(ctx, r); err != nil {
		return "", storageError("store result", err)
	}
	return r.HISRecordID, nil
}

// ListResults returns the HR-visible summaries of a campaign's results,
// most recent check first.
func (s *ResultService) ListResults(ctx context.Context, campaignID, employeeID string) ([]*ResultSummary, error) {
	if campaignID == "" {
		return nil, validationError("campaign_id is required")
	}
	list, err := s.results.ListSummaries(ctx, campaignID, employeeID)
	if err != nil {
		return nil, storageError("list results", err)
	}
	if list == nil {
		list = []*ResultSummary{}
	}
	return list, nil
}

// BuildReport combines the campaign counters with per-status result counts.
// When the campaign is unknown the counters fall back to the stored results.
func (s *ResultService) BuildReport(ctx context.Context, campaignID string) (*Report, error) {
	if campaignID == "" {
		return nil, validationError("campaign_id is required")
	}
	counts, err := s.results.CountByHealthStatus(ctx, campaignID)
	if err != nil {
		return nil, storageError("count results", err)
	}
	records := 0
	for _, n := range counts {
		records += n
	}

	rep := &Report{
		CampaignID:     campaignID,
		CampaignName:   "Campaign " + campaignID,
		TotalEmployees: records,
		CheckedCount:   records,
		Type1Count:     counts[HealthType1],
		Type2Count:     counts[HealthType2],
		Type3Count:     counts[HealthType3],
		Type4Count:     counts[HealthType4],
	}

	c, err := s.campaigns.Get(ctx, campaignID)
	switch {
	case err == nil:
		rep.CampaignName = c.Name
		rep.TotalEmployees = c.TotalEmployees
		rep.CheckedCount = c.CheckedCount
		rep.PendingCount = c.PendingCount
	case !isNotFound(err):
		return nil, storageError("get campaign", err)
	}

	rep.CompletionRate = CompletionRate(rep.CheckedCount, rep.TotalEmployees)
	return rep, nil
}
