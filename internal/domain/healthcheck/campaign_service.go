package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/portal/gateway/internal/platform/lock"
	"github.com/portal/gateway/internal/platform/systems"
)

const (
	defaultScheduledTime = "09:00"
	defaultCampaignType  = CampaignAnnual
)

// RosterSource provides the HR employee roster.
type RosterSource interface {
	FetchEmployees(ctx context.Context) ([]systems.Employee, error)
}

// CreateCampaignInput carries a new campaign definition.
type CreateCampaignInput struct {
	CampaignID  string
	Name        string
	Type        CampaignType
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Employees   []systems.Employee
}

// CampaignService owns campaigns and their appointment lists. Every mutation
// runs under the campaign's lock and recomputes the aggregates before saving.
type CampaignService struct {
	campaigns CampaignRepository
	roster    RosterSource
	locks     lock.Locker
	now       func() time.Time
}

func NewCampaignService(campaigns CampaignRepository, roster RosterSource, locks lock.Locker) *CampaignService {
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	return &CampaignService{
		campaigns: campaigns,
		roster:    roster,
		locks:     locks,
		now:       time.Now,
	}
}

func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*Campaign, error) {
	if in.Name == "" {
		return nil, validationError("campaign_name is required")
	}
	if in.Type == "" {
		return nil, validationError("campaign_type is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, validationError("start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, validationError("end_date must not be before start_date")
	}

	now := s.now().UTC()
	if in.CampaignID == "" {
		in.CampaignID = uuid.NewString()
	}
	start, end := in.StartDate, in.EndDate

	release, err := s.acquire(ctx, in.CampaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	c := &Campaign{
		CampaignID:  in.CampaignID,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		StartDate:   &start,
		EndDate:     &end,
		Status:      CampaignPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(in.Employees) > 0 {
		s.appendAppointments(c, in.Employees)
		c.Status = CampaignScheduled
	}
	reconcile(c)

	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, storageError("create campaign", err)
	}
	return c, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	if campaignID == "" {
		return nil, validationError("campaign_id is required")
	}
	return s.load(ctx, campaignID)
}

// ListCampaigns returns every campaign, newest first, without appointments.
func (s *CampaignService) ListCampaigns(ctx context.Context) ([]*CampaignSummary, error) {
	list, err := s.campaigns.ListSummaries(ctx)
	if err != nil {
		return nil, storageError("list campaigns", err)
	}
	if list == nil {
		list = []*CampaignSummary{}
	}
	return list, nil
}

// EnsureDueEmployeesPopulated fills an empty campaign from the HR roster.
// Campaigns that already have appointments are returned unchanged.
func (s *CampaignService) EnsureDueEmployeesPopulated(ctx context.Context, campaignID string) (*Campaign, error) {
	if campaignID == "" {
		return nil, validationError("campaign_id is required")
	}
	release, err := s.acquire(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(c.Appointments) > 0 || s.roster == nil {
		return c, nil
	}

	employees, err := s.roster.FetchEmployees(ctx)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return c, nil
	}

	s.appendAppointments(c, employees)
	reconcile(c)
	if c.Status != CampaignArchived {
		c.Status = CampaignScheduled
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DueEmployees lists the employees of a campaign that have not been checked.
func DueEmployees(c *Campaign) []DueEmployee {
	out := make([]DueEmployee, 0, len(c.Appointments))
	for _, a := range c.Appointments {
		if a.Status == AppointmentChecked {
			continue
		}
		due := a.ScheduledDate
		out = append(out, DueEmployee{
			ID:         a.EmployeeID,
			Name:       a.EmployeeName,
			Department: a.Department,
			DueDate:    &due,
		})
	}
	return out
}

// AppendEmployees adds a pending appointment for every employee not already
// in the campaign, creating the campaign with defaults when it does not
// exist. It returns the campaign and the number of appointments added.
func (s *CampaignService) AppendEmployees(ctx context.Context, campaignID string, employees []systems.Employee) (*Campaign, int, error) {
	if campaignID == "" {
		return nil, 0, validationError("campaign_id is required")
	}
	release, err := s.acquire(ctx, campaignID)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	c, err := s.campaigns.Get(ctx, campaignID)
	created := false
	switch {
	case errors.Is(err, ErrNotFound):
		now := s.now().UTC()
		c = &Campaign{
			CampaignID: campaignID,
			Name:       "Campaign " + campaignID,
			Type:       defaultCampaignType,
			StartDate:  &now,
			Status:     CampaignPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		created = true
	case err != nil:
		return nil, 0, storageError("get campaign", err)
	}

	added := s.appendAppointments(c, employees)
	reconcile(c)
	if c.Status != CampaignArchived {
		c.Status = CampaignInProgress
		if next := NextStatus(c.Status, c.Aggregates); next == CampaignCompleted {
			c.Status = next
		}
	}

	if created {
		if err := s.campaigns.Create(ctx, c); err != nil {
			return nil, 0, storageError("create campaign", err)
		}
		return c, added, nil
	}
	if err := s.save(ctx, c); err != nil {
		return nil, 0, err
	}
	return c, added, nil
}

// RecordResult marks the matching appointment as checked and copies the
// HR-visible result fields onto it. A missing campaign or appointment is
// reported as ErrNotFound and leaves every campaign untouched.
func (s *CampaignService) RecordResult(ctx context.Context, campaignID, appointmentID string, link ResultLink) error {
	if campaignID == "" || appointmentID == "" {
		return fmt.Errorf("%w: campaign %q appointment %q", ErrNotFound, campaignID, appointmentID)
	}
	release, err := s.acquire(ctx, campaignID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return storageError("get campaign", err)
	}
	apt := c.appointment(appointmentID)
	if apt == nil {
		return fmt.Errorf("%w: appointment %s in campaign %s", ErrNotFound, appointmentID, campaignID)
	}
	if apt.Status.Terminal() {
		return fmt.Errorf("%w: appointment %s is %s", ErrAppointmentClosed, appointmentID, apt.Status)
	}

	now := s.now().UTC()
	apt.Status = AppointmentChecked
	apt.HealthStatus = link.HealthStatus
	apt.Restrictions = append([]string(nil), link.Restrictions...)
	apt.DoctorConclusion = link.DoctorConclusion
	apt.SentToHRM = true
	apt.HRMSyncDate = &now

	reconcile(c)
	c.Status = NextStatus(c.Status, c.Aggregates)
	return s.save(ctx, c)
}

// ListSchedule returns the appointments scheduled on the calendar day of day,
// optionally restricted to one campaign.
func (s *CampaignService) ListSchedule(ctx context.Context, day time.Time, campaignID string) ([]*ScheduledAppointment, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	list, err := s.campaigns.ListAppointmentsBetween(ctx, from, to, campaignID)
	if err != nil {
		return nil, storageError("list schedule", err)
	}
	if list == nil {
		list = []*ScheduledAppointment{}
	}
	return list, nil
}

// appendAppointments adds a pending appointment for each new employee id and
// returns how many were added.
func (s *CampaignService) appendAppointments(c *Campaign, employees []systems.Employee) int {
	date := s.now().UTC()
	if c.StartDate != nil {
		date = *c.StartDate
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	seen := make(map[string]bool, len(c.Appointments)+len(employees))
	for _, a := range c.Appointments {
		seen[a.EmployeeID] = true
	}

	added := 0
	for _, emp := range employees {
		id := strings.TrimSpace(emp.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		slot := emp.ScheduledTime
		if slot == "" {
			slot = defaultScheduledTime
		}
		c.Appointments = append(c.Appointments, Appointment{
			AppointmentID: uuid.NewString(),
			EmployeeID:    id,
			EmployeeName:  emp.Name,
			Department:    emp.Department,
			ScheduledDate: date,
			ScheduledTime: slot,
			Status:        AppointmentPending,
		})
		added++
	}
	return added
}

func (s *CampaignService) load(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if isNotFound(err) {
		return nil, notFoundError("Campaign not found")
	}
	if err != nil {
		return nil, storageError("get campaign", err)
	}
	return c, nil
}

func (s *CampaignService) save(ctx context.Context, c *Campaign) error {
	c.UpdatedAt = s.now().UTC()
	if err := s.campaigns.Save(ctx, c); err != nil {
		return storageError("save campaign", err)
	}
	return nil
}

func (s *CampaignService) acquire(ctx context.Context, campaignID string) (func(), error) {
	release, err := s.locks.Acquire(ctx, "campaign:"+campaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: lock campaign %s: %v", ErrStorage, campaignID, err)
	}
	return release, nil
}
