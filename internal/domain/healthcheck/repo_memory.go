package healthcheck

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryCampaignStore is a process-local CampaignRepository, used when no
// database is configured and in tests.
type InMemoryCampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]*Campaign
}

func NewInMemoryCampaignStore() *InMemoryCampaignStore {
	return &InMemoryCampaignStore{campaigns: make(map[string]*Campaign)}
}

func (s *InMemoryCampaignStore) Create(_ context.Context, c *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.CampaignID]; ok {
		return ErrDuplicateCampaign
	}
	c.Version = 1
	s.campaigns[c.CampaignID] = copyCampaign(c)
	return nil
}

func (s *InMemoryCampaignStore) Get(_ context.Context, campaignID string) (*Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCampaign(c), nil
}

func (s *InMemoryCampaignStore) Save(_ context.Context, c *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.campaigns[c.CampaignID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrConflict
	}
	c.Version++
	s.campaigns[c.CampaignID] = copyCampaign(c)
	return nil
}

func (s *InMemoryCampaignStore) ListSummaries(_ context.Context) ([]*CampaignSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*CampaignSummary, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, &CampaignSummary{
			CampaignID: c.CampaignID,
			Name:       c.Name,
			Type:       c.Type,
			StartDate:  c.StartDate,
			EndDate:    c.EndDate,
			Status:     c.Status,
			Aggregates: c.Aggregates,
			CreatedAt:  c.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CampaignID > out[j].CampaignID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryCampaignStore) ListAppointmentsBetween(_ context.Context, from, to time.Time, campaignID string) ([]*ScheduledAppointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ScheduledAppointment
	for _, c := range s.campaigns {
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		out = append(out, appointmentsBetween(c, from, to)...)
	}
	sortSchedule(out)
	return out, nil
}

// appointmentsBetween selects the appointments of c scheduled in [from, to).
func appointmentsBetween(c *Campaign, from, to time.Time) []*ScheduledAppointment {
	var out []*ScheduledAppointment
	for _, a := range c.Appointments {
		if a.ScheduledDate.Before(from) || !a.ScheduledDate.Before(to) {
			continue
		}
		out = append(out, &ScheduledAppointment{
			CampaignID:   c.CampaignID,
			CampaignName: c.Name,
			Appointment:  copyAppointment(a),
		})
	}
	return out
}

func sortSchedule(out []*ScheduledAppointment) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScheduledTime != out[j].ScheduledTime {
			return out[i].ScheduledTime < out[j].ScheduledTime
		}
		return out[i].CampaignID < out[j].CampaignID
	})
}

func copyCampaign(c *Campaign) *Campaign {
	cp := *c
	cp.Appointments = make([]Appointment, len(c.Appointments))
	for i, a := range c.Appointments {
		cp.Appointments[i] = copyAppointment(a)
	}
	return &cp
}

func copyAppointment(a Appointment) Appointment {
	if a.Restrictions != nil {
		a.Restrictions = append([]string(nil), a.Restrictions...)
	}
	return a
}

// InMemoryResultStore is a process-local ResultRepository.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results []*Result
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{}
}

func (s *InMemoryResultStore) Create(_ context.Context, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results = append(s.results, &cp)
	return nil
}

func (s *InMemoryResultStore) ListSummaries(_ context.Context, campaignID, employeeID string) ([]*ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ResultSummary
	for _, r := range s.results {
		if r.CampaignID != campaignID {
			continue
		}
		if employeeID != "" && r.EmployeeID != employeeID {
			continue
		}
		out = append(out, &ResultSummary{
			HISRecordID:      r.HISRecordID,
			CampaignID:       r.CampaignID,
			AppointmentID:    r.AppointmentID,
			EmployeeID:       r.EmployeeID,
			EmployeeName:     r.EmployeeName,
			CheckDate:        r.CheckDate,
			HealthStatus:     r.HealthStatus,
			Restrictions:     append([]string(nil), r.Restrictions...),
			DoctorConclusion: r.DoctorConclusion,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckDate.After(out[j].CheckDate)
	})
	return out, nil
}

func (s *InMemoryResultStore) CountByHealthStatus(_ context.Context, campaignID string) (map[HealthStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[HealthStatus]int)
	for _, r := range s.results {
		if r.CampaignID == campaignID {
			counts[r.HealthStatus]++
		}
	}
	return counts, nil
}

// InMemorySyncLogStore is a process-local SyncLogRepository.
type InMemorySyncLogStore struct {
	mu      sync.RWMutex
	entries map[string]*SyncLogEntry
	order   []string
}

func NewInMemorySyncLogStore() *InMemorySyncLogStore {
	return &InMemorySyncLogStore{entries: make(map[string]*SyncLogEntry)}
}

func (s *InMemorySyncLogStore) Create(_ context.Context, e *SyncLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.ID] = &cp
	s.order = append(s.order, e.ID)
	return nil
}

func (s *InMemorySyncLogStore) Finish(_ context.Context, e *SyncLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[e.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Finished() {
		return ErrLedgerClosed
	}
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *InMemorySyncLogStore) List(_ context.Context, f LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*SyncLogEntry
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.entries[s.order[i]]
		if f.CampaignID != "" && e.CampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.SyncType != "" && e.SyncType != f.SyncType {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset >= total {
		return []*SyncLogEntry{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
