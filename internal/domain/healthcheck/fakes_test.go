package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/portal/gateway/internal/platform/systems"
)

type fakeHR struct {
	mu          sync.Mutex
	roster      []systems.Employee
	due         []systems.Employee
	dueErr      error
	pushErr     map[string]error
	pushed      []systems.HRResult
	rosterCalls int
}

func (f *fakeHR) FetchEmployees(context.Context) ([]systems.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	return f.roster, nil
}

func (f *fakeHR) FetchDueEmployees(context.Context) ([]systems.Employee, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	return f.due, nil
}

func (f *fakeHR) PushResult(_ context.Context, r systems.HRResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pushErr[r.EmployeeID]; err != nil {
		return err
	}
	f.pushed = append(f.pushed, r)
	return nil
}

type fakeHospital struct {
	schedules   []systems.HospitalSchedule
	scheduleErr error
	appts       []systems.HospitalAppointment
	fetchErr    error
}

func (f *fakeHospital) CreateSchedule(_ context.Context, s systems.HospitalSchedule) (json.RawMessage, error) {
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	f.schedules = append(f.schedules, s)
	return json.RawMessage(`{"accepted":true}`), nil
}

func (f *fakeHospital) FetchSchedule(context.Context) ([]systems.HospitalAppointment, error) {
	return f.appts, f.fetchErr
}

// fixture wires every service over the in-memory stores.
type fixture struct {
	campaignRepo *InMemoryCampaignStore
	resultRepo   *InMemoryResultStore
	logRepo      *InMemorySyncLogStore
	hr           *fakeHR
	hospital     *fakeHospital
	campaigns    *CampaignService
	results      *ResultService
	ledger       *Ledger
	sync         *SyncService
}

var fixedNow = time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		campaignRepo: NewInMemoryCampaignStore(),
		resultRepo:   NewInMemoryResultStore(),
		logRepo:      NewInMemorySyncLogStore(),
		hr:           &fakeHR{},
		hospital:     &fakeHospital{},
	}
	f.rewire(f.campaignRepo, f.logRepo)
	return f
}

func employees(ids ...string) []systems.Employee {
	out := make([]systems.Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, systems.Employee{ID: id, Name: "Employee " + id, Department: "Ops"})
	}
	return out
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// checkAggregates fails when the counters of c drift from its appointments.
func checkAggregates(t interface {
	Helper()
	Errorf(string, ...any)
}, c *Campaign) {
	t.Helper()
	if c.TotalEmployees != len(c.Appointments) {
		t.Errorf("expected total_employees %d, got %d", len(c.Appointments), c.TotalEmployees)
	}
	if c.CheckedCount+c.PendingCount+c.MissedCount != c.TotalEmployees {
		t.Errorf("counters do not add up: checked=%d pending=%d missed=%d total=%d",
			c.CheckedCount, c.PendingCount, c.MissedCount, c.TotalEmployees)
	}
	if c.ScheduledCount != c.TotalEmployees {
		t.Errorf("expected scheduled_count to mirror total, got %d", c.ScheduledCount)
	}
}

var errStoreDown = errors.New("store unavailable")

// downCampaignStore reads through but refuses every write.
type downCampaignStore struct {
	*InMemoryCampaignStore
}

func (downCampaignStore) Create(context.Context, *Campaign) error { return errStoreDown }
func (downCampaignStore) Save(context.Context, *Campaign) error   { return errStoreDown }

// sparseCampaignStore answers an empty listing with a nil slice, as the
// database-backed stores do.
type sparseCampaignStore struct {
	*InMemoryCampaignStore
}

func (sparseCampaignStore) ListSummaries(context.Context) ([]*CampaignSummary, error) {
	return nil, nil
}

// downSyncLogStore refuses to open ledger entries.
type downSyncLogStore struct {
	*InMemorySyncLogStore
}

func (downSyncLogStore) Create(context.Context, *SyncLogEntry) error { return errStoreDown }

// rewire rebuilds the services of f over the given repositories.
func (f *fixture) rewire(campaigns CampaignRepository, logs SyncLogRepository) {
	f.campaigns = NewCampaignService(campaigns, f.hr, nil)
	f.campaigns.now = func() time.Time { return fixedNow }
	f.results = NewResultService(f.resultRepo, campaigns)
	f.results.now = func() time.Time { return fixedNow }
	f.ledger = NewLedger(logs)
	f.sync = NewSyncService(f.campaigns, f.results, f.ledger, f.hr, f.hospital, zerolog.Nop())
	f.sync.now = func() time.Time { return fixedNow }
}
