package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/portal/gateway/internal/platform/systems"
)

func TestSyncToHIS_Q1Scenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	createQ1(t, f)

	res, err := f.sync.SyncToHIS(ctx, SyncToHISInput{CampaignID: "Q1", Employees: employees("1", "2"), InitiatedBy: "hr-admin"})
	if err != nil {
		t.Fatalf("sync-to-his: %v", err)
	}
	if res.TotalSent != 2 || res.Appended != 2 {
		t.Errorf("expected 2 sent and appended, got %+v", res)
	}
	if res.HISCampaignID != fmt.Sprintf("his_Q1_%d", fixedNow.UnixMilli()) {
		t.Errorf("unexpected his campaign id %q", res.HISCampaignID)
	}

	c, _ := f.campaignRepo.Get(ctx, "Q1")
	if c.Status != CampaignInProgress || c.TotalEmployees != 2 || c.PendingCount != 2 {
		t.Fatalf("expected in_progress with 2 pending, got %s total=%d pending=%d", c.Status, c.TotalEmployees, c.PendingCount)
	}

	first, second := c.Appointments[0], c.Appointments[1]
	if _, err := f.sync.SubmitResult(ctx, clinicalResult("Q1", first.AppointmentID, first.EmployeeID, HealthType1), "doctor-1"); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	c, _ = f.campaignRepo.Get(ctx, "Q1")
	if c.Status != CampaignInProgress || c.CheckedCount != 1 || c.PendingCount != 1 {
		t.Fatalf("expected in_progress 1/1, got %s checked=%d pending=%d", c.Status, c.CheckedCount, c.PendingCount)
	}
	if c.Appointments[0].Status != AppointmentChecked || !c.Appointments[0].SentToHRM || c.Appointments[0].HRMSyncDate == nil {
		t.Errorf("expected first appointment checked and flagged, got %+v", c.Appointments[0])
	}
	if c.Appointments[0].HealthStatus != HealthType1 || c.Appointments[0].DoctorConclusion != "Fit for work" {
		t.Errorf("expected HR-visible fields copied, got %+v", c.Appointments[0])
	}
	checkAggregates(t, c)

	if _, err := f.sync.SubmitResult(ctx, clinicalResult("Q1", second.AppointmentID, second.EmployeeID, HealthType2), "doctor-1"); err != nil {
		t.Fatalf("submit second: %v", err)
	}
	c, _ = f.campaignRepo.Get(ctx, "Q1")
	if c.Status != CampaignCompleted || c.CheckedCount != 2 || c.PendingCount != 0 {
		t.Fatalf("expected completed 2/0, got %s checked=%d pending=%d", c.Status, c.CheckedCount, c.PendingCount)
	}
	checkAggregates(t, c)

	rep, err := f.results.BuildReport(ctx, "Q1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.CompletionRate != "100%" {
		t.Errorf("expected completion 100%%, got %s", rep.CompletionRate)
	}
	if rep.Type1Count != 1 || rep.Type2Count != 1 {
		t.Errorf("expected one Type_1 and one Type_2, got %+v", rep)
	}
}

func TestSyncToHIS_DuplicateCallIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := SyncToHISInput{CampaignID: "Q1", Employees: employees("1", "2", "3")}

	if _, err := f.sync.SyncToHIS(ctx, in); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	res, err := f.sync.SyncToHIS(ctx, in)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Appended != 0 || res.TotalSent != 3 {
		t.Errorf("expected nothing appended on repeat, got %+v", res)
	}

	c, _ := f.campaignRepo.Get(ctx, "Q1")
	if c.TotalEmployees != 3 {
		t.Errorf("expected 3 employees, got %d", c.TotalEmployees)
	}

	entries, total, _ := f.ledger.List(ctx, LedgerFilter{CampaignID: "Q1"}, 10, 0)
	if total != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", total)
	}
	if entries[0].SuccessfulCount != 0 || entries[0].Details["duplicates"] != 3 {
		t.Errorf("expected repeat to record 3 duplicates, got %+v", entries[0])
	}
}

func TestSyncToHIS_FetchesDueListWhenNoEmployees(t *testing.T) {
	f := newFixture()
	f.hr.due = employees("7", "8")

	res, err := f.sync.SyncToHIS(context.Background(), SyncToHISInput{CampaignID: "Q1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Appended != 2 {
		t.Errorf("expected due list appended, got %+v", res)
	}
}

func TestSyncToHIS_UpstreamFailureIsLedgered(t *testing.T) {
	f := newFixture()
	f.hr.dueErr = fmt.Errorf("%w: hr down", ErrUpstreamTimeout)
	ctx := context.Background()

	_, err := f.sync.SyncToHIS(ctx, SyncToHISInput{CampaignID: "Q1"})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}

	entries, _, _ := f.ledger.List(ctx, LedgerFilter{Status: SyncFailed}, 10, 0)
	if len(entries) != 1 || entries[0].ErrorMessage == "" {
		t.Errorf("expected a failed ledger entry with message, got %+v", entries)
	}
	if _, err := f.campaignRepo.Get(ctx, "Q1"); !errors.Is(err, ErrNotFound) {
		t.Error("expected no campaign to be created on upstream failure")
	}
}

func TestSyncToHIS_StoreFailureIsLedgered(t *testing.T) {
	f := newFixture()
	f.rewire(downCampaignStore{f.campaignRepo}, f.logRepo)
	ctx := context.Background()

	_, err := f.sync.SyncToHIS(ctx, SyncToHISInput{CampaignID: "Q1", Employees: employees("1", "2")})
	if err == nil {
		t.Fatal("expected error when the campaign store rejects the write")
	}

	entries, _, _ := f.ledger.List(ctx, LedgerFilter{Status: SyncFailed}, 10, 0)
	if len(entries) != 1 || entries[0].SyncType != SyncHRMToHIS || entries[0].ErrorMessage == "" {
		t.Errorf("expected one failed HRM_to_HIS entry with message, got %+v", entries)
	}
	if _, total, _ := f.ledger.List(ctx, LedgerFilter{Status: SyncCompleted}, 10, 0); total != 0 {
		t.Errorf("expected no completed entries, got %d", total)
	}
}

func TestSubmitResult_StoredWhenLedgerDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	createQ1(t, f)
	if _, _, err := f.campaigns.AppendEmployees(ctx, "Q1", employees("1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	c, _ := f.campaignRepo.Get(ctx, "Q1")
	appt := c.Appointments[0]

	f.rewire(f.campaignRepo, downSyncLogStore{f.logRepo})

	recordID, err := f.sync.SubmitResult(ctx, clinicalResult("Q1", appt.AppointmentID, appt.EmployeeID, HealthType1), "doctor-1")
	if err != nil {
		t.Fatalf("expected submission to succeed without a ledger, got %v", err)
	}
	if recordID == "" {
		t.Error("expected a his_record_id")
	}

	summaries, _ := f.resultRepo.ListSummaries(ctx, "Q1", "")
	if len(summaries) != 1 {
		t.Fatalf("expected the result to be stored, got %d", len(summaries))
	}
	c, _ = f.campaignRepo.Get(ctx, "Q1")
	if c.CheckedCount != 1 || c.Status != CampaignCompleted {
		t.Errorf("expected the campaign to be linked, got %s checked=%d", c.Status, c.CheckedCount)
	}
	checkAggregates(t, c)
}

func TestSubmitResult_Type9Rejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.sync.SubmitResult(ctx, clinicalResult("Q1", "a1", "e1", "Type_9"), "doctor")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	counts, _ := f.resultRepo.CountByHealthStatus(ctx, "Q1")
	if len(counts) != 0 {
		t.Errorf("expected no result stored, got %v", counts)
	}
	if _, total, _ := f.ledger.List(ctx, LedgerFilter{}, 10, 0); total != 0 {
		t.Errorf("expected validation to fail before any ledger write, got %d entries", total)
	}
}

func TestSubmitResult_UnlinkedStillSucceeds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	createQ1(t, f)
	f.campaigns.AppendEmployees(ctx, "Q1", employees("1"))
	before, _ := f.campaignRepo.Get(ctx, "Q1")

	id, err := f.sync.SubmitResult(ctx, clinicalResult("Q1", "unknown-appointment", "1", HealthType1), "doctor")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id == "" {
		t.Error("expected a generated his_record_id")
	}

	after, _ := f.campaignRepo.Get(ctx, "Q1")
	if after.Aggregates != before.Aggregates || after.Status != before.Status {
		t.Errorf("expected campaign unchanged, before=%+v after=%+v", before.Aggregates, after.Aggregates)
	}

	list, _ := f.results.ListResults(ctx, "Q1", "")
	if len(list) != 1 {
		t.Errorf("expected the result to be stored, got %d", len(list))
	}

	entries, _, _ := f.ledger.List(ctx, LedgerFilter{SyncType: SyncHISToHRM}, 10, 0)
	if len(entries) != 1 || entries[0].Details["linked"] != false {
		t.Errorf("expected ledger to record an unlinked result, got %+v", entries)
	}
}

func TestSubmitResult_UnknownCampaignStillSucceeds(t *testing.T) {
	f := newFixture()

	id, err := f.sync.SubmitResult(context.Background(), clinicalResult("ghost", "a1", "e1", HealthType4), "doctor")
	if err != nil || id == "" {
		t.Errorf("expected stored result, got id=%q err=%v", id, err)
	}
}

func TestSyncInit(t *testing.T) {
	f := newFixture()
	f.hr.due = employees("1", "2")
	ctx := context.Background()

	res, err := f.sync.SyncInit(ctx, "", "", "hr-admin", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SyncedCount != 2 || string(res.HospitalResponse) != `{"accepted":true}` {
		t.Errorf("unexpected result %+v", res)
	}
	if len(f.hospital.schedules) != 1 {
		t.Fatalf("expected one schedule forwarded, got %d", len(f.hospital.schedules))
	}
	sent := f.hospital.schedules[0]
	if sent.HRMCampaignID != fmt.Sprintf("campaign_%d", fixedNow.UnixMilli()) {
		t.Errorf("unexpected generated campaign id %q", sent.HRMCampaignID)
	}
	if sent.CampaignName == "" || len(sent.Employees) != 2 {
		t.Errorf("unexpected schedule %+v", sent)
	}

	entries, _, _ := f.ledger.List(ctx, LedgerFilter{}, 10, 0)
	if entries[0].SyncType != SyncHRMToHIS || entries[0].Status != SyncCompleted {
		t.Errorf("expected completed HRM_to_HIS entry, got %+v", entries[0])
	}
	if _, err := f.campaignRepo.Get(ctx, sent.HRMCampaignID); !errors.Is(err, ErrNotFound) {
		t.Error("expected sync init not to create a local campaign")
	}
}

func TestSyncInit_NothingDue(t *testing.T) {
	f := newFixture()

	res, err := f.sync.SyncInit(context.Background(), "Q1", "Q1", "", SyncAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SyncedCount != 0 || len(f.hospital.schedules) != 0 {
		t.Errorf("expected nothing forwarded, got %+v", res)
	}
}

func TestSyncInit_HospitalFailure(t *testing.T) {
	f := newFixture()
	f.hr.due = employees("1")
	f.hospital.scheduleErr = fmt.Errorf("%w: 502", ErrUpstreamFailure)
	ctx := context.Background()

	_, err := f.sync.SyncInit(ctx, "Q1", "Q1", "", SyncAuto)
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("expected ErrUpstreamFailure, got %v", err)
	}
	entries, _, _ := f.ledger.List(ctx, LedgerFilter{CampaignID: "Q1"}, 10, 0)
	if entries[0].Status != SyncFailed || entries[0].SyncType != SyncAuto {
		t.Errorf("expected failed auto_sync entry, got %+v", entries[0])
	}
}

func TestSyncResults_CountsPartialFailures(t *testing.T) {
	f := newFixture()
	f.hospital.appts = []systems.HospitalAppointment{
		{EmployeeID: "1", Status: "completed", Result: &systems.HospitalResult{CheckDate: "2026-02-03", HealthStatus: "Type_1"}},
		{EmployeeID: "2", Status: "completed", Result: &systems.HospitalResult{HealthStatus: "Type_2"}},
		{EmployeeID: "3", Status: "completed", Result: &systems.HospitalResult{HealthStatus: "Type_3"}},
		{EmployeeID: "4", Status: "scheduled"},
		{EmployeeID: "5", Status: "completed"},
	}
	f.hr.pushErr = map[string]error{"3": fmt.Errorf("%w: 500", ErrUpstreamFailure)}
	ctx := context.Background()

	res, err := f.sync.SyncResults(ctx, "Q1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalFound != 3 || res.SyncedSuccess != 2 || res.Failed != 1 {
		t.Errorf("expected 3 found, 2 synced, 1 failed, got %+v", res)
	}
	if len(f.hr.pushed) != 2 || f.hr.pushed[1].CheckDate != "2026-02-01" {
		t.Errorf("expected missing check date to default to today, got %+v", f.hr.pushed)
	}

	entries, _, _ := f.ledger.List(ctx, LedgerFilter{}, 10, 0)
	e := entries[0]
	if e.SyncType != SyncHISToHRM || e.Status != SyncCompleted || e.FailedCount != 1 {
		t.Errorf("unexpected ledger entry %+v", e)
	}
}

func TestSyncResults_HospitalUnavailable(t *testing.T) {
	f := newFixture()
	f.hospital.fetchErr = fmt.Errorf("%w: dial", ErrUpstreamTimeout)

	if _, err := f.sync.SyncResults(context.Background(), "", "", SyncAuto); !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}
