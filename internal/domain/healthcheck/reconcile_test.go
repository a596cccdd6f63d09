package healthcheck

import "testing"

func TestRecomputeAggregates(t *testing.T) {
	appts := []Appointment{
		{Status: AppointmentPending},
		{Status: AppointmentConfirmed},
		{Status: AppointmentChecked},
		{Status: AppointmentMissed},
		{Status: AppointmentCancelled},
	}

	agg := RecomputeAggregates(appts)

	if agg.TotalEmployees != 5 || agg.ScheduledCount != 5 {
		t.Errorf("expected total and scheduled 5, got %d/%d", agg.TotalEmployees, agg.ScheduledCount)
	}
	if agg.PendingCount != 2 {
		t.Errorf("expected pending 2, got %d", agg.PendingCount)
	}
	if agg.CheckedCount != 1 {
		t.Errorf("expected checked 1, got %d", agg.CheckedCount)
	}
	if agg.MissedCount != 2 {
		t.Errorf("expected missed 2, got %d", agg.MissedCount)
	}
}

func TestRecomputeAggregates_Empty(t *testing.T) {
	if agg := RecomputeAggregates(nil); agg != (Aggregates{}) {
		t.Errorf("expected zero aggregates, got %+v", agg)
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current CampaignStatus
		agg     Aggregates
		want    CampaignStatus
	}{
		{"empty keeps pending", CampaignPending, Aggregates{}, CampaignPending},
		{"work left", CampaignScheduled, Aggregates{TotalEmployees: 2, PendingCount: 1, CheckedCount: 1}, CampaignInProgress},
		{"all done", CampaignInProgress, Aggregates{TotalEmployees: 2, CheckedCount: 2}, CampaignCompleted},
		{"missed counts as done", CampaignInProgress, Aggregates{TotalEmployees: 2, CheckedCount: 1, MissedCount: 1}, CampaignCompleted},
		{"reopened", CampaignCompleted, Aggregates{TotalEmployees: 3, CheckedCount: 2, PendingCount: 1}, CampaignInProgress},
		{"archived sticks", CampaignArchived, Aggregates{TotalEmployees: 1, PendingCount: 1}, CampaignArchived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStatus(tt.current, tt.agg); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		checked, total int
		want           string
	}{
		{0, 0, "0%"},
		{0, 3, "0%"},
		{1, 2, "50%"},
		{2, 3, "67%"},
		{1, 3, "33%"},
		{2, 2, "100%"},
	}
	for _, tt := range tests {
		if got := CompletionRate(tt.checked, tt.total); got != tt.want {
			t.Errorf("CompletionRate(%d, %d) = %q, want %q", tt.checked, tt.total, got, tt.want)
		}
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentChecked, AppointmentMissed, AppointmentCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []AppointmentStatus{AppointmentPending, AppointmentConfirmed} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
