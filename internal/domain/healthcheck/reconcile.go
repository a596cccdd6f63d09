package healthcheck

import (
	"fmt"
	"math"
)

// RecomputeAggregates derives campaign counters from the appointment list.
// Confirmed appointments count as pending and cancelled ones as missed, so
// pending + checked + missed always equals the total.
func RecomputeAggregates(appointments []Appointment) Aggregates {
	agg := Aggregates{
		TotalEmployees: len(appointments),
		ScheduledCount: len(appointments),
	}
	for i := range appointments {
		switch appointments[i].Status {
		case AppointmentChecked:
			agg.CheckedCount++
		case AppointmentMissed, AppointmentCancelled:
			agg.MissedCount++
		default:
			agg.PendingCount++
		}
	}
	return agg
}

// NextStatus returns the campaign status implied by agg. A campaign with no
// appointments keeps its current status, and archived campaigns stay archived.
func NextStatus(current CampaignStatus, agg Aggregates) CampaignStatus {
	switch {
	case current == CampaignArchived:
		return current
	case agg.TotalEmployees == 0:
		return current
	case agg.PendingCount == 0:
		return CampaignCompleted
	default:
		return CampaignInProgress
	}
}

// reconcile refreshes the counters of c in place.
func reconcile(c *Campaign) {
	c.Aggregates = RecomputeAggregates(c.Appointments)
}

// CompletionRate formats checked/total as a whole percentage, e.g. "67%".
func CompletionRate(checked, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(checked)/float64(total)*100)))
}
