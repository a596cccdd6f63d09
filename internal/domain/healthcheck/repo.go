package healthcheck

import (
	"context"
	"time"
)

// CampaignRepository persists campaigns together with their appointments.
// Save is guarded by Campaign.Version: a stale version yields ErrConflict and
// a successful save increments it.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, campaignID string) (*Campaign, error)
	Save(ctx context.Context, c *Campaign) error
	ListSummaries(ctx context.Context) ([]*CampaignSummary, error)
	ListAppointmentsBetween(ctx context.Context, from, to time.Time, campaignID string) ([]*ScheduledAppointment, error)
}

// ResultRepository is append-only. Summary listings read only the HR-visible
// columns.
type ResultRepository interface {
	Create(ctx context.Context, r *Result) error
	ListSummaries(ctx context.Context, campaignID, employeeID string) ([]*ResultSummary, error)
	CountByHealthStatus(ctx context.Context, campaignID string) (map[HealthStatus]int, error)
}

// SyncLogRepository stores ledger entries. Finish only succeeds for entries
// without a completion time and returns ErrLedgerClosed otherwise.
type SyncLogRepository interface {
	Create(ctx context.Context, e *SyncLogEntry) error
	Finish(ctx context.Context, e *SyncLogEntry) error
	List(ctx context.Context, filter LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error)
}
