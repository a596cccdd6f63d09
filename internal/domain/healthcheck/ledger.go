package healthcheck

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// generalSyncCampaign tags ledger entries not tied to a single campaign.
const generalSyncCampaign = "general_sync"

var (
	syncAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_sync_attempts_total",
			Help: "Sync attempts recorded in the ledger by type and final status",
		},
		[]string{"sync_type", "status"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthcheck_sync_duration_seconds",
			Help:    "Duration of finished sync attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sync_type"},
	)
)

// Outcome is the result of a finished sync attempt.
type Outcome struct {
	RecordsCount    int
	SuccessfulCount int
	FailedCount     int
	Message         string
	Details         map[string]any
}

// Ledger records every sync attempt as an append-only audit trail. An entry
// is opened in_progress and finished exactly once.
type Ledger struct {
	repo SyncLogRepository
	now  func() time.Time
}

func NewLedger(repo SyncLogRepository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

func (l *Ledger) Begin(ctx context.Context, campaignID string, syncType SyncType, direction SyncDirection, initiatedBy string) (*SyncLogEntry, error) {
	if campaignID == "" {
		campaignID = generalSyncCampaign
	}
	if initiatedBy == "" {
		initiatedBy = "system"
	}
	e := &SyncLogEntry{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		SyncType:    syncType,
		Direction:   direction,
		Status:      SyncInProgress,
		InitiatedBy: initiatedBy,
		InitiatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		return nil, storageError("open sync log", err)
	}
	return e, nil
}

func (l *Ledger) Complete(ctx context.Context, e *SyncLogEntry, out Outcome) error {
	if e.Finished() {
		return ErrLedgerClosed
	}
	e.Status = SyncCompleted
	e.RecordsCount = out.RecordsCount
	e.SuccessfulCount = out.SuccessfulCount
	e.FailedCount = out.FailedCount
	e.Message = out.Message
	e.Details = out.Details
	return l.finish(ctx, e)
}

func (l *Ledger) Fail(ctx context.Context, e *SyncLogEntry, errMessage string) error {
	if e.Finished() {
		return ErrLedgerClosed
	}
	e.Status = SyncFailed
	e.ErrorMessage = errMessage
	return l.finish(ctx, e)
}

func (l *Ledger) finish(ctx context.Context, e *SyncLogEntry) error {
	done := l.now().UTC()
	e.CompletedAt = &done
	e.DurationMS = done.Sub(e.InitiatedAt).Milliseconds()
	if err := l.repo.Finish(ctx, e); err != nil {
		return storageError("finish sync log", err)
	}
	syncAttemptsTotal.WithLabelValues(string(e.SyncType), string(e.Status)).Inc()
	syncDuration.WithLabelValues(string(e.SyncType)).Observe(done.Sub(e.InitiatedAt).Seconds())
	return nil
}

// List returns ledger entries, most recent first, with the total match count.
func (l *Ledger) List(ctx context.Context, f LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error) {
	entries, total, err := l.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, storageError("list sync logs", err)
	}
	if entries == nil {
		entries = []*SyncLogEntry{}
	}
	return entries, total, nil
}
