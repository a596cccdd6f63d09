package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryCampaignStore_OptimisticSave(t *testing.T) {
	store := NewInMemoryCampaignStore()
	ctx := context.Background()
	if err := store.Create(ctx, &Campaign{CampaignID: "Q1", Name: "Q1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := store.Get(ctx, "Q1")
	b, _ := store.Get(ctx, "Q1")

	a.Name = "first"
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("expected version 2, got %d", a.Version)
	}

	b.Name = "second"
	if err := store.Save(ctx, b); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for stale save, got %v", err)
	}

	got, _ := store.Get(ctx, "Q1")
	if got.Name != "first" {
		t.Errorf("expected first writer to win, got %q", got.Name)
	}
}

func TestInMemoryCampaignStore_ReturnsCopies(t *testing.T) {
	store := NewInMemoryCampaignStore()
	ctx := context.Background()
	c := &Campaign{CampaignID: "Q1", Appointments: []Appointment{{EmployeeID: "1", Restrictions: []string{"a"}}}}
	store.Create(ctx, c)

	got, _ := store.Get(ctx, "Q1")
	got.Appointments[0].EmployeeID = "changed"
	got.Appointments[0].Restrictions[0] = "changed"

	again, _ := store.Get(ctx, "Q1")
	if again.Appointments[0].EmployeeID != "1" || again.Appointments[0].Restrictions[0] != "a" {
		t.Errorf("expected stored campaign to be isolated from callers, got %+v", again.Appointments[0])
	}
}

func TestInMemoryCampaignStore_SaveUnknown(t *testing.T) {
	store := NewInMemoryCampaignStore()

	if err := store.Save(context.Background(), &Campaign{CampaignID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCampaignStore_ListSummariesNewestFirst(t *testing.T) {
	store := NewInMemoryCampaignStore()
	ctx := context.Background()
	store.Create(ctx, &Campaign{CampaignID: "old", CreatedAt: fixedNow})
	store.Create(ctx, &Campaign{CampaignID: "new", CreatedAt: fixedNow.Add(time.Hour)})

	list, err := store.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].CampaignID != "new" {
		t.Errorf("expected newest first, got %+v", list)
	}
}

func TestInMemoryResultStore_SummariesNewestCheckFirst(t *testing.T) {
	store := NewInMemoryResultStore()
	ctx := context.Background()
	store.Create(ctx, &Result{CampaignID: "Q1", EmployeeID: "1", CheckDate: fixedNow, HealthStatus: HealthType1})
	store.Create(ctx, &Result{CampaignID: "Q1", EmployeeID: "2", CheckDate: fixedNow.AddDate(0, 0, 1), HealthStatus: HealthType1})
	store.Create(ctx, &Result{CampaignID: "Q1", EmployeeID: "3", CheckDate: fixedNow, HealthStatus: HealthType3})

	list, _ := store.ListSummaries(ctx, "Q1", "")
	if len(list) != 3 || list[0].EmployeeID != "2" {
		t.Errorf("expected most recent check first, got %+v", list)
	}

	counts, _ := store.CountByHealthStatus(ctx, "Q1")
	if counts[HealthType1] != 2 || counts[HealthType3] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
