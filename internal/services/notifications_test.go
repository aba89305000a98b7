package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/juju/errors"
)

func TestNotificationCenter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.user(t, "bruno", models.RoleResident)

	first := f.expense(t, "Enero", 1000)
	f.clock.Advance(2 * time.Minute)
	second := f.expense(t, "Febrero", 1000)

	list, err := f.svc.Notifications.List(ctx, f.residentCaller())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 resident notices, got %d", len(list))
	}
	if *list[0].ObjectID != second.ID || *list[1].ObjectID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if got := f.svc.Notifications.Age("en", &list[1]); got != "2 minutes ago" {
		t.Fatalf("age: got %q", got)
	}
	if got := f.svc.Notifications.Age("es", &list[0]); got != "justo ahora" {
		t.Fatalf("age: got %q", got)
	}

	unread, err := f.svc.Notifications.UnreadCount(ctx, f.residentCaller())
	if err != nil || unread != 2 {
		t.Fatalf("unread: %d %v", unread, err)
	}

	// Another resident cannot see or touch these.
	otherCaller := policy.CallerOf(other)
	if _, err := f.svc.Notifications.Get(ctx, otherCaller, list[0].ID); !errors.Is(err, errors.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Notifications.MarkRead(ctx, otherCaller, list[0].ID); !errors.Is(err, errors.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.Notifications.Delete(ctx, otherCaller, list[0].ID); !errors.Is(err, errors.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	n, err := f.svc.Notifications.MarkRead(ctx, f.residentCaller(), list[0].ID)
	if err != nil || !n.Read {
		t.Fatalf("mark read: %v %+v", err, n)
	}
	if unread, _ := f.svc.Notifications.UnreadCount(ctx, f.residentCaller()); unread != 1 {
		t.Fatalf("expected 1 unread, got %d", unread)
	}

	changed, err := f.svc.Notifications.MarkAllRead(ctx, f.residentCaller())
	if err != nil || changed != 1 {
		t.Fatalf("mark all read: %d %v", changed, err)
	}
	// The admin copies stay unread.
	if unread, _ := f.svc.Notifications.UnreadCount(ctx, f.adminCaller()); unread != 2 {
		t.Fatalf("expected admin copies unread, got %d", unread)
	}

	if err := f.svc.Notifications.Delete(ctx, f.residentCaller(), list[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Notifications.Get(ctx, f.residentCaller(), list[1].ID); !errors.Is(err, errors.NotFound) {
		t.Fatalf("expected deleted notice to be gone, got %v", err)
	}

	all, err := f.svc.Notifications.List(ctx, f.adminCaller())
	if err != nil || len(all) != 3 {
		t.Fatalf("admin sees every notice: %d %v", len(all), err)
	}
}

func TestNotificationCenter_AdminDeletesAny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expense(t, "Enero", 1000)

	list, err := f.svc.Notifications.List(ctx, f.residentCaller())
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if err := f.svc.Notifications.Delete(ctx, f.adminCaller(), list[0].ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := f.svc.Notifications.Delete(ctx, f.adminCaller(), list[0].ID); !errors.Is(err, errors.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFanout_FailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.db.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	fine, err := f.svc.Fines.Create(ctx, f.adminCaller(), FineInput{ResidentID: f.resident.ID, Reason: "noise", Amount: 100})
	if err != nil {
		t.Fatalf("create must succeed without notifications: %v", err)
	}
	if fine.ID == 0 {
		t.Fatalf("expected fine to be persisted")
	}
	if got := f.svc.Fanout.Publish(ctx, Event{Kind: EventFinePaid, Resident: f.resident, Fine: fine}); got != nil {
		t.Fatalf("expected nil on failure, got %+v", got)
	}
	if got := f.svc.Fanout.Publish(ctx, Event{Kind: "bogus", Resident: f.resident}); got != nil {
		t.Fatalf("expected nil for unknown event, got %+v", got)
	}
}
