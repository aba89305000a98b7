package gate_test

import (
	"context"
	"testing"

	"github.com/diewo77/cuentas-claras/gate"
)

// mockResource has a single owner.
type mockResource struct {
	OwnerID uint
}

// ownerPolicy allows the owner of a *mockResource.
var ownerPolicy = gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if r, ok := resource.(*mockResource); ok {
		return r.OwnerID == userID
	}
	return false
})

func newResolver(profiles map[uint]gate.Profile) *gate.KeyedResolver[uint, uint] {
	r := gate.NewKeyedResolver(func(id uint) uint { return id })
	for id, p := range profiles {
		r.Set(id, p)
	}
	return r
}

func TestGate_ProfileOnly(t *testing.T) {
	profile := gate.NewStaticProfile("editor",
		gate.NewPermission("fine", gate.ActionCreate),
		gate.NewPermission("fine", gate.ActionView),
	)
	g := gate.New[uint](newResolver(map[uint]gate.Profile{1: profile}))
	ctx := context.Background()

	if !g.Can(ctx, 1, gate.ActionCreate, "fine", nil) {
		t.Error("user with permission should be allowed")
	}
	if err := g.Authorize(ctx, 1, gate.ActionDelete, "fine", nil); err != gate.ErrForbidden {
		t.Errorf("expected ErrForbidden got %v", err)
	}
	// User 2 has no profile
	if err := g.Authorize(ctx, 2, gate.ActionView, "fine", nil); err != gate.ErrForbidden {
		t.Errorf("expected ErrForbidden for user without profile got %v", err)
	}
	if err := g.Authorize(ctx, 0, gate.ActionView, "fine", nil); err != gate.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for zero user got %v", err)
	}
}

func TestGate_WithOwnershipPolicy(t *testing.T) {
	profile := gate.NewStaticProfile("resident",
		gate.NewPermission("fine", gate.ActionView),
		gate.NewPermission("fine", gate.ActionPay),
	)
	g := gate.New[uint](newResolver(map[uint]gate.Profile{1: profile, 2: profile}))
	g.Register("fine", ownerPolicy)
	ctx := context.Background()

	resource := &mockResource{OwnerID: 1}
	if !g.Can(ctx, 1, gate.ActionPay, "fine", resource) {
		t.Error("owner should be allowed")
	}
	if g.Can(ctx, 2, gate.ActionPay, "fine", resource) {
		t.Error("non-owner should be denied even with profile permission")
	}
	// nil resource skips the record policy
	if !g.Can(ctx, 2, gate.ActionView, "fine", nil) {
		t.Error("profile permission alone should pass without a record")
	}
}

func TestGate_PolicyNotConsultedWithoutPermission(t *testing.T) {
	called := false
	g := gate.New[uint](newResolver(map[uint]gate.Profile{1: gate.NewStaticProfile("empty")}))
	g.Register("fine", gate.PolicyFunc[uint](func(context.Context, uint, gate.Action, any) bool {
		called = true
		return true
	}))

	if g.Can(context.Background(), 1, gate.ActionVoid, "fine", &mockResource{OwnerID: 1}) {
		t.Error("expected denial")
	}
	if called {
		t.Error("policy must not run when the profile denies")
	}
}

func TestGate_CanProfile(t *testing.T) {
	profile := gate.NewStaticProfile("editor", gate.NewPermission("fine", gate.ActionView))
	g := gate.New[uint](newResolver(map[uint]gate.Profile{1: profile}))
	g.Register("fine", ownerPolicy)

	if !g.CanProfile(context.Background(), 1, gate.ActionView, "fine") {
		t.Error("CanProfile should return true for user with permission")
	}
	if g.CanProfile(context.Background(), 1, gate.ActionDelete, "fine") {
		t.Error("CanProfile should return false for missing permission")
	}
}
