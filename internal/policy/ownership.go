package policy

import (
	"context"

	"github.com/diewo77/cuentas-claras/gate"
)

// Ownable is an interface for resources that have an owner.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows a caller to act on resources they own.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates a new ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks if the caller owns the resource.
// A nil resource (list/create) passes; profile permissions already decided.
func (p *OwnershipPolicy) Can(_ context.Context, caller Caller, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// Resources without an owner are never owned.
		return false
	}
	owner := ownable.GetUserID()
	return owner != 0 && owner == caller.UserID
}

// AdminBypassPolicy wraps another policy and always allows administrators.
type AdminBypassPolicy struct {
	inner gate.Policy[Caller]
}

// NewAdminBypassPolicy creates a policy that bypasses inner for admins.
func NewAdminBypassPolicy(inner gate.Policy[Caller]) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner}
}

// Can allows admins, otherwise falls back to the inner policy.
func (p *AdminBypassPolicy) Can(ctx context.Context, caller Caller, action gate.Action, resource any) bool {
	if caller.IsAdmin() {
		return true
	}
	return p.inner.Can(ctx, caller, action, resource)
}
