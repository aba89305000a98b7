package policy

import (
	"context"

	"github.com/diewo77/cuentas-claras/gate"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// Resource type names used in permissions ("<resource>:<action>").
const (
	ResourceExpense      = "expense"
	ResourceFine         = "fine"
	ResourceNotification = "notification"
	ResourceUser         = "user"
)

// Rules is the role rule table. Administrators may do anything; residents
// may read and settle their own ledger entries, manage their own
// notifications and see or edit their own account. Ownership is enforced
// on top of these permissions whenever a concrete record is given.
var Rules = map[models.Role][]gate.Permission{
	models.RoleAdmin: {gate.PermissionSuperAdmin},
	models.RoleResident: concat(
		gate.Permissions(ResourceExpense, gate.ActionList, gate.ActionView, gate.ActionPay),
		gate.Permissions(ResourceFine, gate.ActionList, gate.ActionView, gate.ActionPay),
		gate.Permissions(ResourceNotification, gate.ActionList, gate.ActionView, gate.ActionMarkRead, gate.ActionDelete),
		gate.Permissions(ResourceUser, gate.ActionView, gate.ActionUpdate),
	),
}

func concat(groups ...[]gate.Permission) []gate.Permission {
	var out []gate.Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// AccessPolicy is the single authorization checkpoint of the service.
type AccessPolicy struct {
	gate *gate.Gate[Caller]
}

// New builds the access policy from the rule table, with ownership checks
// (bypassed for admins) on every resource type.
func New() *AccessPolicy {
	resolver := gate.NewKeyedResolver(func(c Caller) models.Role { return c.Role })
	for role, perms := range Rules {
		resolver.Set(role, gate.NewStaticProfile(string(role), perms...))
	}
	g := gate.New[Caller](resolver)
	owner := NewAdminBypassPolicy(NewOwnershipPolicy())
	for _, res := range []string{ResourceExpense, ResourceFine, ResourceNotification, ResourceUser} {
		g.Register(res, owner)
	}
	return &AccessPolicy{gate: g}
}

// Authorize returns nil if caller may perform action on resourceType.
// resource is the concrete record, or nil for list/create/aggregate checks.
// Denials are errors.Forbidden; a zero caller is errors.Unauthorized.
func (p *AccessPolicy) Authorize(ctx context.Context, caller Caller, action gate.Action, resourceType string, resource any) error {
	err := p.gate.Authorize(ctx, caller, action, resourceType, resource)
	switch err {
	case nil:
		return nil
	case gate.ErrUnauthorized:
		return errors.Unauthorizedf("no authenticated caller")
	default:
		return errors.Forbiddenf("%s may not %s %s", roleName(caller), action, resourceType)
	}
}

// Can is a convenience method that returns bool instead of error.
func (p *AccessPolicy) Can(ctx context.Context, caller Caller, action gate.Action, resourceType string, resource any) bool {
	return p.Authorize(ctx, caller, action, resourceType, resource) == nil
}

func roleName(c Caller) string {
	if c.Role == "" {
		return "caller"
	}
	return string(c.Role)
}

// Scope is the visible scope of a caller: everything for admins, only
// records owned by the caller otherwise.
type Scope struct {
	All     bool
	OwnerID uint
}

// ScopeOf returns the visible scope of caller.
func (p *AccessPolicy) ScopeOf(caller Caller) Scope {
	if caller.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{OwnerID: caller.UserID}
}

// Apply restricts q to the scope, filtering on the owner column.
func (s Scope) Apply(q *gorm.DB, ownerColumn string) *gorm.DB {
	if s.All {
		return q
	}
	return q.Where(ownerColumn+" = ?", s.OwnerID)
}
