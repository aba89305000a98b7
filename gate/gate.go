// Package gate provides a Gate/Policy authorization kernel.
// A Gate combines role profiles (global "resource:action" permissions) with
// per-resource policies that inspect the concrete record, usually for
// ownership. The package knows nothing about domain models.
//
// The subject type is generic so callers can authorize a plain user id,
// a struct carrying id and role, or decoded token claims.
package gate

import (
	"context"
	"errors"
)

// Sentinel errors returned by Gate.Authorize.
var (
	// ErrUnauthorized means there is no subject to authorize.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the subject is known but the action is denied.
	ErrForbidden = errors.New("forbidden")
)

// Policy defines record-level rules for a resource type.
type Policy[U any] interface {
	// Can reports whether user may perform action on resource.
	// For list/create, resource may be nil (context-only check).
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Gate is the central authorization checkpoint.
// Authorization flow:
//  1. the subject must be non-zero
//  2. the subject's profile must grant resource:action
//  3. if a policy is registered for the resource type and a record is
//     given, the policy must allow it
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New creates a gate resolving profiles through resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds a record-level policy for a resource type,
// replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when allowed, ErrUnauthorized for a zero subject
// and ErrForbidden for any denial.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	if !g.CanProfile(ctx, user, action, resourceType) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, without any record policy.
func (g *Gate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
