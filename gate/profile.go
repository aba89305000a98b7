package gate

import (
	"context"
	"sort"
)

// Profile represents a role with a set of permissions.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver resolves a subject to its profile.
// A nil profile with a nil error means the subject has no profile.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is an in-memory profile.
type StaticProfile struct {
	name        string
	permissions map[Permission]bool
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	p := &StaticProfile{
		name:        name,
		permissions: make(map[Permission]bool, len(permissions)),
	}
	for _, perm := range permissions {
		p.permissions[perm] = true
	}
	return p
}

func (p *StaticProfile) Name() string { return p.name }

// Permissions returns all permissions in this profile, sorted.
func (p *StaticProfile) Permissions() []Permission {
	perms := make([]Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasPermission checks if the profile has the requested permission,
// honouring wildcards.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	if p.permissions[requested] {
		return true
	}
	for perm := range p.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// KeyedResolver maps subjects to profiles through a derived key,
// typically the subject's role name.
type KeyedResolver[U any, K comparable] struct {
	key      func(U) K
	profiles map[K]Profile
}

// NewKeyedResolver creates a resolver deriving the lookup key with key.
func NewKeyedResolver[U any, K comparable](key func(U) K) *KeyedResolver[U, K] {
	return &KeyedResolver[U, K]{key: key, profiles: make(map[K]Profile)}
}

// Set assigns a profile to a key.
func (r *KeyedResolver[U, K]) Set(k K, profile Profile) {
	r.profiles[k] = profile
}

// Resolve returns the profile for the subject's key, or nil when unknown.
func (r *KeyedResolver[U, K]) Resolve(_ context.Context, user U) (Profile, error) {
	if profile, ok := r.profiles[r.key(user)]; ok {
		return profile, nil
	}
	return nil, nil
}
