package gate

import "strings"

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "fine:pay", "expense:view")
type Permission string

// Wildcards for super permissions
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Permissions expands one resource type over several actions.
func Permissions(resourceType string, actions ...Action) []Permission {
	out := make([]Permission, 0, len(actions))
	for _, a := range actions {
		out = append(out, NewPermission(resourceType, a))
	}
	return out
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches checks if this permission covers a requested permission.
// "*:*" matches all, "fine:*" matches every fine action and
// "*:view" matches viewing any resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == WildcardAll || res == reqRes
	actOK := string(act) == WildcardAll || act == reqAct
	return resOK && actOK
}
