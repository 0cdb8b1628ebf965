package models

import "strings"

// LinkedRole is a role entity referenced from a profile. The descriptive
// attribute varies across backing schemas, so all candidates are carried.
type LinkedRole struct {
	ID       string  `db:"id" json:"id"`
	Slug     *string `db:"slug" json:"slug,omitempty"`
	Name     *string `db:"name" json:"name,omitempty"`
	Role     *string `db:"role" json:"role,omitempty"`
	RoleName *string `db:"role_name" json:"role_name,omitempty"`
}

// RoleSource is a tagged variant over the two backing shapes a profile's role
// can take: an inline scalar, or a link to a role entity.
type RoleSource struct {
	Inline *string
	Linked *LinkedRole
}

// InlineRole builds a RoleSource from an inline scalar.
func InlineRole(value string) RoleSource {
	return RoleSource{Inline: &value}
}

// LinkedRoleSource builds a RoleSource from related role records. Backends may
// deliver the relation as a single record or a singleton collection; only the
// first element is considered.
func LinkedRoleSource(rows ...LinkedRole) RoleSource {
	if len(rows) == 0 {
		return RoleSource{}
	}
	first := rows[0]
	return RoleSource{Linked: &first}
}

// ResolveRole normalizes any role representation into a canonical key,
// defaulting to employee when nothing matches. This is the single resolution
// point; callers must not reimplement the matching.
//
// A slug is trusted as-is and only matched exactly. The remaining descriptive
// attributes are tried in order (name, role, role_name), lower-cased and
// trimmed before matching.
func ResolveRole(src RoleSource) UserRole {
	if src.Inline != nil {
		if role, ok := matchRole(*src.Inline); ok {
			return role
		}
		return RoleEmployee
	}

	if src.Linked == nil {
		return RoleEmployee
	}

	if src.Linked.Slug != nil {
		if role := UserRole(*src.Linked.Slug); role.Valid() {
			return role
		}
	}

	for _, candidate := range []*string{src.Linked.Name, src.Linked.Role, src.Linked.RoleName} {
		if candidate == nil {
			continue
		}
		if role, ok := matchRole(*candidate); ok {
			return role
		}
		break
	}

	return RoleEmployee
}

func matchRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if role.Valid() {
		return role, true
	}
	return "", false
}
