package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestResolveRoleInline(t *testing.T) {
	assert.Equal(t, RoleAdmin, ResolveRole(InlineRole("admin")))
	assert.Equal(t, RoleManager, ResolveRole(InlineRole("  Manager ")))
	assert.Equal(t, RoleEmployee, ResolveRole(InlineRole("supervisor")))
	assert.Equal(t, RoleEmployee, ResolveRole(InlineRole("")))
}

func TestResolveRoleLinkedShapes(t *testing.T) {
	cases := []struct {
		name string
		role LinkedRole
		want UserRole
	}{
		{"slug", LinkedRole{Slug: strptr("manager")}, RoleManager},
		{"name", LinkedRole{Name: strptr("Admin")}, RoleAdmin},
		{"role attribute", LinkedRole{Role: strptr(" manager ")}, RoleManager},
		{"role_name attribute", LinkedRole{RoleName: strptr("ADMIN")}, RoleAdmin},
		{"slug wins over name", LinkedRole{Slug: strptr("admin"), Name: strptr("manager")}, RoleAdmin},
		{"unknown slug falls through to name", LinkedRole{Slug: strptr("superuser"), Name: strptr("manager")}, RoleManager},
		{"only first non-null descriptive attribute counts", LinkedRole{Name: strptr("supervisor"), Role: strptr("admin")}, RoleEmployee},
		{"nothing resolvable", LinkedRole{}, RoleEmployee},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveRole(LinkedRoleSource(tc.role)))
		})
	}
}

func TestResolveRoleSingletonCollection(t *testing.T) {
	// Backends may hand the relation back as a one-element list.
	src := LinkedRoleSource([]LinkedRole{{Slug: strptr("admin")}}...)
	assert.Equal(t, RoleAdmin, ResolveRole(src))

	assert.Equal(t, RoleEmployee, ResolveRole(LinkedRoleSource()))
}

func TestResolveRoleEquivalenceAcrossShapes(t *testing.T) {
	shapes := []RoleSource{
		InlineRole("manager"),
		LinkedRoleSource(LinkedRole{Slug: strptr("manager")}),
		LinkedRoleSource(LinkedRole{Name: strptr("Manager")}),
		LinkedRoleSource(LinkedRole{RoleName: strptr("manager")}),
	}
	for _, src := range shapes {
		assert.Equal(t, RoleManager, ResolveRole(src))
	}
}
