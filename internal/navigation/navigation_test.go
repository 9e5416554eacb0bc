package navigation

import (
	"slices"
	"testing"

	"elda-admin/internal/models"

	"github.com/stretchr/testify/assert"
)

func keys(sections []Section) []string {
	var out []string
	for _, s := range sections {
		for _, it := range s.Items {
			out = append(out, it.Key)
		}
	}
	return out
}

func TestForRoleMatchesDeclaredRoles(t *testing.T) {
	for _, role := range []string{models.RoleAdmin, models.RoleUser, models.RoleLawyer, models.RoleHRManager} {
		var want []string
		for _, s := range Sections {
			for _, it := range s.Items {
				if len(it.Roles) == 0 || slices.Contains(it.Roles, role) {
					want = append(want, it.Key)
				}
			}
		}
		assert.Equal(t, want, keys(ForRole(role)), role)
	}
}

func TestForRoleExamples(t *testing.T) {
	assert.Equal(t,
		[]string{"dashboard", "requests", "employees", "users", "documents", "categories", "tickets", "settings"},
		keys(ForRole(models.RoleAdmin)))
	assert.Equal(t,
		[]string{"dashboard", "requests", "tickets", "settings"},
		keys(ForRole(models.RoleUser)))
	assert.Equal(t,
		[]string{"dashboard", "requests", "documents", "tickets", "settings"},
		keys(ForRole(models.RoleLawyer)))
}

func TestEmptySectionsAreDropped(t *testing.T) {
	sections := []Section{
		{Title: "Admin only", Items: []Item{{Key: "a", Roles: []string{models.RoleAdmin}}}},
		{Title: "Open", Items: []Item{{Key: "b"}}},
	}
	got := filter(sections, models.RoleUser)
	assert.Len(t, got, 1)
	assert.Equal(t, "Open", got[0].Title)
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(models.RoleAdmin, "/users"))
	assert.False(t, Allowed(models.RoleUser, "/users"))
	assert.False(t, Allowed(models.RoleLawyer, "/employees/42"))
	assert.True(t, Allowed(models.RoleUser, "/tickets"))
	assert.True(t, Allowed(models.RoleUser, "/unknown"))
	assert.False(t, Allowed("", "/categories"))
}
