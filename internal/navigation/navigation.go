// Package navigation holds the static sidebar model and filters it by role.
package navigation

import (
	"slices"
	"strings"

	"elda-admin/internal/models"
)

type Item struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Path  string   `json:"path"`
	Icon  string   `json:"icon,omitempty"`
	Roles []string `json:"-"`
}

// Visible reports whether role may see the item. An item with no roles is
// visible to every authenticated user.
func (i Item) Visible(role string) bool {
	return len(i.Roles) == 0 || slices.Contains(i.Roles, role)
}

type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

var Sections = []Section{
	{
		Title: "Overview",
		Items: []Item{
			{Key: "dashboard", Label: "Dashboard", Path: "/dashboard", Icon: "layout-dashboard"},
		},
	},
	{
		Title: "Management",
		Items: []Item{
			{Key: "requests", Label: "Requests", Path: "/requests", Icon: "inbox",
				Roles: []string{models.RoleAdmin, models.RoleLawyer, models.RoleUser}},
			{Key: "employees", Label: "Employees", Path: "/employees", Icon: "briefcase",
				Roles: []string{models.RoleAdmin, models.RoleHRManager}},
			{Key: "users", Label: "Users", Path: "/users", Icon: "users",
				Roles: []string{models.RoleAdmin}},
			{Key: "documents", Label: "Documents", Path: "/documents", Icon: "file-text",
				Roles: []string{models.RoleAdmin, models.RoleLawyer, models.RoleHRManager}},
			{Key: "categories", Label: "Categories", Path: "/categories", Icon: "tags",
				Roles: []string{models.RoleAdmin}},
		},
	},
	{
		Title: "Support",
		Items: []Item{
			{Key: "tickets", Label: "Tickets", Path: "/tickets", Icon: "life-buoy"},
		},
	},
	{
		Title: "Account",
		Items: []Item{
			{Key: "settings", Label: "Settings", Path: "/settings", Icon: "settings"},
		},
	},
}

// ForRole returns the sections filtered to the items role may see. Sections
// left without items are dropped.
func ForRole(role string) []Section {
	return filter(Sections, role)
}

func filter(sections []Section, role string) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		var items []Item
		for _, it := range s.Items {
			if it.Visible(role) {
				items = append(items, it)
			}
		}
		if len(items) > 0 {
			out = append(out, Section{Title: s.Title, Items: items})
		}
	}
	return out
}

// Lookup finds the item whose path matches the locale-stripped page path.
func Lookup(path string) (Item, bool) {
	path = "/" + strings.Trim(path, "/")
	for _, s := range Sections {
		for _, it := range s.Items {
			if path == it.Path || strings.HasPrefix(path, it.Path+"/") {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Allowed is the page-level role guard. Paths not in the navigation model
// carry no role restriction.
func Allowed(role, path string) bool {
	it, ok := Lookup(path)
	if !ok {
		return true
	}
	return it.Visible(role)
}
