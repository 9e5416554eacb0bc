package handlers

import (
	"elda-admin/internal/models"
	"elda-admin/internal/table"
)

func UserResource() Resource[models.User] {
	return Resource[models.User]{
		Name:      "users",
		Entity:    "user",
		Roles:     []string{models.RoleAdmin},
		SearchKey: "name",
		Manual:    true,
		ID:        func(u models.User) string { return u.ID },
		RowClass: func(u models.User, _ int) string {
			if !u.IsActive {
				return "row-muted"
			}
			return ""
		},
		Columns: []table.Column[models.User]{
			{Key: "name", Header: "Name", Accessor: func(u models.User) any { return u.Name }, Sortable: true},
			{Key: "email", Header: "Email", Accessor: func(u models.User) any { return u.Email }, Sortable: true},
			{Key: "phone", Header: "Phone", Accessor: func(u models.User) any { return u.Phone }},
			{Key: "role", Header: "Role", Accessor: func(u models.User) any { return u.Role },
				Cell: func(u models.User) string { return humanize(u.Role) }, Sortable: true},
			{Key: "is_active", Header: "Active", Accessor: func(u models.User) any { return u.IsActive }},
			{Key: "created_at", Header: "Created", Accessor: func(u models.User) any { return u.CreatedAt }, Sortable: true},
		},
	}
}
