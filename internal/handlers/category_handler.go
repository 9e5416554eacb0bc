package handlers

import (
	"time"

	"elda-admin/internal/models"
	"elda-admin/internal/querycache"
	"elda-admin/internal/table"
)

// CategoryResource holds document categories. They change rarely, so reads
// stay fresh longer than other screens.
func CategoryResource() Resource[models.Category] {
	return Resource[models.Category]{
		Name:      "categories",
		Entity:    "category",
		Roles:     []string{models.RoleAdmin},
		SearchKey: "name",
		ID:        func(c models.Category) string { return c.ID },
		Cache:     querycache.Options{StaleTime: 15 * time.Minute, GCTime: 30 * time.Minute},
		Columns: []table.Column[models.Category]{
			{Key: "name", Header: "Name", Accessor: func(c models.Category) any { return c.Name }, Sortable: true},
			{Key: "created_at", Header: "Created", Accessor: func(c models.Category) any { return c.CreatedAt }, Sortable: true},
			{Key: "updated_at", Header: "Updated", Accessor: func(c models.Category) any { return c.UpdatedAt }, Sortable: true},
		},
	}
}
