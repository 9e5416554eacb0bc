package handlers

import (
	"elda-admin/internal/models"
	"elda-admin/internal/table"
)

const descriptionPreview = 60

// RequestResource lists legal aid requests. Urgent rows are highlighted.
func RequestResource() Resource[models.Request] {
	return Resource[models.Request]{
		Name:      "requests",
		Entity:    "request",
		Roles:     []string{models.RoleAdmin, models.RoleLawyer, models.RoleUser},
		SearchKey: "description",
		Manual:    true,
		ID:        func(r models.Request) string { return r.ID },
		RowClass: func(r models.Request, _ int) string {
			if r.Priority == models.PriorityUrgent {
				return "row-urgent"
			}
			return ""
		},
		Columns: []table.Column[models.Request]{
			{Key: "description", Header: "Description", Accessor: func(r models.Request) any { return r.Description },
				Cell: func(r models.Request) string { return truncate(r.Description, descriptionPreview) }},
			{Key: "created_by", Header: "Requester", Accessor: func(r models.Request) any { return r.CreatedBy.Name }, Sortable: true},
			{Key: "assigned_to", Header: "Assigned To", Accessor: func(r models.Request) any {
				if r.AssignedTo == nil {
					return "Unassigned"
				}
				return r.AssignedTo.Name
			}, Sortable: true},
			{Key: "service_type", Header: "Service", Accessor: func(r models.Request) any { return r.ServiceType }, Sortable: true},
			{Key: "disability_type", Header: "Disability", Accessor: func(r models.Request) any { return r.DisabilityType }},
			{Key: "priority", Header: "Priority", Accessor: func(r models.Request) any { return priorityRank(r.Priority) },
				Cell: func(r models.Request) string { return humanize(string(r.Priority)) }, Sortable: true},
			{Key: "status", Header: "Status", Accessor: func(r models.Request) any { return string(r.Status) },
				Cell: func(r models.Request) string { return humanize(string(r.Status)) }, Sortable: true},
			{Key: "created_at", Header: "Created", Accessor: func(r models.Request) any { return r.CreatedAt }, Sortable: true},
		},
	}
}

// priorityRank makes priority columns sort by urgency rather than by name.
func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityLow:
		return 1
	case models.PriorityMedium:
		return 2
	case models.PriorityHigh:
		return 3
	case models.PriorityUrgent:
		return 4
	default:
		return 0
	}
}
