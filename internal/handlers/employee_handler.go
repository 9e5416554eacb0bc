package handlers

import (
	"fmt"

	"elda-admin/internal/models"
	"elda-admin/internal/table"
)

// EmployeeResource is the staff directory. The API paginates and searches it.
func EmployeeResource() Resource[models.Employee] {
	return Resource[models.Employee]{
		Name:      "employees",
		Entity:    "employee",
		Roles:     []string{models.RoleAdmin, models.RoleHRManager},
		SearchKey: "name",
		Manual:    true,
		ID:        func(e models.Employee) string { return e.ID },
		RowClass: func(e models.Employee, _ int) string {
			if e.Status == models.EmployeeTerminated {
				return "row-muted"
			}
			return ""
		},
		Columns: []table.Column[models.Employee]{
			{Key: "name", Header: "Name", Accessor: func(e models.Employee) any { return e.Name }, Sortable: true},
			{Key: "email", Header: "Email", Accessor: func(e models.Employee) any { return e.Email }},
			{Key: "phone", Header: "Phone", Accessor: func(e models.Employee) any { return e.Phone }},
			{Key: "job_title", Header: "Job Title", Accessor: func(e models.Employee) any { return e.JobTitle }, Sortable: true},
			{Key: "department", Header: "Department", Accessor: func(e models.Employee) any { return e.Department }, Sortable: true},
			{Key: "salary", Header: "Salary", Accessor: func(e models.Employee) any { return e.Salary },
				Cell: func(e models.Employee) string { return fmt.Sprintf("ETB %.2f", e.Salary) }, Sortable: true},
			{Key: "district", Header: "District", Accessor: func(e models.Employee) any { return e.District }},
			{Key: "employment_type", Header: "Type", Accessor: func(e models.Employee) any { return string(e.EmploymentType) },
				Cell: func(e models.Employee) string { return humanize(string(e.EmploymentType)) }},
			{Key: "status", Header: "Status", Accessor: func(e models.Employee) any { return string(e.Status) },
				Cell: func(e models.Employee) string { return humanize(string(e.Status)) }, Sortable: true},
			{Key: "hired_date", Header: "Hired", Accessor: func(e models.Employee) any { return e.HiredDate }, Sortable: true},
		},
	}
}
