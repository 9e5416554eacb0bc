package handlers

import (
	"fmt"
	"time"

	"elda-admin/internal/models"
	"elda-admin/internal/querycache"
	"elda-admin/internal/table"
)

func DocumentResource() Resource[models.Document] {
	return Resource[models.Document]{
		Name:      "documents",
		Entity:    "document",
		Roles:     []string{models.RoleAdmin, models.RoleLawyer, models.RoleHRManager},
		SearchKey: "title",
		ID:        func(d models.Document) string { return d.ID },
		Cache:     querycache.Options{StaleTime: 10 * time.Minute, GCTime: 20 * time.Minute},
		Columns: []table.Column[models.Document]{
			{Key: "title", Header: "Title", Accessor: func(d models.Document) any { return d.Title }, Sortable: true},
			{Key: "file_name", Header: "File", Accessor: func(d models.Document) any { return d.FileName }},
			{Key: "category", Header: "Category", Accessor: func(d models.Document) any { return d.Category }, Sortable: true},
			{Key: "uploaded_by", Header: "Uploaded By", Accessor: func(d models.Document) any { return d.UploadedBy }, Sortable: true},
			{Key: "size", Header: "Size", Accessor: func(d models.Document) any { return d.SizeBytes },
				Cell: func(d models.Document) string { return byteSize(d.SizeBytes) }, Sortable: true},
			{Key: "created_at", Header: "Uploaded", Accessor: func(d models.Document) any { return d.CreatedAt }, Sortable: true},
		},
	}
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
