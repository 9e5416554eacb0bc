package models

import "time"

// Envelope is the response wrapper used by every API endpoint.
type Envelope[T any] struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Data    T       `json:"data"`
	Paging  *Paging `json:"paging,omitempty"`
}

type Paging struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Toast is what mutation endpoints return on failure and success so the
// front end can show a notification without further interpretation.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)

// Preferences is the per-user display state.
type Preferences struct {
	UserID    string    `json:"user_id"`
	FontSize  string    `json:"font_size"`
	Theme     string    `json:"theme"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditLog records a mutation performed through the console.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Resource  string    `json:"resource"`
	RecordID  string    `json:"record_id"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
