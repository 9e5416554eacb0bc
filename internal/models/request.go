package models

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestRejected   RequestStatus = "rejected"
)

// Person is the embedded name/email pair the API uses for creators and assignees.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Request struct {
	ID             string        `json:"id"`
	Description    string        `json:"description"`
	CreatedBy      Person        `json:"created_by"`
	AssignedTo     *Person       `json:"assigned_to,omitempty"`
	ServiceType    string        `json:"service_type"`
	DisabilityType string        `json:"disability_type"`
	Priority       Priority      `json:"priority"`
	Status         RequestStatus `json:"status"`
	Remarks        string        `json:"remarks,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketPending    TicketStatus = "pending"
	TicketClosed     TicketStatus = "closed"
)

// IsValidTicketStatus checks if the status is one the API accepts
func IsValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketPending, TicketClosed:
		return true
	default:
		return false
	}
}

type Ticket struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	Priority    Priority     `json:"priority"`
	Tags        []string     `json:"tags"`
	Creator     Person       `json:"creator"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
