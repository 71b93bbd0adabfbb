package events

import "time"

const LeaveRequestLifecycleTopic = "leave.request.lifecycle.v1"

const (
	LeaveRequestSubmitted = "leave_request.submitted"
	LeaveRequestDecided   = "leave_request.decided"
)

type LeaveRequestSubmittedEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	LeaveRequestID string    `json:"leave_request_id"`
	EmployeeID     string    `json:"employee_id"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	TotalDays      int       `json:"total_days"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type LeaveRequestDecidedEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	LeaveRequestID string    `json:"leave_request_id"`
	EmployeeID     string    `json:"employee_id"`
	Status         string    `json:"status"`
	TotalDays      int       `json:"total_days"`
	BalanceAfter   int       `json:"balance_after"`
	OccurredAt     time.Time `json:"occurred_at"`
}
