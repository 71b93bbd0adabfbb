package leave

import (
	"strings"
	"time"

	"go-leave/internal/employee"
	leaveerrors "go-leave/internal/leave/errors"

	"github.com/google/uuid"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ParseDecision accepts the decision case-insensitively.
func ParseDecision(v string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(v))); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	default:
		return "", leaveerrors.ErrInvalidDecision
	}
}

// Duration is the inclusive number of calendar days between start and end.
// Weekends and holidays count.
func Duration(start, end time.Time) int {
	return int(calendarDate(end).Sub(calendarDate(start)).Hours()/24) + 1
}

// Overlaps reports whether the inclusive ranges [aStart, aEnd] and [bStart, bEnd]
// share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = calendarDate(aStart), calendarDate(aEnd)
	bStart, bEnd = calendarDate(bStart), calendarDate(bEnd)
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// SubmitRequest validates a proposed leave against the employee and the
// employee's existing requests and returns the new PENDING request. The balance
// is only checked here; it is deducted on approval.
func SubmitRequest(
	empl employee.Employee,
	existing []LeaveRequest,
	startDate, endDate time.Time,
	reason string,
	now time.Time,
) (*LeaveRequest, error) {
	start, end := calendarDate(startDate), calendarDate(endDate)

	if end.Before(start) {
		return nil, leaveerrors.ErrInvalidDateRange
	}
	if start.Before(calendarDate(empl.JoiningDate)) {
		return nil, leaveerrors.ErrPreJoining
	}

	days := Duration(start, end)
	if days <= 0 {
		return nil, leaveerrors.ErrNonPositiveDuration
	}
	if days > empl.LeaveBalance {
		return nil, leaveerrors.ErrInsufficientBalance.WithDetails(map[string]int{
			"requested": days,
			"available": empl.LeaveBalance,
		})
	}

	for _, r := range existing {
		if !r.IsActive() {
			continue
		}
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			return nil, leaveerrors.ErrLeaveOverlap.WithDetails(map[string]string{
				"conflicting_request_id": r.ID.String(),
			})
		}
	}

	return &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: empl.ID,
		StartDate:  start,
		EndDate:    end,
		TotalDays:  days,
		Reason:     strings.TrimSpace(reason),
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}

// DecideRequest moves a PENDING request to a terminal state. Approval re-checks
// the balance as it is now and deducts the duration from the returned employee.
// On error both inputs are returned unchanged.
func DecideRequest(
	req LeaveRequest,
	empl employee.Employee,
	decision Decision,
	now time.Time,
) (LeaveRequest, employee.Employee, error) {
	if req.Status != StatusPending {
		return req, empl, leaveerrors.ErrInvalidStatusTransition
	}

	switch decision {
	case DecisionReject:
		req.Status = StatusRejected
	case DecisionApprove:
		days := Duration(req.StartDate, req.EndDate)
		if days > empl.LeaveBalance {
			return req, empl, leaveerrors.ErrInsufficientBalance.WithDetails(map[string]int{
				"requested": days,
				"available": empl.LeaveBalance,
			})
		}
		empl.LeaveBalance -= days
		req.Status = StatusApproved
	default:
		return req, empl, leaveerrors.ErrInvalidDecision
	}

	req.DecidedAt = &now
	return req, empl, nil
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
