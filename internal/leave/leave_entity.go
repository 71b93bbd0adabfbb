package leave

import (
	"time"

	"go-leave/internal/employee"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_emp"`

	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	TotalDays int       `gorm:"type:int;not null;default:1"`
	Reason    string    `gorm:"type:text"`

	Status string `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leave_status"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DecidedAt *time.Time

	Employee *employee.Employee `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// IsActive reports whether the request still occupies its date range.
func (l LeaveRequest) IsActive() bool {
	return l.Status == StatusPending || l.Status == StatusApproved
}
