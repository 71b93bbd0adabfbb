package employee

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLeaveBalance = 24
	MaxLeaveBalance     = 365
)

type Employee struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(80);not null"`
	Email        string    `gorm:"type:varchar(120);not null;uniqueIndex:uq_employees_email"`
	Department   string    `gorm:"type:varchar(60);not null"`
	JoiningDate  time.Time `gorm:"type:date;not null"`
	LeaveBalance int       `gorm:"not null;default:24;check:chk_employees_leave_balance,leave_balance >= 0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
