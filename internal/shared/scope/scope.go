package scope

import (
	"strings"

	"gorm.io/gorm"
)

func Employee(employeeID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("employee_id = ?", employeeID)
	}
}

// Status restricts to the given statuses; no statuses means no restriction.
func Status(statuses ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch len(statuses) {
		case 0:
			return db
		case 1:
			return db.Where("status = ?", statuses[0])
		default:
			return db.Where("status IN ?", statuses)
		}
	}
}

// Search does a case-insensitive substring match over name and email.
func Search(q string) func(db *gorm.DB) *gorm.DB {
	q = strings.ToLower(strings.TrimSpace(q))
	return func(db *gorm.DB) *gorm.DB {
		if q == "" {
			return db
		}
		like := "%" + q + "%"
		return db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
}
