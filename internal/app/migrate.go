package app

import (
	"go-leave/internal/employee"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/connection"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the employees, leave_requests and outbox_events
// tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&employee.Employee{},
		&leave.LeaveRequest{},
		&kafka.OutboxEvent{},
	)
}

func RunMigrate() error {
	cfg := LoadConfig()

	gormDB, err := connection.ConnectDB(cfg.DB, 5)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := Migrate(gormDB); err != nil {
		return err
	}

	zap.L().Named("app.migrate").Info("schema migrated", zap.String("driver", cfg.DB.Driver))
	return nil
}
