package dashboard_test

import (
	"context"
	"testing"
	"time"

	"go-leave/internal/dashboard"
	"go-leave/internal/employee"
	"go-leave/internal/leave"
	"go-leave/internal/shared/connection"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Counts_SQLite(t *testing.T) {
	ctx := context.Background()
	gdb, err := connection.ConnectSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&employee.Employee{}, &leave.LeaveRequest{}))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	empl := employee.Employee{
		ID:           uuid.New(),
		Name:         "Jane",
		Email:        "jane@company.com",
		Department:   "HR",
		JoiningDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LeaveBalance: 24,
	}
	require.NoError(t, gdb.Create(&empl).Error)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []string{leave.StatusPending, leave.StatusPending, leave.StatusApproved, leave.StatusRejected} {
		start := day.AddDate(0, 0, i*7)
		require.NoError(t, gdb.Create(&leave.LeaveRequest{
			ID:         uuid.New(),
			EmployeeID: empl.ID,
			StartDate:  start,
			EndDate:    start,
			TotalDays:  1,
			Status:     status,
		}).Error)
	}

	got, err := dashboard.NewRepository(gdb).Counts(ctx)

	require.NoError(t, err)
	assert.Equal(t, dashboard.SummaryResponse{
		Employees:        1,
		PendingRequests:  2,
		ApprovedRequests: 1,
		RejectedRequests: 1,
		TotalRequests:    4,
	}, got)
}
