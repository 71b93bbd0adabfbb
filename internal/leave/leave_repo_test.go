package leave_test

import (
	"context"
	"database/sql"
	"testing"

	"go-leave/internal/employee"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/connection"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type store struct {
	gdb      *gorm.DB
	sqlDB    *sql.DB
	repo     leave.Repository
	employee employee.Repository
	service  leave.Service
}

func setupStore(t *testing.T) *store {
	t.Helper()

	gdb, err := connection.ConnectSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&employee.Employee{}, &leave.LeaveRequest{}, &kafka.OutboxEvent{}))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := leave.NewRepository(gdb)
	return &store{
		gdb:      gdb,
		sqlDB:    sqlDB,
		repo:     repo,
		employee: employee.NewRepository(gdb),
		service:  leave.NewServiceWithOutbox(sqlDB, repo, kafka.NewOutboxRepository(gdb), nil),
	}
}

func (s *store) seedEmployee(t *testing.T, joining string, balance int) employee.Employee {
	t.Helper()
	empl := newEmployee(t, joining, balance)
	empl.Email = uuid.NewString() + "@company.com"
	require.NoError(t, s.employee.Create(context.Background(), &empl))
	return empl
}

func (s *store) balance(t *testing.T, id string) int {
	t.Helper()
	e, err := s.employee.FindByID(context.Background(), id)
	require.NoError(t, err)
	return e.LeaveBalance
}

func TestLeaveLifecycle_SQLite(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	empl := s.seedEmployee(t, "2024-01-01", 10)
	employeeID := empl.ID.String()

	first, err := s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: employeeID, StartDate: "2024-03-01", EndDate: "2024-03-05"})
	require.NoError(t, err)
	assert.Equal(t, 10, s.balance(t, employeeID), "submission only checks the balance")

	_, err = s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: employeeID, StartDate: "2024-03-04", EndDate: "2024-03-10"})
	assert.ErrorIs(t, err, leaveerrors.ErrLeaveOverlap)

	_, err = s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: employeeID, StartDate: "2024-04-01", EndDate: "2024-04-11"})
	assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)

	approved, err := s.service.Approve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, 5, s.balance(t, employeeID))

	_, err = s.service.Reject(ctx, first.ID)
	assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)

	stored, err := s.repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, stored.Status)
	assert.NotNil(t, stored.DecidedAt)
	assert.Equal(t, empl.Name, stored.Employee.Name)

	pending, err := kafka.NewOutboxRepository(s.gdb).ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	history, err := s.service.History(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, 5, history.LeaveBalance)
	assert.Len(t, history.Requests, 1)
}

func TestApproveWithDroppedBalance_SQLite(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	empl := s.seedEmployee(t, "2024-01-01", 10)
	employeeID := empl.ID.String()

	first, err := s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: employeeID, StartDate: "2024-03-01", EndDate: "2024-03-05"})
	require.NoError(t, err)
	second, err := s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: employeeID, StartDate: "2024-05-01", EndDate: "2024-05-08"})
	require.NoError(t, err)

	_, err = s.service.Approve(ctx, first.ID)
	require.NoError(t, err)

	_, err = s.service.Approve(ctx, second.ID)
	assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)

	stored, err := s.repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
	assert.Nil(t, stored.DecidedAt)
	assert.Equal(t, 5, s.balance(t, employeeID))

	_, err = s.service.Reject(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, s.balance(t, employeeID))
}

func TestRepository_FiltersAndActive_SQLite(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	a := s.seedEmployee(t, "2024-01-01", 24)
	b := s.seedEmployee(t, "2024-01-01", 24)
	require.NotEqual(t, a.Email, b.Email)

	ra, err := s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: a.ID.String(), StartDate: "2024-03-01", EndDate: "2024-03-02"})
	require.NoError(t, err)
	_, err = s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: a.ID.String(), StartDate: "2024-04-01", EndDate: "2024-04-02"})
	require.NoError(t, err)
	_, err = s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: b.ID.String(), StartDate: "2024-03-01", EndDate: "2024-03-02"})
	require.NoError(t, err, "ranges only conflict within one employee")

	_, err = s.service.Reject(ctx, ra.ID)
	require.NoError(t, err)

	all, err := s.repo.FindAll(ctx, leave.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rejected, err := s.repo.FindAll(ctx, leave.ListFilter{Status: leave.StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, ra.ID, rejected[0].ID.String())

	active, err := s.repo.ListActiveByEmployee(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: a.ID.String(), StartDate: "2024-03-02", EndDate: "2024-03-03"})
	assert.NoError(t, err, "a rejected range can be requested again")
}

func TestEmployeeDeleteCascades_SQLite(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	empl := s.seedEmployee(t, "2024-01-01", 24)

	_, err := s.service.Submit(ctx, leave.CreateLeaveRequest{EmployeeID: empl.ID.String(), StartDate: "2024-03-01", EndDate: "2024-03-02"})
	require.NoError(t, err)

	employeeService := employee.NewService(s.sqlDB, s.employee, nil)
	require.NoError(t, employeeService.Delete(ctx, empl.ID.String()))

	var count int64
	require.NoError(t, s.gdb.Model(&leave.LeaveRequest{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = s.service.History(ctx, empl.ID.String())
	assert.ErrorIs(t, err, leaveerrors.ErrEmployeeNotFound)
}
