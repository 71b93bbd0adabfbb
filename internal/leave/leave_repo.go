package leave

import (
	"context"
	"database/sql"
	"time"

	"go-leave/internal/employee"
	"go-leave/internal/shared/dbtx"
	"go-leave/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindAll(ctx context.Context, filter ListFilter) ([]LeaveRequest, error)
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error)
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	FindEmployee(ctx context.Context, employeeID string) (*employee.Employee, error)
	LockEmployee(ctx context.Context, employeeID string) (*employee.Employee, error)
	UpdateEmployeeBalance(ctx context.Context, employeeID string, balance int) error
	UpdateStatus(ctx context.Context, id, status string, decidedAt time.Time) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return dbtx.Bind(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.conn(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *repository) FindAll(ctx context.Context, filter ListFilter) ([]LeaveRequest, error) {
	db := r.conn(ctx).Preload("Employee")
	if filter.EmployeeID != "" {
		db = db.Scopes(scope.Employee(filter.EmployeeID))
	}
	if filter.Status != "" {
		db = db.Scopes(scope.Status(filter.Status))
	}

	var leaves []LeaveRequest
	err := db.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.conn(ctx).Preload("Employee").First(&l, "id = ?", id).Error
	return &l, err
}

// FindByIDForUpdate holds the request row until the transaction ends, so a
// request is decided at most once.
func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) ListActiveByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.conn(ctx).
		Scopes(scope.Employee(employeeID), scope.Status(StatusPending, StatusApproved)).
		Order("start_date ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindEmployee(ctx context.Context, employeeID string) (*employee.Employee, error) {
	var e employee.Employee
	err := r.conn(ctx).First(&e, "id = ?", employeeID).Error
	return &e, err
}

// LockEmployee reads the employee row with FOR UPDATE. Every submission and
// decision for an employee takes this lock first.
func (r *repository) LockEmployee(ctx context.Context, employeeID string) (*employee.Employee, error) {
	var e employee.Employee
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&e, "id = ?", employeeID).Error
	return &e, err
}

func (r *repository) UpdateEmployeeBalance(ctx context.Context, employeeID string, balance int) error {
	res := r.conn(ctx).
		Model(&employee.Employee{}).
		Where("id = ?", employeeID).
		Updates(map[string]any{
			"leave_balance": balance,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string, decidedAt time.Time) error {
	res := r.conn(ctx).
		Model(&LeaveRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"decided_at": decidedAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
