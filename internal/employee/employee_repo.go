package employee

import (
	"context"
	"database/sql"

	"go-leave/internal/shared/dbtx"
	"go-leave/internal/shared/scope"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *Employee) error
	FindAll(ctx context.Context, query string) ([]Employee, error)
	FindByID(ctx context.Context, id string) (*Employee, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return dbtx.Bind(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, e *Employee) error {
	return r.conn(ctx).Create(e).Error
}

func (r *repository) FindAll(ctx context.Context, query string) ([]Employee, error) {
	var employees []Employee
	err := r.conn(ctx).
		Scopes(scope.Search(query)).
		Order("created_at DESC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.conn(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

// Delete removes the employee and every leave request it owns. The explicit
// child delete keeps the cascade even where the driver does not enforce
// foreign keys. Returns the number of employees removed.
func (r *repository) Delete(ctx context.Context, id string) (int64, error) {
	if err := r.conn(ctx).Exec("DELETE FROM leave_requests WHERE employee_id = ?", id).Error; err != nil {
		return 0, err
	}

	res := r.conn(ctx).Delete(&Employee{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
