package employee

import (
	"errors"
	"strings"

	employeeerrors "go-leave/internal/employee/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return employeeerrors.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation && pgErr.ConstraintName == "uq_employees_email" {
			return employeeerrors.ErrEmployeeAlreadyExists
		}
	}

	// sqlite reports "UNIQUE constraint failed: employees.email"
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "uq_employees_email") || strings.Contains(errMsg, "employees.email") {
		if strings.Contains(errMsg, "duplicate key value") || strings.Contains(errMsg, "unique constraint failed") {
			return employeeerrors.ErrEmployeeAlreadyExists
		}
	}

	return err
}
