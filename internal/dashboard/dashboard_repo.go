package dashboard

import (
	"context"

	"go-leave/internal/employee"
	"go-leave/internal/leave"

	"gorm.io/gorm"
)

//go:generate mockgen -source=dashboard_repo.go -destination=mock/dashboard_repo_mock.go -package=mock
type Repository interface {
	Counts(ctx context.Context) (SummaryResponse, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type statusCount struct {
	Status string
	Total  int64
}

func (r *repository) Counts(ctx context.Context) (SummaryResponse, error) {
	var summary SummaryResponse

	db := r.db.WithContext(ctx)
	if err := db.Model(&employee.Employee{}).Count(&summary.Employees).Error; err != nil {
		return SummaryResponse{}, err
	}

	var rows []statusCount
	err := db.Model(&leave.LeaveRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return SummaryResponse{}, err
	}

	for _, row := range rows {
		switch row.Status {
		case leave.StatusPending:
			summary.PendingRequests = row.Total
		case leave.StatusApproved:
			summary.ApprovedRequests = row.Total
		case leave.StatusRejected:
			summary.RejectedRequests = row.Total
		}
		summary.TotalRequests += row.Total
	}

	return summary, nil
}
