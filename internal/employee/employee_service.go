package employee

import (
	"context"
	"database/sql"
	"strings"
	"time"

	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/cachekey"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=employee_service.go -destination=mock/employee_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error)
	GetAll(ctx context.Context, query string) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, id string) (EmployeeResponse, error)
	GetBalance(ctx context.Context, id string) (BalanceResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, rdb, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: outboxRepo,
		rdb:    rdb,
		logger: l,
	}
}

func (s *service) Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create employee requested",
		zap.String("request_id", rid),
		zap.String("email", req.Email),
		zap.String("department", req.Department),
	)

	empl, err := buildEmployee(req)
	if err != nil {
		log.Warn("create employee validation failed", zap.Error(err))
		return EmployeeResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("create employee begin tx failed", zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, empl); err != nil {
		log.Error("create employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if err := s.enqueue(ctx, tx, events.EmployeeLifecycleEvent{
		EventType:  events.EmployeeCreated,
		RequestID:  rid,
		EmployeeID: empl.ID.String(),
		Email:      empl.Email,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Error("create employee outbox persist failed", zap.String("employee_id", empl.ID.String()), zap.Error(err))
		return EmployeeResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("create employee commit failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	s.invalidateSummary(ctx)
	log.Info("create employee success",
		zap.String("request_id", rid),
		zap.String("employee_id", empl.ID.String()),
	)

	return mapToResponse(*empl), nil
}

func (s *service) GetAll(ctx context.Context, query string) ([]EmployeeResponse, error) {
	s.logger.Debug("get all employees requested", zap.String("q", query))
	employees, err := s.repo.FindAll(ctx, query)
	if err != nil {
		s.logger.Error("get all employees failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}

	return mapToListResponse(employees), nil
}

func (s *service) GetByID(ctx context.Context, id string) (EmployeeResponse, error) {
	empl, err := s.find(ctx, id)
	if err != nil {
		return EmployeeResponse{}, err
	}
	return mapToResponse(*empl), nil
}

func (s *service) GetBalance(ctx context.Context, id string) (BalanceResponse, error) {
	empl, err := s.find(ctx, id)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{
		EmployeeID:   empl.ID.String(),
		Name:         empl.Name,
		LeaveBalance: empl.LeaveBalance,
	}, nil
}

func (s *service) find(ctx context.Context, id string) (*Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, employeeerrors.ErrInvalidEmployeeID
	}

	empl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("get employee by id failed", zap.String("employee_id", id), zap.Error(err))
		return nil, mapRepositoryError(err)
	}
	return empl, nil
}

// Delete removes the employee together with all of its leave requests,
// pending ones included.
func (s *service) Delete(ctx context.Context, id string) error {
	rid := contextutil.GetRequestID(ctx)
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("delete employee requested", zap.String("employee_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return employeeerrors.ErrInvalidEmployeeID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("delete employee begin tx failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	deleted, err := s.repo.WithTx(tx).Delete(ctx, id)
	if err != nil {
		log.Error("delete employee failed", zap.Error(err))
		return mapRepositoryError(err)
	}
	if deleted == 0 {
		return employeeerrors.ErrEmployeeNotFound
	}

	if err := s.enqueue(ctx, tx, events.EmployeeLifecycleEvent{
		EventType:  events.EmployeeDeleted,
		RequestID:  rid,
		EmployeeID: id,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Error("delete employee outbox persist failed", zap.String("employee_id", id), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("delete employee commit failed", zap.Error(err))
		return err
	}

	s.invalidateSummary(ctx)
	log.Info("delete employee success", zap.String("employee_id", id))
	return nil
}

func (s *service) enqueue(ctx context.Context, tx *sql.Tx, event events.EmployeeLifecycleEvent) error {
	if s.outbox == nil {
		return nil
	}

	outboxEvent, err := kafka.NewOutboxEvent("employee", event.EmployeeID, event.EventType, events.EmployeeLifecycleTopic, event.RequestID, event)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, outboxEvent)
}

func (s *service) invalidateSummary(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cachekey.DashboardSummary).Err(); err != nil {
		s.logger.Error("failed to invalidate dashboard summary cache",
			zap.Error(err),
			zap.String("key", cachekey.DashboardSummary),
		)
	}
}

func buildEmployee(req CreateEmployeeRequest) (*Employee, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	department := strings.TrimSpace(req.Department)
	if name == "" || email == "" || department == "" {
		return nil, employeeerrors.ErrMissingRequiredFields
	}

	joiningDate, err := time.Parse(dateLayout, req.JoiningDate)
	if err != nil {
		return nil, employeeerrors.ErrInvalidJoiningDate
	}

	balance := DefaultLeaveBalance
	if req.LeaveBalance != nil {
		balance = *req.LeaveBalance
	}
	if balance < 0 || balance > MaxLeaveBalance {
		return nil, employeeerrors.ErrInvalidLeaveBalance
	}

	return &Employee{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Department:   department,
		JoiningDate:  joiningDate,
		LeaveBalance: balance,
	}, nil
}

func mapToResponse(empl Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:           empl.ID.String(),
		Name:         empl.Name,
		Email:        empl.Email,
		Department:   empl.Department,
		JoiningDate:  empl.JoiningDate.Format(dateLayout),
		LeaveBalance: empl.LeaveBalance,
	}
	if !empl.CreatedAt.IsZero() {
		resp.CreatedAt = empl.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func mapToListResponse(employees []Employee) []EmployeeResponse {
	resp := make([]EmployeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = mapToResponse(e)
	}
	return resp
}
