package leave

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/cachekey"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, req CreateLeaveRequest) (LeaveResponse, error)
	Approve(ctx context.Context, id string) (LeaveResponse, error)
	Reject(ctx context.Context, id string) (LeaveResponse, error)
	Decide(ctx context.Context, id, decision string) (LeaveResponse, error)
	GetAll(ctx context.Context, filter ListFilter) ([]LeaveResponse, error)
	GetByID(ctx context.Context, id string) (LeaveResponse, error)
	History(ctx context.Context, employeeID string) (HistoryResponse, error)
	Report(ctx context.Context, employeeID string) ([]byte, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
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
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: outboxRepo,
		rdb:    rdb,
		logger: l,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Submit(ctx context.Context, req CreateLeaveRequest) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("submit leave requested",
		zap.String("request_id", rid),
		zap.String("employee_id", req.EmployeeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if _, err := uuid.Parse(req.EmployeeID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("submit leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	empl, err := qtx.LockEmployee(ctx, req.EmployeeID)
	if err != nil {
		log.Warn("submit leave employee lookup failed", zap.String("employee_id", req.EmployeeID), zap.Error(err))
		return LeaveResponse{}, mapEmployeeLookupError(err)
	}

	existing, err := qtx.ListActiveByEmployee(ctx, req.EmployeeID)
	if err != nil {
		log.Error("submit leave active requests lookup failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	l, err := SubmitRequest(*empl, existing, startDate, endDate, req.Reason, s.now())
	if err != nil {
		log.Warn("submit leave rejected by rules",
			zap.String("employee_id", req.EmployeeID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
			zap.Int("leave_balance", empl.LeaveBalance),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	if err := qtx.Create(ctx, l); err != nil {
		log.Error("submit leave persist failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	if err := s.enqueue(ctx, tx, l.ID.String(), events.LeaveRequestSubmittedEvent{
		EventType:      events.LeaveRequestSubmitted,
		RequestID:      rid,
		LeaveRequestID: l.ID.String(),
		EmployeeID:     req.EmployeeID,
		StartDate:      l.StartDate.Format(dateLayout),
		EndDate:        l.EndDate.Format(dateLayout),
		TotalDays:      l.TotalDays,
		OccurredAt:     l.CreatedAt,
	}, events.LeaveRequestSubmitted); err != nil {
		log.Error("submit leave outbox persist failed", zap.String("leave_id", l.ID.String()), zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("submit leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	s.invalidateSummary(ctx)
	log.Info("submit leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.Int("total_days", l.TotalDays),
	)

	l.Employee = empl
	return mapToResponse(*l), nil
}

func (s *service) Approve(ctx context.Context, id string) (LeaveResponse, error) {
	return s.decide(ctx, id, DecisionApprove)
}

func (s *service) Reject(ctx context.Context, id string) (LeaveResponse, error) {
	return s.decide(ctx, id, DecisionReject)
}

func (s *service) Decide(ctx context.Context, id, decision string) (LeaveResponse, error) {
	d, err := ParseDecision(decision)
	if err != nil {
		return LeaveResponse{}, err
	}
	return s.decide(ctx, id, d)
}

// decide applies the decision in one transaction: the request row and the
// employee row are locked, the balance is re-checked against the locked row,
// and the deduction and status change are committed together.
func (s *service) decide(ctx context.Context, id string, decision Decision) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("decide leave requested",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("decision", string(decision)),
	)

	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByIDForUpdate(ctx, id)
	if err != nil {
		log.Warn("decide leave lookup failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, mapLeaveLookupError(err)
	}

	empl, err := qtx.LockEmployee(ctx, l.EmployeeID.String())
	if err != nil {
		log.Warn("decide leave employee lookup failed", zap.String("employee_id", l.EmployeeID.String()), zap.Error(err))
		return LeaveResponse{}, mapEmployeeLookupError(err)
	}

	decided, updated, err := DecideRequest(*l, *empl, decision, s.now())
	if err != nil {
		log.Warn("decide leave rejected by rules",
			zap.String("leave_id", id),
			zap.String("status", l.Status),
			zap.String("decision", string(decision)),
			zap.Int("leave_balance", empl.LeaveBalance),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	if updated.LeaveBalance != empl.LeaveBalance {
		if err := qtx.UpdateEmployeeBalance(ctx, updated.ID.String(), updated.LeaveBalance); err != nil {
			log.Error("decide leave balance update failed", zap.String("employee_id", updated.ID.String()), zap.Error(err))
			return LeaveResponse{}, mapEmployeeLookupError(err)
		}
	}

	if err := qtx.UpdateStatus(ctx, id, decided.Status, *decided.DecidedAt); err != nil {
		log.Error("decide leave status update failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, mapLeaveLookupError(err)
	}

	if err := s.enqueue(ctx, tx, id, events.LeaveRequestDecidedEvent{
		EventType:      events.LeaveRequestDecided,
		RequestID:      rid,
		LeaveRequestID: id,
		EmployeeID:     updated.ID.String(),
		Status:         decided.Status,
		TotalDays:      decided.TotalDays,
		BalanceAfter:   updated.LeaveBalance,
		OccurredAt:     *decided.DecidedAt,
	}, events.LeaveRequestDecided); err != nil {
		log.Error("decide leave outbox persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("decide leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	s.invalidateSummary(ctx)
	log.Info("decide leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("status", decided.Status),
		zap.Int("balance_after", updated.LeaveBalance),
	)

	decided.Employee = &updated
	return mapToResponse(decided), nil
}

func (s *service) GetAll(ctx context.Context, filter ListFilter) ([]LeaveResponse, error) {
	if filter.EmployeeID != "" {
		if _, err := uuid.Parse(filter.EmployeeID); err != nil {
			return nil, leaveerrors.ErrInvalidEmployeeID
		}
	}
	if filter.Status != "" {
		status, err := parseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}

	leaves, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("get all leaves failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}
	return mapToListResponse(leaves), nil
}

func (s *service) GetByID(ctx context.Context, id string) (LeaveResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return LeaveResponse{}, mapLeaveLookupError(err)
	}
	return mapToResponse(*l), nil
}

func (s *service) History(ctx context.Context, employeeID string) (HistoryResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return HistoryResponse{}, leaveerrors.ErrInvalidEmployeeID
	}

	empl, err := s.repo.FindEmployee(ctx, employeeID)
	if err != nil {
		return HistoryResponse{}, mapEmployeeLookupError(err)
	}

	leaves, err := s.repo.FindAll(ctx, ListFilter{EmployeeID: employeeID})
	if err != nil {
		s.logger.Error("leave history lookup failed", zap.String("employee_id", employeeID), zap.Error(err))
		return HistoryResponse{}, mapRepositoryError(err)
	}

	return HistoryResponse{
		EmployeeID:   empl.ID.String(),
		Name:         empl.Name,
		Email:        empl.Email,
		Department:   empl.Department,
		LeaveBalance: empl.LeaveBalance,
		Requests:     mapToListResponse(leaves),
	}, nil
}

func (s *service) Report(ctx context.Context, employeeID string) ([]byte, error) {
	history, err := s.History(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	pdf, err := buildLeaveReportPDF(history, s.now())
	if err != nil {
		s.logger.Error("leave report render failed", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	return pdf, nil
}

func (s *service) enqueue(ctx context.Context, tx *sql.Tx, aggregateID string, payload any, eventType string) error {
	if s.outbox == nil {
		return nil
	}

	event, err := kafka.NewOutboxEvent(
		"leave_request",
		aggregateID,
		eventType,
		events.LeaveRequestLifecycleTopic,
		contextutil.GetRequestID(ctx),
		payload,
	)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, event)
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

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func parseStatus(v string) (string, error) {
	switch status := strings.ToUpper(strings.TrimSpace(v)); status {
	case StatusPending, StatusApproved, StatusRejected:
		return status, nil
	default:
		return "", leaveerrors.ErrInvalidStatus
	}
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:         l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		StartDate:  l.StartDate.Format(dateLayout),
		EndDate:    l.EndDate.Format(dateLayout),
		TotalDays:  l.TotalDays,
		Reason:     l.Reason,
		Status:     l.Status,
	}
	if l.Employee != nil {
		resp.EmployeeName = l.Employee.Name
	}
	if !l.CreatedAt.IsZero() {
		resp.CreatedAt = l.CreatedAt.UTC().Format(time.RFC3339)
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
