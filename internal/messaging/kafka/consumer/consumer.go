package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-leave/internal/bootstrap"
	"go-leave/internal/events"
	"go-leave/internal/shared/cachekey"
	"go-leave/internal/shared/contextutil"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// LifecycleHandler turns employee and leave request events into audit entries
// and drops the cached dashboard summary.
type LifecycleHandler struct {
	audit  bootstrap.AuditLogger
	rdb    *redis.Client
	logger *zap.Logger
}

func NewLifecycleHandler(audit bootstrap.AuditLogger, rdb *redis.Client, logger *zap.Logger) *LifecycleHandler {
	return &LifecycleHandler{audit: audit, rdb: rdb, logger: logger}
}

// Handle returns an error only for failures worth retrying. Malformed and
// unknown events are logged and skipped.
func (h *LifecycleHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.Error("decode lifecycle envelope failed", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}
	if env.RequestID != "" {
		ctx = contextutil.WithRequestID(ctx, env.RequestID)
	}

	entry, ok, err := auditEntry(env.EventType, msg.Value)
	if err != nil {
		h.logger.Error("decode lifecycle event failed", zap.String("event_type", env.EventType), zap.Error(err))
		return nil
	}
	if !ok {
		h.logger.Warn("skipping unknown lifecycle event", zap.String("event_type", env.EventType))
		return nil
	}

	if h.rdb != nil {
		if err := h.rdb.Del(ctx, cachekey.DashboardSummary).Err(); err != nil {
			return fmt.Errorf("invalidate dashboard summary: %w", err)
		}
	}

	h.audit.Log(ctx, entry)
	return nil
}

func auditEntry(eventType string, raw []byte) (bootstrap.AuditLog, bool, error) {
	switch eventType {
	case events.LeaveRequestSubmitted:
		var e events.LeaveRequestSubmittedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return bootstrap.AuditLog{}, false, err
		}
		return bootstrap.AuditLog{
			Action:  "LEAVE_REQUEST_SUBMITTED",
			Message: "leave request submitted",
			Meta: map[string]any{
				"leave_request_id": e.LeaveRequestID,
				"employee_id":      e.EmployeeID,
				"start_date":       e.StartDate,
				"end_date":         e.EndDate,
				"total_days":       e.TotalDays,
			},
		}, true, nil
	case events.LeaveRequestDecided:
		var e events.LeaveRequestDecidedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return bootstrap.AuditLog{}, false, err
		}
		return bootstrap.AuditLog{
			Action:  "LEAVE_REQUEST_DECIDED",
			Message: "leave request " + e.Status,
			Meta: map[string]any{
				"leave_request_id": e.LeaveRequestID,
				"employee_id":      e.EmployeeID,
				"status":           e.Status,
				"total_days":       e.TotalDays,
				"balance_after":    e.BalanceAfter,
			},
		}, true, nil
	case events.EmployeeCreated, events.EmployeeDeleted:
		var e events.EmployeeLifecycleEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return bootstrap.AuditLog{}, false, err
		}
		action := "EMPLOYEE_CREATED"
		if eventType == events.EmployeeDeleted {
			action = "EMPLOYEE_DELETED"
		}
		return bootstrap.AuditLog{
			Action:  action,
			Message: eventType,
			Meta: map[string]any{
				"employee_id": e.EmployeeID,
				"email":       e.Email,
			},
		}, true, nil
	}
	return bootstrap.AuditLog{}, false, nil
}

var (
	maxHandleAttempts = 3
	retryBackoff      = 500 * time.Millisecond
	fetchErrorBackoff = time.Second
)

// ConsumeLifecycle reads until ctx is cancelled. A failing message is retried
// in place with a growing backoff; after maxHandleAttempts it is logged and
// committed so the partition keeps moving.
func ConsumeLifecycle(
	ctx context.Context,
	reader MessageReader,
	handler *LifecycleHandler,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.lifecycle")
	log.Info("lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("lifecycle consumer stopped")
				return
			}
			log.Error("fetch lifecycle message failed", zap.Error(err))
			if !sleep(ctx, fetchErrorBackoff) {
				log.Info("lifecycle consumer stopped")
				return
			}
			continue
		}

		if err := handleWithRetry(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				log.Info("lifecycle consumer stopped")
				return
			}
			log.Error("dropping lifecycle message after retries",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempts", maxHandleAttempts),
				zap.Error(err),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit lifecycle message failed", zap.Error(err))
			continue
		}
	}
}

func handleWithRetry(ctx context.Context, handler *LifecycleHandler, msg kafkago.Message) error {
	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		if err = handler.Handle(ctx, msg); err == nil {
			return nil
		}
		handler.logger.Warn("handle lifecycle message failed",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < maxHandleAttempts && !sleep(ctx, time.Duration(attempt)*retryBackoff) {
			return ctx.Err()
		}
	}
	return err
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
