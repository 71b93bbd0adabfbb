package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-leave/internal/bootstrap"
	"go-leave/internal/events"
	"go-leave/internal/shared/cachekey"
	"go-leave/internal/shared/contextutil"

	"github.com/go-redis/redismock/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAudit struct {
	mu         sync.Mutex
	entries    []bootstrap.AuditLog
	requestIDs []string
}

func (a *recordingAudit) Log(ctx context.Context, entry bootstrap.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	a.requestIDs = append(a.requestIDs, contextutil.GetRequestID(ctx))
}

type fakeReader struct {
	fetchErrs int
	fetches   int
	msgs      []kafkago.Message
	committed []kafkago.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.fetches++
	if r.fetchErrs > 0 {
		r.fetchErrs--
		return kafkago.Message{}, errors.New("broker unavailable")
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func message(t *testing.T, payload any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.LeaveRequestLifecycleTopic, Value: raw}
}

func TestLifecycleHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("decided event is audited and invalidates the summary", func(t *testing.T) {
		audit := &recordingAudit{}
		rdb, redisMock := redismock.NewClientMock()
		redisMock.ExpectDel(cachekey.DashboardSummary).SetVal(1)
		h := NewLifecycleHandler(audit, rdb, zap.NewNop())

		err := h.Handle(ctx, message(t, events.LeaveRequestDecidedEvent{
			EventType:      events.LeaveRequestDecided,
			RequestID:      "rid-9",
			LeaveRequestID: "lr-1",
			EmployeeID:     "emp-1",
			Status:         "APPROVED",
			TotalDays:      5,
			BalanceAfter:   0,
			OccurredAt:     time.Now(),
		}))

		require.NoError(t, err)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, "LEAVE_REQUEST_DECIDED", audit.entries[0].Action)
		assert.Equal(t, 0, audit.entries[0].Meta["balance_after"])
		assert.Equal(t, "rid-9", audit.requestIDs[0])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("employee deleted works without redis", func(t *testing.T) {
		audit := &recordingAudit{}
		h := NewLifecycleHandler(audit, nil, zap.NewNop())

		err := h.Handle(ctx, message(t, events.EmployeeLifecycleEvent{
			EventType:  events.EmployeeDeleted,
			EmployeeID: "emp-1",
		}))

		require.NoError(t, err)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, "EMPLOYEE_DELETED", audit.entries[0].Action)
	})

	t.Run("malformed and unknown events are skipped", func(t *testing.T) {
		audit := &recordingAudit{}
		h := NewLifecycleHandler(audit, nil, zap.NewNop())

		assert.NoError(t, h.Handle(ctx, kafkago.Message{Value: []byte("{not json")}))
		assert.NoError(t, h.Handle(ctx, message(t, events.Envelope{EventType: "payroll.generated"})))
		assert.Empty(t, audit.entries)
	})

	t.Run("negative cache failure is returned", func(t *testing.T) {
		rdb, redisMock := redismock.NewClientMock()
		redisMock.ExpectDel(cachekey.DashboardSummary).SetErr(errors.New("redis down"))
		audit := &recordingAudit{}
		h := NewLifecycleHandler(audit, rdb, zap.NewNop())

		err := h.Handle(ctx, message(t, events.LeaveRequestSubmittedEvent{
			EventType:      events.LeaveRequestSubmitted,
			LeaveRequestID: "lr-1",
			EmployeeID:     "emp-1",
		}))

		assert.Error(t, err)
		assert.Empty(t, audit.entries, "nothing is audited until the attempt succeeds")
	})
}

func fastRetries(t *testing.T) {
	t.Helper()
	attempts, backoff, fetchBackoff := maxHandleAttempts, retryBackoff, fetchErrorBackoff
	maxHandleAttempts, retryBackoff, fetchErrorBackoff = 3, time.Millisecond, time.Millisecond
	t.Cleanup(func() {
		maxHandleAttempts, retryBackoff, fetchErrorBackoff = attempts, backoff, fetchBackoff
	})
}

func TestConsumeLifecycle(t *testing.T) {
	fastRetries(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, redisMock := redismock.NewClientMock()
	// first message succeeds on its third attempt
	redisMock.ExpectDel(cachekey.DashboardSummary).SetErr(errors.New("redis down"))
	redisMock.ExpectDel(cachekey.DashboardSummary).SetErr(errors.New("redis down"))
	redisMock.ExpectDel(cachekey.DashboardSummary).SetVal(1)
	// second message never succeeds
	for i := 0; i < 3; i++ {
		redisMock.ExpectDel(cachekey.DashboardSummary).SetErr(errors.New("redis down"))
	}

	reader := &fakeReader{
		cancel:    cancel,
		fetchErrs: 1,
		msgs: []kafkago.Message{
			message(t, events.LeaveRequestSubmittedEvent{EventType: events.LeaveRequestSubmitted, LeaveRequestID: "lr-1"}),
			message(t, events.LeaveRequestSubmittedEvent{EventType: events.LeaveRequestSubmitted, LeaveRequestID: "lr-2"}),
			{Value: []byte("garbage")},
		},
	}
	audit := &recordingAudit{}

	ConsumeLifecycle(ctx, reader, NewLifecycleHandler(audit, rdb, zap.NewNop()), zap.NewNop())

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "lr-1", audit.entries[0].Meta["leave_request_id"])
	assert.Len(t, reader.committed, 3, "retried, dropped and skipped messages are all committed")
	assert.Equal(t, 5, reader.fetches, "fetch error, three messages, final cancelled fetch")
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestConsumeLifecycle_StopsDuringBackoff(t *testing.T) {
	fastRetries(t)
	fetchErrorBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{cancel: cancel, fetchErrs: 1}

	done := make(chan struct{})
	go func() {
		ConsumeLifecycle(ctx, reader, NewLifecycleHandler(&recordingAudit{}, nil, zap.NewNop()), zap.NewNop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer kept sleeping after cancellation")
	}
}
