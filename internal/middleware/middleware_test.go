package middleware_test

import (
	"context"
	"encoding/json"
	"net"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-leave/internal/middleware"
	"go-leave/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, contextutil.GetRequestID(c.Request.Context()))
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "rid-123")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		assert.Equal(t, "rid-123", w.Body.String())
		assert.Equal(t, "rid-123", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestRateLimitByIP(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitByIP(rate.Limit(1), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS("http://hr.local, http://admin.local"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://admin.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://admin.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func newIdempotentRouter(t *testing.T, calls *int) (*gin.Engine, redismock.ClientMock) {
	t.Helper()
	rdb, redisMock := redismock.NewClientMock()
	r := gin.New()
	r.POST("/items", middleware.Idempotency(rdb, zap.NewNop()), func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return r, redisMock
}

func postItem(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency(t *testing.T) {
	cacheKey := "idemp:/items:k1"

	t.Run("first call runs handler and stores response", func(t *testing.T) {
		calls := 0
		r, redisMock := newIdempotentRouter(t, &calls)

		redisMock.ExpectGet(cacheKey).RedisNil()
		redisMock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(true)
		redisMock.CustomMatch(func(expected, actual []interface{}) error {
			if actual[1] != cacheKey {
				return errors.New("unexpected key")
			}
			raw, ok := actual[2].([]byte)
			if !ok {
				return errors.New("payload is not bytes")
			}
			var stored struct {
				Status int `json:"status"`
			}
			if err := json.Unmarshal(raw, &stored); err != nil || stored.Status != http.StatusCreated {
				return errors.New("unexpected payload")
			}
			return nil
		}).ExpectSet(cacheKey, nil, 24*time.Hour).SetVal("OK")
		redisMock.ExpectDel(cacheKey + ":lock").SetVal(1)

		w := postItem(r, "k1")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, calls)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("replays stored response", func(t *testing.T) {
		calls := 0
		r, redisMock := newIdempotentRouter(t, &calls)

		redisMock.ExpectGet(cacheKey).SetVal(`{"status":201,"body":{"ok":true}}`)

		w := postItem(r, "k1")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replay"))
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		assert.Zero(t, calls)
	})

	t.Run("concurrent duplicate is rejected", func(t *testing.T) {
		calls := 0
		r, redisMock := newIdempotentRouter(t, &calls)

		redisMock.ExpectGet(cacheKey).RedisNil()
		redisMock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(false)

		w := postItem(r, "k1")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Zero(t, calls)
	})

	t.Run("no key passes through", func(t *testing.T) {
		calls := 0
		r, redisMock := newIdempotentRouter(t, &calls)

		w := postItem(r, "")

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, calls)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

// ctxRecorder answers commands in place and records whether each one was
// issued on a cancelled context.
type ctxRecorder struct {
	cancelled map[string]bool
}

func (h *ctxRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *ctxRecorder) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.cancelled[cmd.Name()] = ctx.Err() != nil
		switch c := cmd.(type) {
		case *redis.StringCmd:
			return redis.Nil
		case *redis.BoolCmd:
			c.SetVal(true)
		case *redis.StatusCmd:
			c.SetVal("OK")
		case *redis.IntCmd:
			c.SetVal(1)
		}
		return nil
	}
}

func (h *ctxRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestIdempotency_ClientGoneStillReleasesLock(t *testing.T) {
	rec := &ctxRecorder{cancelled: map[string]bool{}}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	rdb.AddHook(rec)
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.POST("/items", middleware.Idempotency(rdb, zap.NewNop()), func(c *gin.Context) {
		cancel()
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`)).WithContext(ctx)
	req.Header.Set(middleware.IdempotencyHeader, "k2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, rec.cancelled, "set")
	require.Contains(t, rec.cancelled, "del")
	assert.False(t, rec.cancelled["set"], "response stored on a live context")
	assert.False(t, rec.cancelled["del"], "lock released on a live context")
}
