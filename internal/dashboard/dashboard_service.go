package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-leave/internal/shared/cachekey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const summaryTTL = time.Minute

//go:generate mockgen -source=dashboard_service.go -destination=mock/dashboard_service_mock.go -package=mock
type Service interface {
	Summary(ctx context.Context) (SummaryResponse, error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("dashboard.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("dashboard.service")
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

// Summary serves the header counters. Writers drop the cached copy, so the TTL
// only bounds staleness for changes made outside this service.
func (s *service) Summary(ctx context.Context) (SummaryResponse, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cachekey.DashboardSummary).Result()
		switch {
		case err == nil:
			var resp SummaryResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
			s.logger.Warn("dashboard summary cache corrupt", zap.String("key", cachekey.DashboardSummary))
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("dashboard summary cache read failed", zap.Error(err))
		}
	}

	v, err, _ := s.sf.Do(cachekey.DashboardSummary, func() (interface{}, error) {
		resp, err := s.repo.Counts(ctx)
		if err != nil {
			return nil, err
		}

		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(ctx, cachekey.DashboardSummary, jsonData, summaryTTL).Err(); err != nil {
					s.logger.Warn("dashboard summary cache write failed", zap.Error(err))
				}
			}
		}

		return resp, nil
	})
	if err != nil {
		s.logger.Error("dashboard summary failed", zap.Error(err))
		return SummaryResponse{}, err
	}

	return v.(SummaryResponse), nil
}
