package app

import (
	"database/sql"
	"errors"

	"go-leave/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildApp connects the stores named in cfg and registers every route on
// router. The returned func releases the connections.
func BuildApp(router *gin.Engine, cfg Config) (func(), error) {
	logger := zap.L().Named("app")

	gormDB, err := connection.ConnectDB(cfg.DB, 5)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established", zap.String("driver", cfg.DB.Driver))

	if cfg.AutoMigrate {
		if err := Migrate(gormDB); err != nil {
			return nil, err
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set, running without cache and idempotency")
	}

	registerModules(router, cfg, sqlDB, gormDB, rdb)

	cleanup := func() {
		closeAll(logger, sqlDB, rdb)
	}
	return cleanup, nil
}

func closeAll(logger *zap.Logger, sqlDB *sql.DB, rdb *redis.Client) {
	var errs []error
	if rdb != nil {
		errs = append(errs, rdb.Close())
	}
	errs = append(errs, sqlDB.Close())
	if err := errors.Join(errs...); err != nil {
		logger.Warn("close connections", zap.Error(err))
	}
}
