package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go-leave/internal/bootstrap"
	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka/consumer"
	"go-leave/internal/shared/connection"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const consumerGroupID = "go-leave-lifecycle-audit"

func RunConsumer() error {
	logger := zap.L().Named("app.consumer")
	cfg := LoadConfig()

	if cfg.KafkaBroker == "" {
		return errors.New("KAFKA_BROKER is required")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.KafkaBroker},
		GroupTopics: []string{
			events.LeaveRequestLifecycleTopic,
			events.EmployeeLifecycleTopic,
		},
		GroupID:        consumerGroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	handler := consumer.NewLifecycleHandler(bootstrap.NewStdoutAuditLogger(), rdb, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumer.ConsumeLifecycle(ctx, reader, handler, logger)

	logger.Info("consumer shutting down")
	return nil
}
