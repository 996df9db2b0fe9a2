package task

import (
	"context"

	"yapper-points/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("asynq:client",
	fx.Provide(registerClient, NewEnqueuer),
)

// registerClient returns nil when redis is not configured; NewEnqueuer then
// falls back to a no-op enqueuer.
func registerClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := asynq.NewClient(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	)

	if err := client.Ping(); err != nil {
		zap.L().Warn("[Asynq] Asynq unreachable, notifications disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}

	zap.L().Info("[Asynq] Connected to Asynq")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}
