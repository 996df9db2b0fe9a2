package points

import (
	"yapper-points/pkg/runlock"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("points.engine",
	fx.Provide(
		NewRules,
		provideLocker,
		NewOrchestrator,
	),
)

type lockerParams struct {
	fx.In
	Redis *redis.Client `optional:"true"`
	Rules Rules
}

func provideLocker(p lockerParams) *runlock.Locker {
	return runlock.New(p.Redis, p.Rules.LockTTL)
}
