package tier

import (
	"yapper-points/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Module("tier.engine",
	fx.Provide(
		provideLadder,
		NewEngine,
	),
)

func provideLadder(cfg *config.Config) (Ladder, error) {
	return NewLadder(cfg.Tiers)
}
