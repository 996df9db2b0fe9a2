package source

import (
	"yapper-points/pkg/config"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("source.repository",
	fx.Provide(ProvideRepository),
)

func ProvideRepository(db *gorm.DB, cfg *config.Config) Repository {
	return NewRepository(db, PurchaseFilter{
		Status:   cfg.Points.PaymentStatus,
		Networks: []string{cfg.Points.LaneA.Network, cfg.Points.LaneB.Network},
	})
}
