package main

import (
	"context"
	"fmt"

	"yapper-points/pkg/config"
	"yapper-points/pkg/db"
	"yapper-points/pkg/logger"
	"yapper-points/pkg/redis"
	"yapper-points/pkg/task"
	"yapper-points/services/ledger"
	"yapper-points/services/points"
	"yapper-points/services/source"
	"yapper-points/services/tier"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(configFlagName)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// engine is everything a command may pull out of the container.
type engine struct {
	DB           *gorm.DB
	Orchestrator *points.Orchestrator
	Store        *ledger.Store
	Tiers        *tier.Engine
}

// startEngine builds and starts the container. The returned stop func
// runs the lifecycle OnStop hooks.
func startEngine(ctx context.Context, cfg *config.Config) (*engine, func(), error) {
	var e engine

	app := fx.New(
		fx.Supply(cfg),
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		source.Module,
		ledger.Module,
		tier.Module,
		points.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Populate(&e.DB, &e.Orchestrator, &e.Store, &e.Tiers),
		fxLogger,
	)
	if err := app.Err(); err != nil {
		return nil, nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, nil, err
	}

	stop := func() {
		_ = app.Stop(context.Background())
	}
	return &e, stop, nil
}

var fxLogger = fx.WithLogger(func() fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
