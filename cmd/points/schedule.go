package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run live points passes on ENGINE.SCHEDULE until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		e, stop, err := startEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer stop()

		sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
		if err != nil {
			return err
		}

		_, err = sched.NewJob(
			gocron.CronJob(cfg.Engine.Schedule, false),
			gocron.NewTask(func() {
				if _, err := e.Orchestrator.Run(ctx, false); err != nil {
					zap.L().Error("scheduled points run failed", zap.Error(err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		zap.L().Info("points scheduler started", zap.String("schedule", cfg.Engine.Schedule))
		sched.Start()

		<-ctx.Done()
		zap.L().Info("points scheduler stopping")
		return sched.Shutdown()
	},
}
