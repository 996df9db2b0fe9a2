package tier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"yapper-points/pkg/db/option"
	"yapper-points/pkg/repository"
	"yapper-points/pkg/task"
	"yapper-points/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Engine struct {
	records  repository.Repository[Record]
	node     *snowflake.Node
	ladder   Ladder
	enqueuer task.Enqueuer

	pending sync.WaitGroup
}

type EngineParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Ladder   Ladder
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewEngine(p EngineParams) *Engine {
	enq := p.Enqueuer
	if enq == nil {
		enq = task.Noop{}
	}
	return &Engine{
		records:  repository.ProvideStore[Record](p.DB),
		node:     p.Node,
		ladder:   p.Ladder,
		enqueuer: enq,
	}
}

func (e *Engine) Ladder() Ladder { return e.ladder }

// Current returns the wallet's newest recorded tier, or the default tier.
func (e *Engine) Current(ctx context.Context, wallet string) (string, error) {
	rec, err := e.records.FindOne(ctx, &Record{WalletAddress: wallet}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
	}))
	if err != nil {
		return "", err
	}
	if rec == nil {
		return e.ladder.Default().Name, nil
	}
	return rec.NewTier, nil
}

// Apply evaluates the wallet's total and appends a record when the tier
// differs from the current one. Dry runs evaluate without writing. The
// engine does not ratchet: a lower total moves the wallet down.
func (e *Engine) Apply(ctx context.Context, c Change, dryRun bool) (Transition, error) {
	current, err := e.Current(ctx, c.WalletAddress)
	if err != nil {
		return Transition{}, fmt.Errorf("current tier: %w", err)
	}

	next := e.ladder.Evaluate(c.TotalPoints).Name
	tr := Transition{From: current, To: next, Changed: current != next}
	if !tr.Changed || dryRun {
		return tr, nil
	}

	at := c.At
	if at.IsZero() {
		at = time.Now()
	}

	rec := &Record{
		ID:            e.node.Generate().Int64(),
		RunID:         c.RunID,
		WalletAddress: c.WalletAddress,
		OldTier:       current,
		NewTier:       next,
		TotalPoints:   c.TotalPoints,
		ReferralCount: c.ReferralCount,
		CreatedAt:     at.UTC().Truncate(time.Microsecond),
	}
	if err := e.records.Create(ctx, rec); err != nil {
		return Transition{}, fmt.Errorf("create tier record: %w", err)
	}

	e.notify(rec)
	return tr, nil
}

// notify enqueues the tier-changed task in the background. Failures are
// logged and never reach the caller.
func (e *Engine) notify(rec *Record) {
	payload, err := json.Marshal(ChangedPayload{
		WalletAddress: rec.WalletAddress,
		OldTier:       rec.OldTier,
		NewTier:       rec.NewTier,
		TotalPoints:   rec.TotalPoints,
		RunID:         rec.RunID,
	})
	if err != nil {
		zap.L().Error("failed to encode tier payload", zap.Error(err))
		return
	}

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		t := asynq.NewTask(taskname.TierChanged, payload, asynq.MaxRetry(3))
		if _, err := e.enqueuer.Enqueue(ctx, t); err != nil {
			zap.L().Warn("failed to enqueue tier change",
				zap.String("wallet_address", rec.WalletAddress),
				zap.String("new_tier", rec.NewTier),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background notifications have been handed off.
func (e *Engine) Wait() {
	e.pending.Wait()
}
