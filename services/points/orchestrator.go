package points

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yapper-points/pkg/errutil"
	"yapper-points/pkg/rediskey"
	"yapper-points/pkg/runlock"
	"yapper-points/pkg/task"
	"yapper-points/pkg/taskname"
	"yapper-points/services/eligibility"
	"yapper-points/services/ledger"
	"yapper-points/services/signal"
	"yapper-points/services/source"
	"yapper-points/services/tier"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

type Orchestrator struct {
	rules  Rules
	src    source.Repository
	store  *ledger.Store
	tiers  *tier.Engine
	locker *runlock.Locker
	events task.Enqueuer
	now    Clock
	tracer trace.Tracer

	eligibility *eligibility.Resolver
	content     *signal.ContentAggregator
	impressions *signal.ImpressionsAggregator
	champion    *signal.ChampionEvaluator
}

type Params struct {
	fx.In

	Rules    Rules
	Source   source.Repository
	Store    *ledger.Store
	Tiers    *tier.Engine
	Locker   *runlock.Locker `optional:"true"`
	Enqueuer task.Enqueuer   `optional:"true"`
	Clock    Clock           `optional:"true"`
}

func NewOrchestrator(p Params) *Orchestrator {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	events := p.Enqueuer
	if events == nil {
		events = task.Noop{}
	}
	return &Orchestrator{
		rules:  p.Rules,
		src:    p.Source,
		store:  p.Store,
		tiers:  p.Tiers,
		locker: p.Locker,
		events: events,
		now:    now,
		tracer: otel.Tracer("yapper-points/points"),

		eligibility: eligibility.NewResolver(p.Source, p.Rules.Excluded),
		content:     signal.NewContentAggregator(p.Source, p.Rules.Content),
		impressions: signal.NewImpressionsAggregator(p.Source, p.Store, p.Rules.Impressions),
		champion:    signal.NewChampionEvaluator(p.Store, p.Rules.Champion),
	}
}

// run carries what every participant of one run shares. The two tables are
// computed before participant processing starts and only read afterwards.
type run struct {
	id          string
	dryRun      bool
	now         time.Time
	start       time.Time
	projects    []source.Project
	impressions signal.ImpressionsTable
	champions   signal.ChampionTable
	summary     *Summary
}

// Run performs one pass over every eligible participant. Per-participant
// failures are logged and counted; only setup failures return an error.
func (o *Orchestrator) Run(ctx context.Context, dryRun bool) (*Summary, error) {
	now := o.now().UTC().Truncate(time.Microsecond)
	runID := uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "points.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("run_id", runID),
		zap.Bool("dry_run", dryRun),
	)

	summary := &Summary{RunID: runID, DryRun: dryRun, StartedAt: now}
	w := o.rules.Window

	if !w.Contains(now) {
		zapLog.Info("outside campaign window, skipping run",
			zap.Time("now", now),
			zap.Time("campaign_start", w.Start),
			zap.Time("campaign_end", w.End),
		)
		summary.OutOfWindow = true
		summary.FinishedAt = now
		runsTotal.WithLabelValues("out_of_window").Inc()
		return summary, nil
	}
	summary.FinalDay = w.IsFinalDay(now)

	if !dryRun {
		release, err := o.locker.Acquire(ctx, rediskey.BuildRunLockKey(w.Start.Format("20060102")), runID)
		if errors.Is(err, runlock.ErrHeld) {
			runsTotal.WithLabelValues("locked").Inc()
			return nil, errutil.Conflict("another live run is in progress", err)
		}
		if err != nil {
			return nil, errutil.Unavailable("acquire run lock", err)
		}
		defer release()
	}

	rc, err := o.prepare(ctx, runID, dryRun, now, summary)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if rc == nil {
		zapLog.Info("no eligible participants, nothing to do")
		summary.FinishedAt = o.now().UTC()
		runsTotal.WithLabelValues("empty").Inc()
		return summary, nil
	}

	zapLog.Info("▶️ processing participants",
		zap.Int("participants", summary.Participants),
		zap.Int("projects", len(rc.projects)),
		zap.Bool("final_day", summary.FinalDay),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.rules.Concurrency)
	for _, wallet := range rc.wallets {
		g.Go(func() error {
			if err := o.processParticipant(gctx, rc.run, wallet); err != nil {
				zapLog.Error("participant failed, skipping",
					zap.String("wallet_address", wallet),
					zap.Error(err),
				)
				participantsFailed.Inc()
				summary.addFailure()
			}
			return nil
		})
	}
	_ = g.Wait()
	o.tiers.Wait()

	summary.sortRows()
	summary.FinishedAt = o.now().UTC()

	if !dryRun {
		zapLog.Info("✅ run complete",
			zap.Int("rows_written", len(summary.Rows)),
			zap.Int("checkpoints", summary.Checkpoints),
			zap.Int("tier_changes", len(summary.TierChanges)),
			zap.Int("failed", summary.Failed),
		)
		o.announce(ctx, summary)
	}
	runsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

type prepared struct {
	*run
	wallets []string
}

// prepare resolves eligibility and builds the shared impressions and
// champion tables. It returns nil when nobody is eligible.
func (o *Orchestrator) prepare(ctx context.Context, runID string, dryRun bool, now time.Time, summary *Summary) (*prepared, error) {
	start := o.rules.Window.StartsAt()

	wallets, err := o.eligibility.Resolve(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("resolve eligibility: %w", err)
	}
	summary.Participants = len(wallets)
	if len(wallets) == 0 {
		return nil, nil
	}

	projects, err := o.src.WhitelistedProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	ids := make([]int64, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	eligible := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		eligible[w] = struct{}{}
	}

	impressions, err := o.impressions.Precompute(ctx, ids, eligible, start, now)
	if err != nil {
		return nil, fmt.Errorf("impressions pre-pass: %w", err)
	}

	champions, err := o.champion.Evaluate(ctx, ids, summary.FinalDay)
	if err != nil {
		return nil, fmt.Errorf("champion pre-pass: %w", err)
	}

	return &prepared{
		run: &run{
			id:          runID,
			dryRun:      dryRun,
			now:         now,
			start:       start,
			projects:    projects,
			impressions: impressions,
			champions:   champions,
			summary:     summary,
		},
		wallets: wallets,
	}, nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// processParticipant computes and persists one participant's rows, then
// re-evaluates the tier.
func (o *Orchestrator) processParticipant(ctx context.Context, rc *run, wallet string) error {
	ctx, span := o.tracer.Start(ctx, "points.participant", trace.WithAttributes(
		attribute.String("wallet_address", wallet),
	))
	defer span.End()

	p, err := o.src.Participant(ctx, wallet)
	if err != nil {
		return fmt.Errorf("load participant: %w", err)
	}

	joined := rc.start
	var referralCount int64
	if p != nil {
		joined = p.CreatedAt
		referralCount = p.ReferralCount
	}
	floor := later(joined, rc.start)

	// The participant boundary is the newest row of any scope. Every post and
	// purchase up to it was seen by the run that wrote that row.
	since := floor
	latest, err := o.store.LatestAny(ctx, wallet)
	if err != nil {
		return fmt.Errorf("latest entry: %w", err)
	}
	if latest != nil {
		since = later(latest.CreatedAt, floor)
	}

	act, err := signal.LoadReferralActivity(ctx, o.src, o.rules.Referral.LaneA, o.rules.Referral.LaneB, wallet, rc.start, since, rc.now)
	if err != nil {
		return fmt.Errorf("referral activity: %w", err)
	}
	referral := signal.Qualify(act, o.rules.Referral)
	milestone := signal.Milestones(act, o.rules.Milestone)

	snapshots := make(map[int64]ledger.Snapshot, len(rc.projects))
	for _, proj := range rc.projects {
		snap, err := o.store.Snapshot(ctx, wallet, ledger.ForProject(proj.ID), floor)
		if err != nil {
			return err
		}
		snapshots[proj.ID] = snap
	}

	content, err := o.content.Aggregate(ctx, wallet, since, rc.now)
	if err != nil {
		return fmt.Errorf("content activity: %w", err)
	}

	global := globalShare{referral: referral, milestone: milestone}
	var rows []Row
	checkpoints := 0

	for _, proj := range rc.projects {
		pid := proj.ID
		c := content[pid]
		imp, hasImp := rc.impressions.Lookup(pid, wallet)
		champ, _ := rc.champions.Lookup(pid, wallet)

		var cp *ledger.ImpressionsCheckpoint
		if hasImp && imp.Changed() {
			cp = &ledger.ImpressionsCheckpoint{
				WalletAddress:    wallet,
				ProjectID:        pid,
				TotalImpressions: imp.Current,
				UpdatedAt:        rc.now,
			}
		}

		if c.Points+imp.Points+champ.Points == 0 {
			if cp != nil {
				if !rc.dryRun {
					if err := o.store.SaveCheckpoint(ctx, cp); err != nil {
						return err
					}
				}
				checkpoints++
			}
			continue
		}

		snap := snapshots[pid]
		entry := &ledger.Entry{
			RunID:             rc.id,
			WalletAddress:     wallet,
			ProjectID:         &pid,
			ContentPoints:     c.Points,
			ImpressionsPoints: imp.Points,
			ChampionPoints:    champ.Points,
			PostsCount:        c.Posts,
			TotalImpressions:  imp.Current,
			CreatedAt:         rc.now,
		}
		if !hasImp && snap.Last != nil {
			entry.TotalImpressions = snap.Last.TotalImpressions
		}
		if imp.Rank > 0 {
			rank := imp.Rank
			entry.ImpressionsRank = &rank
		}
		if champ.Rank > 0 {
			rank := champ.Rank
			entry.ChampionRank = &rank
		}
		global.attach(entry)
		entry.NewPoints = entry.CategorySum()
		entry.TotalPoints = snap.Total + entry.NewPoints

		if !rc.dryRun {
			if err := o.store.Append(ctx, entry, cp); err != nil {
				return fmt.Errorf("append %s: %w", entry.Scope(), err)
			}
			rowsWritten.WithLabelValues("project").Inc()
		}
		if cp != nil {
			checkpoints++
		}
		rows = append(rows, rowFrom(entry, proj.Name))
	}

	if global.pending() {
		snap, err := o.store.Snapshot(ctx, wallet, ledger.Global(), floor)
		if err != nil {
			return err
		}
		entry := &ledger.Entry{
			RunID:         rc.id,
			WalletAddress: wallet,
			CreatedAt:     rc.now,
		}
		global.attach(entry)
		entry.NewPoints = entry.CategorySum()
		entry.TotalPoints = snap.Total + entry.NewPoints

		if !rc.dryRun {
			if err := o.store.Append(ctx, entry, nil); err != nil {
				return fmt.Errorf("append global: %w", err)
			}
			rowsWritten.WithLabelValues("global").Inc()
		}
		rows = append(rows, rowFrom(entry, ""))
	}

	rc.summary.addRows(rows, checkpoints)

	return o.applyTier(ctx, rc, wallet, referralCount, rows)
}

func (o *Orchestrator) applyTier(ctx context.Context, rc *run, wallet string, referralCount int64, rows []Row) error {
	total, err := o.store.ParticipantTotal(ctx, wallet)
	if err != nil {
		return fmt.Errorf("participant total: %w", err)
	}
	if rc.dryRun {
		for _, r := range rows {
			total += r.NewPoints
		}
	}

	tr, err := o.tiers.Apply(ctx, tier.Change{
		WalletAddress: wallet,
		TotalPoints:   total,
		ReferralCount: referralCount,
		RunID:         rc.id,
		At:            rc.now,
	}, rc.dryRun)
	if err != nil {
		return err
	}
	if tr.Changed {
		if !rc.dryRun {
			tierChanges.Inc()
		}
		rc.summary.addTierChange(wallet, tr)
	}
	return nil
}

// globalShare carries the participant's referral and milestone points until
// they are attached to exactly one row of the run.
type globalShare struct {
	referral  signal.ReferralResult
	milestone signal.MilestoneResult
	attached  bool
}

func (g *globalShare) pending() bool {
	return !g.attached && g.referral.Points+g.milestone.Points > 0
}

func (g *globalShare) attach(e *ledger.Entry) {
	e.ActiveReferrals = g.referral.Active
	if !g.pending() {
		return
	}
	e.ReferralPoints = g.referral.Points
	e.NewQualifiedReferrals = g.referral.NewlyQualified
	e.MilestonePoints = g.milestone.Points
	e.MilestonesCrossed = g.milestone.Crossed
	e.Metadata = datatypes.JSONMap{
		"qualified_referrals": g.referral.Qualified,
		"referred_purchases":  g.milestone.Purchases,
	}
	g.attached = true
}

func rowFrom(e *ledger.Entry, projectName string) Row {
	return Row{
		WalletAddress:         e.WalletAddress,
		ProjectID:             e.ProjectID,
		ProjectName:           projectName,
		ContentPoints:         e.ContentPoints,
		ReferralPoints:        e.ReferralPoints,
		MilestonePoints:       e.MilestonePoints,
		ImpressionsPoints:     e.ImpressionsPoints,
		ChampionPoints:        e.ChampionPoints,
		NewPoints:             e.NewPoints,
		TotalPoints:           e.TotalPoints,
		PostsCount:            e.PostsCount,
		NewQualifiedReferrals: e.NewQualifiedReferrals,
		MilestonesCrossed:     e.MilestonesCrossed,
	}
}

// RunCompletedPayload is published once a live run has finished.
type RunCompletedPayload struct {
	RunID       string    `json:"run_id"`
	RowsWritten int       `json:"rows_written"`
	TierChanges int       `json:"tier_changes"`
	Failed      int       `json:"failed"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (o *Orchestrator) announce(ctx context.Context, s *Summary) {
	payload, err := json.Marshal(RunCompletedPayload{
		RunID:       s.RunID,
		RowsWritten: len(s.Rows),
		TierChanges: len(s.TierChanges),
		Failed:      s.Failed,
		FinishedAt:  s.FinishedAt,
	})
	if err != nil {
		zap.L().Error("[Asynq] marshal run completed payload", zap.Error(err))
		return
	}
	if _, err := o.events.Enqueue(ctx, asynq.NewTask(taskname.PointsRunCompleted, payload), asynq.MaxRetry(3)); err != nil {
		zap.L().Warn("[Asynq] failed to publish run completed", zap.String("run_id", s.RunID), zap.Error(err))
	}
}
