package signal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"yapper-points/services/source"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProjectPostSource interface {
	ProjectPosts(ctx context.Context, projectID int64, since, until time.Time) ([]source.ProjectPost, error)
}

type CheckpointSource interface {
	Checkpoints(ctx context.Context, projectID int64) (map[string]int64, error)
}

type ImpressionsRules struct {
	Pool  int64
	Pools map[int64]int64
	TopN  int
}

func (r ImpressionsRules) PoolFor(projectID int64) int64 {
	if p, ok := r.Pools[projectID]; ok {
		return p
	}
	return r.Pool
}

// ImpressionsAward is one wallet's standing in a project's pool. Rank is
// zero for wallets outside the ranked set.
type ImpressionsAward struct {
	Current  int64
	Previous int64
	Delta    int64
	Rank     int
	Points   int64
}

// Changed reports whether the recorded cumulative total must move.
func (a ImpressionsAward) Changed() bool { return a.Current != a.Previous }

type ImpressionsBoard map[string]ImpressionsAward

// ImpressionsTable caches every project's board for the duration of a run.
type ImpressionsTable map[int64]ImpressionsBoard

func (t ImpressionsTable) Lookup(projectID int64, wallet string) (ImpressionsAward, bool) {
	board, ok := t[projectID]
	if !ok {
		return ImpressionsAward{}, false
	}
	a, ok := board[wallet]
	return a, ok
}

// Allocate ranks wallets by growth and splits pool across the topN with a
// positive delta, proportionally and rounded half away from zero. Wallets
// with a current total and no share still appear with zero points.
func Allocate(current, previous map[string]int64, pool int64, topN int) ImpressionsBoard {
	board := make(ImpressionsBoard, len(current))
	ranked := make([]string, 0, len(current))
	for w, cur := range current {
		prev := previous[w]
		a := ImpressionsAward{Current: cur, Previous: prev, Delta: cur - prev}
		board[w] = a
		if a.Delta > 0 {
			ranked = append(ranked, w)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		di, dj := board[ranked[i]].Delta, board[ranked[j]].Delta
		if di != dj {
			return di > dj
		}
		return ranked[i] < ranked[j]
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	var sum int64
	for _, w := range ranked {
		sum += board[w].Delta
	}
	if sum == 0 {
		return board
	}

	total := decimal.NewFromInt(sum)
	poolDec := decimal.NewFromInt(pool)
	for i, w := range ranked {
		a := board[w]
		a.Rank = i + 1
		a.Points = decimal.NewFromInt(a.Delta).Mul(poolDec).DivRound(total, 0).IntPart()
		board[w] = a
	}
	return board
}

type ImpressionsAggregator struct {
	posts       ProjectPostSource
	checkpoints CheckpointSource
	rules       ImpressionsRules
}

func NewImpressionsAggregator(posts ProjectPostSource, checkpoints CheckpointSource, rules ImpressionsRules) *ImpressionsAggregator {
	return &ImpressionsAggregator{posts: posts, checkpoints: checkpoints, rules: rules}
}

// Precompute builds every project's board across all eligible wallets.
// It must finish before any participant is processed.
func (a *ImpressionsAggregator) Precompute(ctx context.Context, projects []int64, eligible map[string]struct{}, start, until time.Time) (ImpressionsTable, error) {
	table := make(ImpressionsTable, len(projects))
	for _, pid := range projects {
		current, err := a.currentViews(ctx, pid, eligible, start, until)
		if err != nil {
			return nil, fmt.Errorf("project %d views: %w", pid, err)
		}

		previous, err := a.checkpoints.Checkpoints(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("project %d checkpoints: %w", pid, err)
		}

		table[pid] = Allocate(current, previous, a.rules.PoolFor(pid), a.rules.TopN)
	}
	return table, nil
}

func (a *ImpressionsAggregator) currentViews(ctx context.Context, projectID int64, eligible map[string]struct{}, start, until time.Time) (map[string]int64, error) {
	posts, err := a.posts.ProjectPosts(ctx, projectID, start, until)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.Int64("project_id", projectID))
	views := make(map[string]int64)
	for _, p := range posts {
		if _, ok := eligible[p.WalletAddress]; !ok {
			continue
		}

		metrics, ok := source.ParseEngagement(p.EngagementMetrics)
		if !ok {
			log.Warn("unreadable engagement metrics, counting as zero",
				zap.String("wallet_address", p.WalletAddress),
				zap.String("main_tweet_id", p.MainTweetID),
			)
		}

		v, missing := metrics.Views(p.MainTweetID, source.ParseTweetIDs(p.ThreadTweetIDs))
		if missing > 0 {
			log.Debug("tweets without metrics",
				zap.String("wallet_address", p.WalletAddress),
				zap.String("main_tweet_id", p.MainTweetID),
				zap.Int("missing", missing),
			)
		}
		views[p.WalletAddress] += v
	}
	return views, nil
}
