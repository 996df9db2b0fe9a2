package ledger

import (
	"context"
	"fmt"
	"time"

	"yapper-points/pkg/db/option"
	"yapper-points/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db   *gorm.DB
	node *snowflake.Node

	entries     repository.Repository[Entry]
	checkpoints repository.Repository[ImpressionsCheckpoint]
}

type StoreParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewStore(p StoreParams) *Store {
	return &Store{
		db:          p.DB,
		node:        p.Node,
		entries:     repository.ProvideStore[Entry](p.DB),
		checkpoints: repository.ProvideStore[ImpressionsCheckpoint](p.DB),
	}
}

func scopeOption(scope Scope) option.QueryOption {
	if id, ok := scope.ProjectID(); ok {
		return option.ApplyOperator(option.Condition{Field: "project_id", Operator: option.EQ, Value: id})
	}
	return option.ApplyOperator(option.Condition{Field: "project_id", Operator: option.IsNull})
}

var newestFirst = option.WithSortBy(option.QuerySortBy{
	SortBy:  "created_at",
	OrderBy: "desc",
	Allow:   map[string]bool{"created_at": true},
})

// Latest returns the most recent row for the exact pair, or nil.
func (s *Store) Latest(ctx context.Context, wallet string, scope Scope) (*Entry, error) {
	return s.latest(ctx, s.entries, wallet, scope)
}

func (s *Store) latest(ctx context.Context, repo repository.Repository[Entry], wallet string, scope Scope) (*Entry, error) {
	return repo.FindOne(ctx, &Entry{WalletAddress: wallet}, scopeOption(scope), newestFirst)
}

// LatestAny returns the wallet's most recent row across every scope.
func (s *Store) LatestAny(ctx context.Context, wallet string) (*Entry, error) {
	return s.entries.FindOne(ctx, &Entry{WalletAddress: wallet}, newestFirst)
}

// PairTotal sums new_points over every row of the exact pair.
func (s *Store) PairTotal(ctx context.Context, wallet string, scope Scope) (int64, error) {
	return pairTotal(s.db.WithContext(ctx), wallet, scope)
}

func pairTotal(db *gorm.DB, wallet string, scope Scope) (int64, error) {
	var total int64
	q := db.Model(&Entry{}).
		Select("COALESCE(SUM(new_points), 0)").
		Where("wallet_address = ?", wallet)
	q = scopeOption(scope)(q)
	if err := q.Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ParticipantTotal sums new_points over all of the wallet's rows.
func (s *Store) ParticipantTotal(ctx context.Context, wallet string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(new_points), 0)").
		Where("wallet_address = ?", wallet).
		Scan(&total).Error
	return total, err
}

// Snapshot reads the incremental boundary for a pair. Since falls back to
// joinedAt when the pair has no rows yet.
func (s *Store) Snapshot(ctx context.Context, wallet string, scope Scope, joinedAt time.Time) (Snapshot, error) {
	last, err := s.Latest(ctx, wallet, scope)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest %s: %w", scope, err)
	}

	total, err := s.PairTotal(ctx, wallet, scope)
	if err != nil {
		return Snapshot{}, fmt.Errorf("total %s: %w", scope, err)
	}

	snap := Snapshot{Since: joinedAt, Total: total, Last: last}
	if last != nil {
		snap.Since = last.CreatedAt
	}
	return snap, nil
}

// Checkpoints returns wallet -> last recorded cumulative views for a project.
func (s *Store) Checkpoints(ctx context.Context, projectID int64) (map[string]int64, error) {
	rows, err := s.checkpoints.Find(ctx, &ImpressionsCheckpoint{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.WalletAddress] = r.TotalImpressions
	}
	return out, nil
}

// Standings ranks wallets by all-time points in a project, highest first,
// ties by wallet address.
func (s *Store) Standings(ctx context.Context, projectID int64, limit int) ([]Standing, error) {
	var out []Standing
	q := s.db.WithContext(ctx).Model(&Entry{}).
		Select("wallet_address, COALESCE(SUM(new_points), 0) AS points").
		Where("project_id = ?", projectID).
		Group("wallet_address").
		Having("SUM(new_points) > 0").
		Order("points DESC").
		Order("wallet_address ASC")
	q = option.WithLimit(limit)(q)
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ChampionAwarded lists wallets that already hold a champion award in a project.
func (s *Store) ChampionAwarded(ctx context.Context, projectID int64) (map[string]bool, error) {
	rows, err := s.entries.Find(ctx, &Entry{},
		option.ApplyOperator(option.Condition{Field: "project_id", Operator: option.EQ, Value: projectID}),
		option.ApplyOperator(option.Condition{Field: "champion_points", Operator: option.GT, Value: 0}),
	)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.WalletAddress] = true
	}
	return out, nil
}

// Append writes entry, chained to the pair's previous row, together with an
// optional impressions checkpoint in a single transaction. TotalPoints is
// recomputed from the table so it always includes this row.
func (s *Store) Append(ctx context.Context, entry *Entry, checkpoint *ImpressionsCheckpoint) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := s.entries.WithTrx(tx)
		scope := entry.Scope()

		last, err := s.latest(ctx, entries, entry.WalletAddress, scope)
		if err != nil {
			return err
		}

		prevTotal, err := pairTotal(tx, entry.WalletAddress, scope)
		if err != nil {
			return err
		}

		entry.ID = s.node.Generate().Int64()
		entry.TotalPoints = prevTotal + entry.NewPoints
		entry.PreviousHash = ""
		if last != nil {
			entry.PreviousHash = last.Hash
		}
		entry.Hash = entry.GenerateHash()

		if err := entries.Create(ctx, entry); err != nil {
			return fmt.Errorf("create ledger entry: %w", err)
		}

		if checkpoint != nil {
			if err := saveCheckpoint(ctx, tx, checkpoint); err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveCheckpoint upserts a checkpoint for a pair that earned no row.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *ImpressionsCheckpoint) error {
	return saveCheckpoint(ctx, s.db, cp)
}

func saveCheckpoint(ctx context.Context, db *gorm.DB, cp *ImpressionsCheckpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_impressions", "updated_at"}),
	}).Create(cp).Error
	if err != nil {
		return fmt.Errorf("save impressions checkpoint: %w", err)
	}
	return nil
}

// VerifyChain walks the pair's rows oldest first and checks every hash and
// back-link. It returns the number of rows verified before the first break.
func (s *Store) VerifyChain(ctx context.Context, wallet string, scope Scope) (int, bool, error) {
	rows, err := s.entries.Find(ctx, &Entry{WalletAddress: wallet}, scopeOption(scope),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}))
	if err != nil {
		return 0, false, err
	}

	var lastHash string
	for i, row := range rows {
		if row.PreviousHash != lastHash || row.Hash != row.GenerateHash() {
			zap.L().Warn("ledger chain broken",
				zap.String("wallet_address", wallet),
				zap.String("scope", scope.String()),
				zap.Int64("entry_id", row.ID),
			)
			return i, false, nil
		}
		lastHash = row.Hash
	}

	return len(rows), true, nil
}
