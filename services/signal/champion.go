package signal

import (
	"context"
	"fmt"

	"yapper-points/services/ledger"
)

type StandingsSource interface {
	Standings(ctx context.Context, projectID int64, limit int) ([]ledger.Standing, error)
	ChampionAwarded(ctx context.Context, projectID int64) (map[string]bool, error)
}

type ChampionRules struct {
	Bonus int64
	TopK  int
}

type ChampionAward struct {
	Rank   int
	Points int64
}

type ChampionTable map[int64]map[string]ChampionAward

func (t ChampionTable) Lookup(projectID int64, wallet string) (ChampionAward, bool) {
	a, ok := t[projectID][wallet]
	return a, ok
}

type ChampionEvaluator struct {
	standings StandingsSource
	rules     ChampionRules
}

func NewChampionEvaluator(standings StandingsSource, rules ChampionRules) *ChampionEvaluator {
	return &ChampionEvaluator{standings: standings, rules: rules}
}

// Evaluate ranks each project's all-time scorers and awards the top K. It
// returns an empty table unless finalDay is set. A wallet that already holds
// a champion award for the project keeps its rank slot but is not paid again.
func (e *ChampionEvaluator) Evaluate(ctx context.Context, projects []int64, finalDay bool) (ChampionTable, error) {
	table := make(ChampionTable)
	if !finalDay || e.rules.TopK <= 0 {
		return table, nil
	}

	for _, pid := range projects {
		top, err := e.standings.Standings(ctx, pid, e.rules.TopK)
		if err != nil {
			return nil, fmt.Errorf("project %d standings: %w", pid, err)
		}
		awarded, err := e.standings.ChampionAwarded(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("project %d champions: %w", pid, err)
		}

		awards := make(map[string]ChampionAward, len(top))
		for i, s := range top {
			if awarded[s.WalletAddress] {
				continue
			}
			awards[s.WalletAddress] = ChampionAward{Rank: i + 1, Points: e.rules.Bonus}
		}
		table[pid] = awards
	}
	return table, nil
}
