package points

import (
	"strconv"
	"strings"
	"time"

	"yapper-points/pkg/config"
	"yapper-points/pkg/errutil"
	"yapper-points/services/campaign"
	"yapper-points/services/signal"
)

// Rules is the validated, read-only configuration of a run.
type Rules struct {
	Window      campaign.Window
	Excluded    []string
	Content     signal.ContentRules
	Referral    signal.ReferralRules
	Milestone   signal.MilestoneRules
	Impressions signal.ImpressionsRules
	Champion    signal.ChampionRules
	Concurrency int
	LockTTL     time.Duration
}

func NewRules(cfg *config.Config) (Rules, error) {
	var details []errutil.Detail
	fail := func(field, msg string) {
		details = append(details, errutil.Detail{Field: field, Message: msg})
	}

	c := cfg.Campaign
	p := cfg.Points

	window, err := campaign.NewWindow(c.Start, c.End, c.Timezone)
	if err != nil {
		fail("CAMPAIGN", err.Error())
	}

	nonNegative := []struct {
		field string
		value int64
	}{
		{"POINTS.PER_POST", p.PerPost},
		{"POINTS.QUALIFIED_REFERRAL", p.QualifiedReferral},
		{"POINTS.MILESTONE_BONUS", p.MilestoneBonus},
		{"POINTS.IMPRESSIONS_POOL", p.ImpressionsPool},
		{"POINTS.CHAMPION_BONUS", p.ChampionBonus},
	}
	for _, v := range nonNegative {
		if v.value < 0 {
			fail(v.field, "must not be negative")
		}
	}
	if p.ContentTopProjects <= 0 {
		fail("POINTS.CONTENT_TOP_PROJECTS", "must be positive")
	}
	if p.LaneA.Network == "" || p.LaneB.Network == "" {
		fail("POINTS.LANE_A.NETWORK", "both lane networks are required")
	} else if strings.EqualFold(p.LaneA.Network, p.LaneB.Network) {
		fail("POINTS.LANE_B.NETWORK", "must differ from lane A")
	}
	if p.LaneA.Threshold <= 0 || p.LaneB.Threshold <= 0 {
		fail("POINTS.LANE_A.THRESHOLD", "thresholds must be positive")
	}
	if p.MilestoneSize <= 0 {
		fail("POINTS.MILESTONE_SIZE", "must be positive")
	}
	if p.ImpressionsTopN <= 0 {
		fail("POINTS.IMPRESSIONS_TOP_N", "must be positive")
	}

	pools := make(map[int64]int64, len(p.ImpressionsPools))
	for k, v := range p.ImpressionsPools {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			fail("POINTS.IMPRESSIONS_POOLS", "project id "+k+" is not a number")
			continue
		}
		if v < 0 {
			fail("POINTS.IMPRESSIONS_POOLS", "pool for project "+k+" must not be negative")
			continue
		}
		pools[id] = v
	}

	if len(details) > 0 {
		return Rules{}, errutil.ValidationFailed("invalid points configuration", nil, errutil.WithDetails(details...))
	}

	concurrency := cfg.Engine.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return Rules{
		Window:   window,
		Excluded: append([]string(nil), c.ExcludedWallets...),
		Content: signal.ContentRules{
			PerPost:     p.PerPost,
			TopProjects: p.ContentTopProjects,
		},
		Referral: signal.ReferralRules{
			LaneA: signal.Lane{Network: p.LaneA.Network, Threshold: p.LaneA.Threshold},
			LaneB: signal.Lane{Network: p.LaneB.Network, Threshold: p.LaneB.Threshold},
			Bonus: p.QualifiedReferral,
		},
		Milestone: signal.MilestoneRules{
			Size:  p.MilestoneSize,
			Bonus: p.MilestoneBonus,
		},
		Impressions: signal.ImpressionsRules{
			Pool:  p.ImpressionsPool,
			Pools: pools,
			TopN:  p.ImpressionsTopN,
		},
		Champion: signal.ChampionRules{
			Bonus: p.ChampionBonus,
			TopK:  p.ChampionTopK,
		},
		Concurrency: concurrency,
		LockTTL:     cfg.Engine.LockTTL,
	}, nil
}
