package signal

import (
	"context"
	"sort"
	"strings"
	"time"

	"yapper-points/services/source"
)

type PurchaseSource interface {
	ReferredBy(ctx context.Context, wallet string) ([]string, error)
	PurchaseTallies(ctx context.Context, buyers []string, start, since, until time.Time) ([]source.PurchaseTally, error)
}

type Lane struct {
	Network   string
	Threshold int64
}

// Counts is a purchase count since campaign start and the part of it made
// after the snapshot boundary.
type Counts struct {
	Total  int64
	Recent int64
}

// Before is the count as of the snapshot boundary.
func (c Counts) Before() int64 {
	if c.Recent > c.Total {
		return 0
	}
	return c.Total - c.Recent
}

type LaneCounts struct {
	A Counts
	B Counts
}

// ReferralActivity holds each direct referral's lane counts for one run.
type ReferralActivity struct {
	Referred []string
	Lanes    map[string]LaneCounts
}

// LoadReferralActivity reads the wallet's referrals and their purchase
// counts in both lanes. Purchases outside the two lane networks are ignored.
func LoadReferralActivity(ctx context.Context, src PurchaseSource, laneA, laneB Lane, wallet string, start, since, until time.Time) (ReferralActivity, error) {
	referred, err := src.ReferredBy(ctx, wallet)
	if err != nil {
		return ReferralActivity{}, err
	}
	sort.Strings(referred)

	act := ReferralActivity{Referred: referred, Lanes: make(map[string]LaneCounts, len(referred))}
	if len(referred) == 0 {
		return act, nil
	}

	tallies, err := src.PurchaseTallies(ctx, referred, start, since, until)
	if err != nil {
		return ReferralActivity{}, err
	}

	for _, t := range tallies {
		buyer := strings.ToLower(t.Buyer)
		lc := act.Lanes[buyer]
		c := Counts{Total: t.Total, Recent: t.Recent}
		switch t.Network {
		case laneA.Network:
			lc.A = add(lc.A, c)
		case laneB.Network:
			lc.B = add(lc.B, c)
		default:
			continue
		}
		act.Lanes[buyer] = lc
	}
	return act, nil
}

func add(a, b Counts) Counts {
	return Counts{Total: a.Total + b.Total, Recent: a.Recent + b.Recent}
}

type ReferralRules struct {
	LaneA Lane
	LaneB Lane
	Bonus int64
}

type ReferralResult struct {
	Active         int64
	NewlyQualified int64
	Points         int64
	Qualified      []string
}

func (r ReferralRules) qualifies(a, b int64) bool {
	return a >= r.LaneA.Threshold || b >= r.LaneB.Threshold
}

// Qualify awards the bonus for every referral that meets either lane's
// threshold now but met neither at the snapshot boundary. Qualification is
// a single transition per referral, never one per lane.
func Qualify(act ReferralActivity, rules ReferralRules) ReferralResult {
	var res ReferralResult
	for _, w := range act.Referred {
		lc := act.Lanes[w]
		now := rules.qualifies(lc.A.Total, lc.B.Total)
		if !now {
			continue
		}
		res.Active++
		if !rules.qualifies(lc.A.Before(), lc.B.Before()) {
			res.NewlyQualified++
			res.Qualified = append(res.Qualified, w)
		}
	}
	res.Points = res.NewlyQualified * rules.Bonus
	return res
}
