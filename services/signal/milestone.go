package signal

type MilestoneRules struct {
	Size  int64
	Bonus int64
}

type MilestoneResult struct {
	Purchases int64
	Previous  int64
	Current   int64
	Crossed   int64
	Points    int64
}

// Milestones counts blocks of Size referred purchases across both lanes and
// all referrals, and awards the blocks completed since the boundary.
func Milestones(act ReferralActivity, rules MilestoneRules) MilestoneResult {
	var now, before int64
	for _, lc := range act.Lanes {
		now += lc.A.Total + lc.B.Total
		before += lc.A.Before() + lc.B.Before()
	}

	res := MilestoneResult{Purchases: now}
	if rules.Size <= 0 {
		return res
	}

	res.Current = now / rules.Size
	res.Previous = before / rules.Size
	if res.Current > res.Previous {
		res.Crossed = res.Current - res.Previous
	}
	res.Points = res.Crossed * rules.Bonus
	return res
}
