package points

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"yapper-points/services/tier"
)

// Row is one (participant, scope) line of a run, written or not.
type Row struct {
	WalletAddress         string
	ProjectID             *int64
	ProjectName           string
	ContentPoints         int64
	ReferralPoints        int64
	MilestonePoints       int64
	ImpressionsPoints     int64
	ChampionPoints        int64
	NewPoints             int64
	TotalPoints           int64
	PostsCount            int64
	NewQualifiedReferrals int64
	MilestonesCrossed     int64
}

func (r Row) scopeLabel() string {
	if r.ProjectID == nil {
		return "global"
	}
	if r.ProjectName != "" {
		return r.ProjectName
	}
	return fmt.Sprintf("#%d", *r.ProjectID)
}

type TierChange struct {
	WalletAddress string
	tier.Transition
}

type Summary struct {
	RunID        string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   time.Time
	OutOfWindow  bool
	FinalDay     bool
	Participants int
	Failed       int
	Checkpoints  int
	Rows         []Row
	TierChanges  []TierChange

	mu sync.Mutex
}

func (s *Summary) addRows(rows []Row, checkpoints int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = append(s.Rows, rows...)
	s.Checkpoints += checkpoints
}

func (s *Summary) addTierChange(wallet string, tr tier.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TierChanges = append(s.TierChanges, TierChange{WalletAddress: wallet, Transition: tr})
}

func (s *Summary) addFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
}

// sortRows orders rows by wallet, project rows first by id, global last.
func (s *Summary) sortRows() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		a, b := s.Rows[i], s.Rows[j]
		if a.WalletAddress != b.WalletAddress {
			return a.WalletAddress < b.WalletAddress
		}
		if (a.ProjectID == nil) != (b.ProjectID == nil) {
			return b.ProjectID == nil
		}
		if a.ProjectID == nil {
			return false
		}
		return *a.ProjectID < *b.ProjectID
	})
	sort.SliceStable(s.TierChanges, func(i, j int) bool {
		return s.TierChanges[i].WalletAddress < s.TierChanges[j].WalletAddress
	})
}

// Totals sums every category over the run's rows.
func (s *Summary) Totals() Row {
	var t Row
	for _, r := range s.Rows {
		t.ContentPoints += r.ContentPoints
		t.ReferralPoints += r.ReferralPoints
		t.MilestonePoints += r.MilestonePoints
		t.ImpressionsPoints += r.ImpressionsPoints
		t.ChampionPoints += r.ChampionPoints
		t.NewPoints += r.NewPoints
		t.PostsCount += r.PostsCount
		t.NewQualifiedReferrals += r.NewQualifiedReferrals
		t.MilestonesCrossed += r.MilestonesCrossed
	}
	return t
}

// WriteTable renders the per-row breakdown and the run totals.
func (s *Summary) WriteTable(w io.Writer) error {
	mode := "LIVE"
	if s.DryRun {
		mode = "DRY RUN"
	}
	if _, err := fmt.Fprintf(w, "%s run %s at %s\n", mode, s.RunID, s.StartedAt.Format(time.RFC3339)); err != nil {
		return err
	}
	if s.OutOfWindow {
		_, err := fmt.Fprintln(w, "outside campaign window, nothing to do")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"WALLET", "SCOPE", "POSTS", "CONTENT", "REFERRAL", "MILESTONE", "IMPRESSIONS", "CHAMPION", "NEW", "TOTAL"}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, r := range s.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			r.WalletAddress, r.scopeLabel(), r.PostsCount,
			r.ContentPoints, r.ReferralPoints, r.MilestonePoints, r.ImpressionsPoints, r.ChampionPoints,
			r.NewPoints, r.TotalPoints)
	}

	t := s.Totals()
	fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t\n",
		"TOTAL", fmt.Sprintf("%d rows", len(s.Rows)), t.PostsCount,
		t.ContentPoints, t.ReferralPoints, t.MilestonePoints, t.ImpressionsPoints, t.ChampionPoints,
		t.NewPoints, "")
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "participants=%d failed=%d qualified_referrals=%d milestones=%d checkpoints=%d tier_changes=%d final_day=%t\n",
		s.Participants, s.Failed, t.NewQualifiedReferrals, t.MilestonesCrossed, s.Checkpoints, len(s.TierChanges), s.FinalDay)
	if err != nil {
		return err
	}

	for _, c := range s.TierChanges {
		if _, err := fmt.Fprintf(w, "tier %s: %s -> %s\n", c.WalletAddress, c.From, c.To); err != nil {
			return err
		}
	}
	return nil
}
