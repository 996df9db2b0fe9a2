package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"yapper-points/pkg/errutil"

	"gorm.io/datatypes"
)

// Scope says which ledger stream a row belongs to: one project, or the
// participant's global stream for points that are not tied to a project.
type Scope struct {
	projectID int64
	project   bool
}

func Global() Scope { return Scope{} }

func ForProject(id int64) Scope { return Scope{projectID: id, project: true} }

// ScopeOf maps a nullable project column to its scope.
func ScopeOf(projectID *int64) Scope {
	if projectID == nil {
		return Global()
	}
	return ForProject(*projectID)
}

func (s Scope) IsGlobal() bool { return !s.project }

func (s Scope) ProjectID() (int64, bool) { return s.projectID, s.project }

func (s Scope) column() *int64 {
	if !s.project {
		return nil
	}
	id := s.projectID
	return &id
}

func (s Scope) String() string {
	if !s.project {
		return "global"
	}
	return fmt.Sprintf("project:%d", s.projectID)
}

// Entry is one appended row of newly earned points for a (wallet, scope)
// pair. Rows are never updated or deleted.
type Entry struct {
	ID                    int64             `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID                 string            `gorm:"column:run_id;index"`
	WalletAddress         string            `gorm:"column:wallet_address;index:idx_ledger_pair"`
	ProjectID             *int64            `gorm:"column:project_id;index:idx_ledger_pair"`
	ContentPoints         int64             `gorm:"column:content_points"`
	ReferralPoints        int64             `gorm:"column:referral_points"`
	MilestonePoints       int64             `gorm:"column:milestone_points"`
	ChampionPoints        int64             `gorm:"column:champion_points"`
	ImpressionsPoints     int64             `gorm:"column:impressions_points"`
	NewPoints             int64             `gorm:"column:new_points"`
	TotalPoints           int64             `gorm:"column:total_points"`
	TotalImpressions      int64             `gorm:"column:total_impressions"`
	PostsCount            int64             `gorm:"column:posts_count"`
	ActiveReferrals       int64             `gorm:"column:active_referrals"`
	NewQualifiedReferrals int64             `gorm:"column:new_qualified_referrals"`
	MilestonesCrossed     int64             `gorm:"column:milestones_crossed"`
	ImpressionsRank       *int              `gorm:"column:impressions_rank"`
	ChampionRank          *int              `gorm:"column:champion_rank"`
	Metadata              datatypes.JSONMap `gorm:"column:metadata"`
	PreviousHash          string            `gorm:"column:previous_hash"`
	Hash                  string            `gorm:"column:hash"`
	CreatedAt             time.Time         `gorm:"column:created_at;index"`
}

func (Entry) TableName() string { return "yapper_points_ledger" }

func (e *Entry) Scope() Scope { return ScopeOf(e.ProjectID) }

func (e *Entry) CategorySum() int64 {
	return e.ContentPoints + e.ReferralPoints + e.MilestonePoints + e.ChampionPoints + e.ImpressionsPoints
}

// Validate rejects rows that must never reach the table: no wallet,
// nothing earned, or a breakdown that does not add up.
func (e *Entry) Validate() error {
	if e.WalletAddress == "" {
		return errutil.BadRequest("ledger entry without wallet", nil)
	}
	if e.NewPoints <= 0 {
		return errutil.BadRequest("ledger entry must earn points", nil, errutil.WithDetails(
			errutil.Detail{Field: "new_points", Message: fmt.Sprintf("%d", e.NewPoints)},
		))
	}
	if sum := e.CategorySum(); sum != e.NewPoints {
		return errutil.BadRequest("ledger entry breakdown mismatch", nil, errutil.WithDetails(
			errutil.Detail{Field: "new_points", Message: fmt.Sprintf("%d != %d", e.NewPoints, sum)},
		))
	}
	return nil
}

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":                 fmt.Sprintf("%d", e.ID),
		"run_id":             e.RunID,
		"wallet_address":     e.WalletAddress,
		"scope":              e.Scope().String(),
		"content_points":     fmt.Sprintf("%d", e.ContentPoints),
		"referral_points":    fmt.Sprintf("%d", e.ReferralPoints),
		"milestone_points":   fmt.Sprintf("%d", e.MilestonePoints),
		"champion_points":    fmt.Sprintf("%d", e.ChampionPoints),
		"impressions_points": fmt.Sprintf("%d", e.ImpressionsPoints),
		"new_points":         fmt.Sprintf("%d", e.NewPoints),
		"total_points":       fmt.Sprintf("%d", e.TotalPoints),
		"total_impressions":  fmt.Sprintf("%d", e.TotalImpressions),
		"created_at":         e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":      e.PreviousHash,
	}
}

// GenerateHash digests the sorted key=value pairs of HashFields.
func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ImpressionsCheckpoint remembers the cumulative views last observed for a
// (wallet, project) pair, including pairs that earned nothing.
type ImpressionsCheckpoint struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	WalletAddress    string    `gorm:"column:wallet_address;uniqueIndex:idx_impressions_pair"`
	ProjectID        int64     `gorm:"column:project_id;uniqueIndex:idx_impressions_pair"`
	TotalImpressions int64     `gorm:"column:total_impressions"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (ImpressionsCheckpoint) TableName() string { return "yapper_impressions_checkpoints" }

// Snapshot is the incremental boundary for a pair.
type Snapshot struct {
	Since time.Time
	Total int64
	Last  *Entry
}

// Standing is a wallet's all-time points within one project.
type Standing struct {
	WalletAddress string `gorm:"column:wallet_address"`
	Points        int64  `gorm:"column:points"`
}

func Models() []any {
	return []any{&Entry{}, &ImpressionsCheckpoint{}}
}
