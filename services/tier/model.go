package tier

import "time"

// Record is appended once per tier change. The newest record holds the
// participant's current tier.
type Record struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID         string    `gorm:"column:run_id"`
	WalletAddress string    `gorm:"column:wallet_address;index"`
	OldTier       string    `gorm:"column:old_tier"`
	NewTier       string    `gorm:"column:new_tier"`
	TotalPoints   int64     `gorm:"column:total_points"`
	ReferralCount int64     `gorm:"column:referral_count"`
	CreatedAt     time.Time `gorm:"column:created_at;index"`
}

func (Record) TableName() string { return "yapper_tier_records" }

// Change is the input for one tier evaluation.
type Change struct {
	WalletAddress string
	TotalPoints   int64
	ReferralCount int64
	RunID         string
	At            time.Time
}

// Transition is the outcome of one evaluation.
type Transition struct {
	From    string
	To      string
	Changed bool
}

// ChangedPayload is the body of a tier-changed task.
type ChangedPayload struct {
	WalletAddress string `json:"wallet_address"`
	OldTier       string `json:"old_tier"`
	NewTier       string `json:"new_tier"`
	TotalPoints   int64  `json:"total_points"`
	RunID         string `json:"run_id"`
}

func Models() []any {
	return []any{&Record{}}
}
