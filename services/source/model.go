package source

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// The tables below belong to the web application. The engine only reads them.

type Participant struct {
	WalletAddress string    `gorm:"column:wallet_address;primaryKey"`
	ReferralCount int64     `gorm:"column:referral_count"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (Participant) TableName() string { return "users" }

type SocialConnection struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	WalletAddress string    `gorm:"column:wallet_address;index"`
	IsConnected   bool      `gorm:"column:is_connected"`
	TwitterHandle string    `gorm:"column:twitter_handle"`
	DisplayName   string    `gorm:"column:display_name"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (SocialConnection) TableName() string { return "twitter_connections" }

type Purchase struct {
	ID                 int64           `gorm:"column:id;primaryKey"`
	BuyerWalletAddress string          `gorm:"column:buyer_wallet_address;index"`
	PaymentStatus      string          `gorm:"column:payment_status"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric"`
	Network            string          `gorm:"column:network"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
}

func (Purchase) TableName() string { return "content_purchases" }

type Referral struct {
	ID                    int64     `gorm:"column:id;primaryKey"`
	ReferrerWalletAddress string    `gorm:"column:referrer_wallet_address;index"`
	ReferredWalletAddress string    `gorm:"column:referred_wallet_address"`
	CreatedAt             time.Time `gorm:"column:created_at"`
}

func (Referral) TableName() string { return "user_referrals" }

type Project struct {
	ID                    int64  `gorm:"column:id;primaryKey"`
	Name                  string `gorm:"column:name"`
	IsCampaignWhitelisted bool   `gorm:"column:is_campaign_whitelisted"`
}

func (Project) TableName() string { return "projects" }

type Campaign struct {
	ID        int64 `gorm:"column:id;primaryKey"`
	ProjectID int64 `gorm:"column:project_id;index"`
}

func (Campaign) TableName() string { return "campaigns" }

type Content struct {
	ID         int64 `gorm:"column:id;primaryKey"`
	CampaignID int64 `gorm:"column:campaign_id;index"`
}

func (Content) TableName() string { return "contents" }

type ContentPost struct {
	ID                int64          `gorm:"column:id;primaryKey"`
	WalletAddress     string         `gorm:"column:wallet_address;index"`
	ContentID         int64          `gorm:"column:content_id"`
	MainTweetID       string         `gorm:"column:main_tweet_id"`
	ThreadTweetIDs    datatypes.JSON `gorm:"column:thread_tweet_ids"`
	EngagementMetrics datatypes.JSON `gorm:"column:engagement_metrics"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
}

func (ContentPost) TableName() string { return "content_posts" }

// Models lists every upstream table, for tests and local sqlite runs.
func Models() []any {
	return []any{
		&Participant{},
		&SocialConnection{},
		&Purchase{},
		&Referral{},
		&Project{},
		&Campaign{},
		&Content{},
		&ContentPost{},
	}
}

// PostStamp is one post attributed to its project.
type PostStamp struct {
	ProjectID int64     `gorm:"column:project_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// ProjectPost is a post with the fields needed for impressions.
type ProjectPost struct {
	WalletAddress     string         `gorm:"column:wallet_address"`
	MainTweetID       string         `gorm:"column:main_tweet_id"`
	ThreadTweetIDs    datatypes.JSON `gorm:"column:thread_tweet_ids"`
	EngagementMetrics datatypes.JSON `gorm:"column:engagement_metrics"`
}

// PurchaseTally counts one buyer's qualifying purchases on one network:
// Total since campaign start and Recent strictly after a snapshot boundary.
type PurchaseTally struct {
	Buyer   string `gorm:"column:buyer"`
	Network string `gorm:"column:network"`
	Total   int64  `gorm:"column:total"`
	Recent  int64  `gorm:"column:recent"`
}
