package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PurchaseFilter decides which purchase events count: completed status,
// a positive price and one of the counted networks.
type PurchaseFilter struct {
	Status   string
	Networks []string
}

// Repository is the read surface over the web application's tables.
// Wallet addresses are compared and returned lower-cased.
type Repository interface {
	Participant(ctx context.Context, wallet string) (*Participant, error)
	ConnectedSince(ctx context.Context, since time.Time) ([]string, error)
	BuyersSince(ctx context.Context, since time.Time) ([]string, error)
	ReferrersOfBuyersSince(ctx context.Context, since time.Time) ([]string, error)
	ReferredBy(ctx context.Context, wallet string) ([]string, error)
	PurchaseTallies(ctx context.Context, buyers []string, start, since, until time.Time) ([]PurchaseTally, error)
	WhitelistedProjects(ctx context.Context) ([]Project, error)
	PostStamps(ctx context.Context, wallet string, after, until time.Time) ([]PostStamp, error)
	ProjectPosts(ctx context.Context, projectID int64, since, until time.Time) ([]ProjectPost, error)
}

type gormRepository struct {
	db     *gorm.DB
	filter PurchaseFilter
}

func NewRepository(db *gorm.DB, filter PurchaseFilter) Repository {
	return &gormRepository{db: db, filter: filter}
}

func normalize(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// qualifying narrows a content_purchases query aliased as p.
func (r *gormRepository) qualifying(q *gorm.DB) *gorm.DB {
	q = q.Where("p.payment_status = ? AND p.price > 0", r.filter.Status)
	if len(r.filter.Networks) > 0 {
		q = q.Where("p.network IN ?", r.filter.Networks)
	}
	return q
}

func (r *gormRepository) Participant(ctx context.Context, wallet string) (*Participant, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var p Participant
	err := r.db.WithContext(ctx).
		Where("LOWER(wallet_address) = ?", normalize(wallet)).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.WalletAddress = normalize(p.WalletAddress)
	return &p, nil
}

func (r *gormRepository) ConnectedSince(ctx context.Context, since time.Time) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var wallets []string
	err := r.db.WithContext(ctx).
		Model(&SocialConnection{}).
		Distinct("LOWER(wallet_address)").
		Where("is_connected = ? AND created_at >= ?", true, since).
		Scan(&wallets).Error
	return wallets, err
}

func (r *gormRepository) BuyersSince(ctx context.Context, since time.Time) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var wallets []string
	q := r.db.WithContext(ctx).
		Table("content_purchases AS p").
		Distinct("LOWER(p.buyer_wallet_address)").
		Where("p.created_at >= ?", since)
	err := r.qualifying(q).Scan(&wallets).Error
	return wallets, err
}

func (r *gormRepository) ReferrersOfBuyersSince(ctx context.Context, since time.Time) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var wallets []string
	q := r.db.WithContext(ctx).
		Table("user_referrals AS r").
		Distinct("LOWER(r.referrer_wallet_address)").
		Joins("JOIN content_purchases AS p ON LOWER(p.buyer_wallet_address) = LOWER(r.referred_wallet_address)").
		Where("p.created_at >= ?", since)
	err := r.qualifying(q).Scan(&wallets).Error
	return wallets, err
}

func (r *gormRepository) ReferredBy(ctx context.Context, wallet string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var wallets []string
	err := r.db.WithContext(ctx).
		Model(&Referral{}).
		Distinct("LOWER(referred_wallet_address)").
		Where("LOWER(referrer_wallet_address) = ?", normalize(wallet)).
		Scan(&wallets).Error
	return wallets, err
}

// PurchaseTallies groups qualifying purchases made in [start, until] by
// buyer and network. Recent counts those created strictly after since.
func (r *gormRepository) PurchaseTallies(ctx context.Context, buyers []string, start, since, until time.Time) ([]PurchaseTally, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if len(buyers) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(buyers))
	for i, b := range buyers {
		lowered[i] = normalize(b)
	}

	var tallies []PurchaseTally
	q := r.db.WithContext(ctx).
		Table("content_purchases AS p").
		Select(`LOWER(p.buyer_wallet_address) AS buyer, p.network AS network, COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN p.created_at > ? THEN 1 ELSE 0 END), 0) AS recent`, since).
		Where("LOWER(p.buyer_wallet_address) IN ?", lowered).
		Where("p.created_at >= ? AND p.created_at <= ?", start, until)
	err := r.qualifying(q).
		Group("LOWER(p.buyer_wallet_address), p.network").
		Scan(&tallies).Error
	return tallies, err
}

func (r *gormRepository) WhitelistedProjects(ctx context.Context) ([]Project, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var projects []Project
	err := r.db.WithContext(ctx).
		Where("is_campaign_whitelisted = ?", true).
		Order("id ASC").
		Find(&projects).Error
	return projects, err
}

// PostStamps lists the wallet's posts on whitelisted projects created in
// (after, until], resolved through content and campaign.
func (r *gormRepository) PostStamps(ctx context.Context, wallet string, after, until time.Time) ([]PostStamp, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var stamps []PostStamp
	err := r.db.WithContext(ctx).
		Table("content_posts AS cp").
		Select("c.project_id AS project_id, cp.created_at AS created_at").
		Joins("JOIN contents AS ct ON ct.id = cp.content_id").
		Joins("JOIN campaigns AS c ON c.id = ct.campaign_id").
		Joins("JOIN projects AS pr ON pr.id = c.project_id").
		Where("LOWER(cp.wallet_address) = ?", normalize(wallet)).
		Where("cp.created_at > ? AND cp.created_at <= ?", after, until).
		Where("pr.is_campaign_whitelisted = ?", true).
		Order("cp.created_at ASC").
		Scan(&stamps).Error
	return stamps, err
}

// ProjectPosts lists every post for a project created in [since, until].
func (r *gormRepository) ProjectPosts(ctx context.Context, projectID int64, since, until time.Time) ([]ProjectPost, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var posts []ProjectPost
	err := r.db.WithContext(ctx).
		Table("content_posts AS cp").
		Select("LOWER(cp.wallet_address) AS wallet_address, cp.main_tweet_id, cp.thread_tweet_ids, cp.engagement_metrics").
		Joins("JOIN contents AS ct ON ct.id = cp.content_id").
		Joins("JOIN campaigns AS c ON c.id = ct.campaign_id").
		Where("c.project_id = ?", projectID).
		Where("cp.created_at >= ? AND cp.created_at <= ?", since, until).
		Order("cp.id ASC").
		Scan(&posts).Error
	return posts, err
}
