// Package sourcetest seeds the upstream tables for tests.
package sourcetest

import (
	"encoding/json"
	"testing"
	"time"

	"yapper-points/services/source"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Fixture struct {
	t  *testing.T
	db *gorm.DB
	id int64
}

func New(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	require.NoError(t, db.AutoMigrate(source.Models()...))
	return &Fixture{t: t, db: db, id: 1000}
}

func (f *Fixture) next() int64 {
	f.id++
	return f.id
}

func (f *Fixture) create(v any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(v).Error)
}

func (f *Fixture) Participant(wallet string, joined time.Time, referrals int64) {
	f.create(&source.Participant{WalletAddress: wallet, ReferralCount: referrals, CreatedAt: joined})
}

func (f *Fixture) Connect(wallet string, at time.Time) {
	f.create(&source.SocialConnection{
		ID:            f.next(),
		WalletAddress: wallet,
		IsConnected:   true,
		TwitterHandle: "@" + wallet,
		CreatedAt:     at,
	})
}

// Purchase records a completed purchase priced at 10.
func (f *Fixture) Purchase(buyer, network string, at time.Time) {
	f.PurchaseWith(source.Purchase{
		BuyerWalletAddress: buyer,
		PaymentStatus:      "completed",
		Price:              decimal.NewFromInt(10),
		Network:            network,
		CreatedAt:          at,
	})
}

// Purchases records n purchases one minute apart starting at at.
func (f *Fixture) Purchases(buyer, network string, at time.Time, n int) {
	for i := 0; i < n; i++ {
		f.Purchase(buyer, network, at.Add(time.Duration(i)*time.Minute))
	}
}

func (f *Fixture) PurchaseWith(p source.Purchase) {
	p.ID = f.next()
	f.create(&p)
}

func (f *Fixture) Refer(referrer, referred string) {
	f.create(&source.Referral{
		ID:                    f.next(),
		ReferrerWalletAddress: referrer,
		ReferredWalletAddress: referred,
	})
}

// Project creates the project with one campaign and one content item that
// share its id.
func (f *Fixture) Project(id int64, name string, whitelisted bool) {
	f.create(&source.Project{ID: id, Name: name, IsCampaignWhitelisted: whitelisted})
	f.create(&source.Campaign{ID: id, ProjectID: id})
	f.create(&source.Content{ID: id, CampaignID: id})
}

// Post records a post whose main tweet is tweetID. views maps tweet id to
// its view count and thread lists the thread tweet ids.
func (f *Fixture) Post(wallet string, projectID int64, at time.Time, tweetID string, views map[string]int64, thread ...string) {
	f.t.Helper()

	metrics := make(map[string]map[string]int64, len(views))
	for id, v := range views {
		metrics[id] = map[string]int64{"views": v}
	}
	em, err := json.Marshal(metrics)
	require.NoError(f.t, err)

	if thread == nil {
		thread = []string{}
	}
	ids, err := json.Marshal(thread)
	require.NoError(f.t, err)

	f.create(&source.ContentPost{
		ID:                f.next(),
		WalletAddress:     wallet,
		ContentID:         projectID,
		MainTweetID:       tweetID,
		ThreadTweetIDs:    datatypes.JSON(ids),
		EngagementMetrics: datatypes.JSON(em),
		CreatedAt:         at,
	})
}

// SetViews overwrites the views of every post whose main tweet is tweetID.
func (f *Fixture) SetViews(tweetID string, views map[string]int64) {
	f.t.Helper()

	metrics := make(map[string]map[string]int64, len(views))
	for id, v := range views {
		metrics[id] = map[string]int64{"views": v}
	}
	em, err := json.Marshal(metrics)
	require.NoError(f.t, err)

	require.NoError(f.t, f.db.Model(&source.ContentPost{}).
		Where("main_tweet_id = ?", tweetID).
		Update("engagement_metrics", datatypes.JSON(em)).Error)
}
