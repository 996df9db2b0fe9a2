package source_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"yapper-points/services/source"
	"yapper-points/services/source/sourcetest"
	"yapper-points/services/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var start = testutil.Day(2025, time.September, 1)

func newRepo(t *testing.T) (source.Repository, *sourcetest.Fixture) {
	db := testutil.NewTestDB(t)
	seed := sourcetest.New(t, db)
	repo := source.NewRepository(db, source.PurchaseFilter{
		Status:   "completed",
		Networks: []string{"base", "somnia_testnet"},
	})
	return repo, seed
}

func sorted(v []string) []string {
	sort.Strings(v)
	return v
}

func TestEligibilitySources(t *testing.T) {
	repo, seed := newRepo(t)
	ctx := context.Background()

	seed.Connect("0xAAA", start.Add(time.Hour))
	seed.Connect("0xold", start.Add(-time.Hour))
	seed.Purchase("0xBuyer", "base", start.Add(2*time.Hour))
	seed.Purchase("0xearly", "base", start.Add(-2*time.Hour))
	seed.Purchase("0xother", "ethereum", start.Add(2*time.Hour))
	seed.PurchaseWith(source.Purchase{
		BuyerWalletAddress: "0xfree", PaymentStatus: "completed",
		Price: decimal.Zero, Network: "base", CreatedAt: start.Add(time.Hour),
	})
	seed.PurchaseWith(source.Purchase{
		BuyerWalletAddress: "0xpending", PaymentStatus: "pending",
		Price: decimal.NewFromInt(5), Network: "base", CreatedAt: start.Add(time.Hour),
	})
	seed.Refer("0xREF", "0xbuyer")
	seed.Refer("0xnobody", "0xearly")

	connected, err := repo.ConnectedSince(ctx, start)
	require.NoError(t, err)
	require.Equal(t, []string{"0xaaa"}, connected)

	buyers, err := repo.BuyersSince(ctx, start)
	require.NoError(t, err)
	require.Equal(t, []string{"0xbuyer"}, buyers)

	referrers, err := repo.ReferrersOfBuyersSince(ctx, start)
	require.NoError(t, err)
	require.Equal(t, []string{"0xref"}, referrers)
}

func TestPurchaseTallies(t *testing.T) {
	repo, seed := newRepo(t)
	ctx := context.Background()
	since := start.Add(24 * time.Hour)
	until := since.Add(48 * time.Hour)

	seed.Purchases("0xA", "base", start.Add(time.Hour), 2)
	seed.Purchases("0xa", "base", since.Add(time.Hour), 1)
	seed.Purchases("0xa", "somnia_testnet", since.Add(time.Hour), 4)
	seed.Purchases("0xb", "base", start.Add(-time.Hour), 5)
	seed.Purchases("0xa", "base", until.Add(time.Minute), 3)

	tallies, err := repo.PurchaseTallies(ctx, []string{"0xA", "0xb"}, start, since, until)
	require.NoError(t, err)

	got := map[string]source.PurchaseTally{}
	for _, tl := range tallies {
		got[tl.Buyer+"/"+tl.Network] = tl
	}
	require.Len(t, got, 2)
	require.EqualValues(t, 3, got["0xa/base"].Total)
	require.EqualValues(t, 1, got["0xa/base"].Recent)
	require.EqualValues(t, 4, got["0xa/somnia_testnet"].Total)
	require.EqualValues(t, 4, got["0xa/somnia_testnet"].Recent)

	none, err := repo.PurchaseTallies(ctx, nil, start, since, until)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestReferredByAndParticipant(t *testing.T) {
	repo, seed := newRepo(t)
	ctx := context.Background()

	seed.Participant("0xABC", start.Add(-48*time.Hour), 2)
	seed.Refer("0xAbc", "0xONE")
	seed.Refer("0xabc", "0xtwo")
	seed.Refer("0xabc", "0xone")

	referred, err := repo.ReferredBy(ctx, "0xABC")
	require.NoError(t, err)
	require.Equal(t, []string{"0xone", "0xtwo"}, sorted(referred))

	p, err := repo.Participant(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "0xabc", p.WalletAddress)
	require.EqualValues(t, 2, p.ReferralCount)
	require.True(t, p.CreatedAt.Equal(start.Add(-48*time.Hour)))

	missing, err := repo.Participant(ctx, "0xmissing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPostsResolveThroughCampaignChain(t *testing.T) {
	repo, seed := newRepo(t)
	ctx := context.Background()

	seed.Project(1, "alpha", true)
	seed.Project(2, "beta", false)
	seed.Post("0xa", 1, start.Add(time.Hour), "t1", map[string]int64{"t1": 10})
	seed.Post("0xA", 1, start.Add(2*time.Hour), "t2", map[string]int64{"t2": 5, "t3": 7}, "t3")
	seed.Post("0xa", 2, start.Add(time.Hour), "t4", nil)
	seed.Post("0xa", 1, start.Add(48*time.Hour), "t5", map[string]int64{"t5": 99})

	projects, err := repo.WhitelistedProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "alpha", projects[0].Name)

	stamps, err := repo.PostStamps(ctx, "0xa", start.Add(time.Hour), start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stamps, 1)
	require.EqualValues(t, 1, stamps[0].ProjectID)
	require.True(t, stamps[0].CreatedAt.Equal(start.Add(2*time.Hour)))

	posts, err := repo.ProjectPosts(ctx, 1, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "0xa", posts[1].WalletAddress)

	em, ok := source.ParseEngagement(posts[1].EngagementMetrics)
	require.True(t, ok)
	views, missing := em.Views(posts[1].MainTweetID, source.ParseTweetIDs(posts[1].ThreadTweetIDs))
	require.EqualValues(t, 12, views)
	require.Zero(t, missing)
}
