package repository

import (
	"context"
	"testing"
	"time"

	"yapper-points/pkg/db/option"
	"yapper-points/services/testutil"

	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        int64 `gorm:"primaryKey"`
	Owner     string
	Score     int64
	Parent    *int64
	CreatedAt time.Time
}

func TestStoreFindOneMissingReturnsNil(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	got, err := repo.FindOne(context.Background(), &widget{Owner: "nobody"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreSortAndOperators(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()
	base := testutil.Day(2025, time.March, 1)
	parent := int64(7)

	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: 1, Owner: "a", Score: 5, CreatedAt: base},
		{ID: 2, Owner: "a", Score: 9, Parent: &parent, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Owner: "b", Score: 1, CreatedAt: base.Add(2 * time.Hour)},
	}))

	latest, err := repo.FindOne(ctx, &widget{Owner: "a"}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
	}))
	require.NoError(t, err)
	require.EqualValues(t, 2, latest.ID)

	roots, err := repo.Find(ctx, &widget{Owner: "a"}, option.ApplyOperator(option.Condition{
		Field:    "parent",
		Operator: option.IsNull,
	}))
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.EqualValues(t, 1, roots[0].ID)

	high, err := repo.Find(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "score", Operator: option.GTE, Value: 5}),
		option.WithSortBy(option.QuerySortBy{SortBy: "score", OrderBy: "desc", Allow: map[string]bool{"score": true}}),
		option.WithLimit(1),
	)
	require.NoError(t, err)
	require.Len(t, high, 1)
	require.EqualValues(t, 9, high[0].Score)

	n, err := repo.Count(ctx, &widget{Owner: "a"})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.NoError(t, repo.Update(ctx, "3", map[string]any{"score": 4}))
	updated, err := repo.FindOne(ctx, &widget{ID: 3})
	require.NoError(t, err)
	require.EqualValues(t, 4, updated.Score)
}

func TestStoreWithTrxRollback(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	tx := db.Begin()
	require.NoError(t, repo.WithTrx(tx).Create(ctx, &widget{ID: 10, Owner: "t"}))
	require.NoError(t, tx.Rollback().Error)

	n, err := repo.Count(ctx, &widget{Owner: "t"})
	require.NoError(t, err)
	require.Zero(t, n)
}
