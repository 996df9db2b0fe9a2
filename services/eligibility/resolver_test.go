package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type sourceMock struct {
	connectedFn func(ctx context.Context, since time.Time) ([]string, error)
	buyersFn    func(ctx context.Context, since time.Time) ([]string, error)
	referrersFn func(ctx context.Context, since time.Time) ([]string, error)
}

func (m *sourceMock) ConnectedSince(ctx context.Context, since time.Time) ([]string, error) {
	if m.connectedFn != nil {
		return m.connectedFn(ctx, since)
	}
	return nil, nil
}

func (m *sourceMock) BuyersSince(ctx context.Context, since time.Time) ([]string, error) {
	if m.buyersFn != nil {
		return m.buyersFn(ctx, since)
	}
	return nil, nil
}

func (m *sourceMock) ReferrersOfBuyersSince(ctx context.Context, since time.Time) ([]string, error) {
	if m.referrersFn != nil {
		return m.referrersFn(ctx, since)
	}
	return nil, nil
}

func TestResolveUnionDedupAndExclusion(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	src := &sourceMock{
		connectedFn: func(_ context.Context, since time.Time) ([]string, error) {
			require.Equal(t, start, since)
			return []string{"0xB", "0xa"}, nil
		},
		buyersFn: func(context.Context, time.Time) ([]string, error) {
			return []string{"0xb", "0xTeam"}, nil
		},
		referrersFn: func(context.Context, time.Time) ([]string, error) {
			return []string{" 0xC ", ""}, nil
		},
	}

	r := NewResolver(src, []string{"0XTEAM"})
	got, err := r.Resolve(context.Background(), start)
	require.NoError(t, err)
	require.Equal(t, []string{"0xa", "0xb", "0xc"}, got)
}

func TestResolveEmpty(t *testing.T) {
	r := NewResolver(&sourceMock{}, nil)
	got, err := r.Resolve(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestResolvePropagatesErrors(t *testing.T) {
	r := NewResolver(&sourceMock{
		buyersFn: func(context.Context, time.Time) ([]string, error) {
			return nil, errors.New("boom")
		},
	}, nil)

	_, err := r.Resolve(context.Background(), time.Now())
	require.ErrorContains(t, err, "load buyers")
}
