package eligibility

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Source is the subset of the upstream repository the resolver reads.
type Source interface {
	ConnectedSince(ctx context.Context, since time.Time) ([]string, error)
	BuyersSince(ctx context.Context, since time.Time) ([]string, error)
	ReferrersOfBuyersSince(ctx context.Context, since time.Time) ([]string, error)
}

type Resolver struct {
	src      Source
	excluded map[string]struct{}
}

func NewResolver(src Source, excluded []string) *Resolver {
	set := make(map[string]struct{}, len(excluded))
	for _, w := range excluded {
		if w = normalize(w); w != "" {
			set[w] = struct{}{}
		}
	}
	return &Resolver{src: src, excluded: set}
}

func normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// Resolve returns the sorted, de-duplicated wallets in scope for a run:
// connected identities, qualifying buyers and referrers of qualifying
// buyers, all counted from start. Excluded wallets are dropped.
func (r *Resolver) Resolve(ctx context.Context, start time.Time) ([]string, error) {
	sources := []struct {
		name string
		load func(context.Context, time.Time) ([]string, error)
	}{
		{"connected", r.src.ConnectedSince},
		{"buyers", r.src.BuyersSince},
		{"referrers", r.src.ReferrersOfBuyersSince},
	}

	seen := make(map[string]struct{})
	excluded := 0
	for _, s := range sources {
		wallets, err := s.load(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.name, err)
		}
		for _, w := range wallets {
			w = normalize(w)
			if w == "" {
				continue
			}
			if _, skip := r.excluded[w]; skip {
				excluded++
				continue
			}
			seen[w] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)

	zap.L().Debug("eligibility resolved",
		zap.Int("participants", len(out)),
		zap.Int("excluded_hits", excluded),
	)

	return out, nil
}
