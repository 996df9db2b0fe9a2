package signal

import (
	"context"
	"sort"
	"time"

	"yapper-points/services/source"
)

type PostSource interface {
	PostStamps(ctx context.Context, wallet string, after, until time.Time) ([]source.PostStamp, error)
}

type ContentRules struct {
	PerPost     int64
	TopProjects int
}

type ContentResult struct {
	ProjectID int64
	Posts     int64
	Points    int64
}

type ContentAggregator struct {
	src   PostSource
	rules ContentRules
}

func NewContentAggregator(src PostSource, rules ContentRules) *ContentAggregator {
	return &ContentAggregator{src: src, rules: rules}
}

// Aggregate counts the wallet's posts per whitelisted project created in
// (since, until]. since is the participant's boundary, not a project's: posts
// on projects that miss the TopProjects cut are consumed all the same, so a
// later run cannot pay them. Projects rank by count then project id.
func (a *ContentAggregator) Aggregate(ctx context.Context, wallet string, since, until time.Time) (map[int64]ContentResult, error) {
	stamps, err := a.src.PostStamps(ctx, wallet, since, until)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int64)
	for _, s := range stamps {
		counts[s.ProjectID]++
	}

	return TopContent(counts, a.rules), nil
}

// TopContent keeps the rules.TopProjects projects with the most posts.
func TopContent(counts map[int64]int64, rules ContentRules) map[int64]ContentResult {
	ranked := make([]ContentResult, 0, len(counts))
	for id, n := range counts {
		if n > 0 {
			ranked = append(ranked, ContentResult{ProjectID: id, Posts: n})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Posts != ranked[j].Posts {
			return ranked[i].Posts > ranked[j].Posts
		}
		return ranked[i].ProjectID < ranked[j].ProjectID
	})

	if rules.TopProjects > 0 && len(ranked) > rules.TopProjects {
		ranked = ranked[:rules.TopProjects]
	}

	out := make(map[int64]ContentResult, len(ranked))
	for _, r := range ranked {
		r.Points = r.Posts * rules.PerPost
		out[r.ProjectID] = r
	}
	return out
}
