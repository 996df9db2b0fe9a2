package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountTolerantDecoding(t *testing.T) {
	var m TweetMetrics
	require.NoError(t, json.Unmarshal([]byte(`{"views":"1200","likes":3.0,"retweets":{"x":1},"replies":null}`), &m))

	require.EqualValues(t, 1200, m.Views)
	require.EqualValues(t, 3, m.Likes)
	require.Zero(t, m.Retweets)
	require.Zero(t, m.Replies)
}

func TestParseEngagementAndViews(t *testing.T) {
	em, ok := ParseEngagement([]byte(`{"100":{"views":40},"101":{"views":"60"},"102":"broken"}`))
	require.False(t, ok)

	views, missing := em.Views("100", []string{"101", "103", "101"})
	require.EqualValues(t, 100, views)
	require.Equal(t, 1, missing)

	em, ok = ParseEngagement([]byte(`not json`))
	require.False(t, ok)
	require.Empty(t, em)

	em, ok = ParseEngagement(nil)
	require.True(t, ok)
	views, _ = em.Views("1", nil)
	require.Zero(t, views)
}

func TestParseTweetIDs(t *testing.T) {
	require.Equal(t, []string{"1", "2", "1789000000000000001"}, ParseTweetIDs([]byte(`["1", 2, 1789000000000000001, ""]`)))
	require.Nil(t, ParseTweetIDs([]byte(`{"a":1}`)))
	require.Nil(t, ParseTweetIDs(nil))
}
