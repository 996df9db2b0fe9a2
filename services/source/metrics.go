package source

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Count is an engagement figure. Upstream writers store numbers, numeric
// strings or nothing at all; anything that is not a number reads as zero.
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	*c = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*c = Count(n)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*c = Count(f)
	}
	return nil
}

type TweetMetrics struct {
	Views    Count `json:"views"`
	Likes    Count `json:"likes"`
	Retweets Count `json:"retweets"`
	Replies  Count `json:"replies"`
}

// EngagementMetrics maps tweet id to that tweet's metrics.
type EngagementMetrics map[string]TweetMetrics

// ParseEngagement decodes the engagement_metrics column. The bool is false
// when the blob is present but not an object; callers treat that as zero.
func ParseEngagement(raw []byte) (EngagementMetrics, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return EngagementMetrics{}, true
	}

	var objects map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		return EngagementMetrics{}, false
	}

	out := make(EngagementMetrics, len(objects))
	ok := true
	for id, v := range objects {
		var m TweetMetrics
		if err := json.Unmarshal(v, &m); err != nil {
			ok = false
			continue
		}
		out[id] = m
	}
	return out, ok
}

// ParseTweetIDs decodes thread_tweet_ids, accepting string or numeric ids.
func ParseTweetIDs(raw []byte) []string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			ids = append(ids, n.String())
		}
	}
	return ids
}

// Views sums views over the main tweet and its thread. missing counts the
// referenced tweet ids that have no metrics entry.
func (m EngagementMetrics) Views(main string, thread []string) (views int64, missing int) {
	seen := make(map[string]struct{}, len(thread)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		tm, ok := m[id]
		if !ok {
			missing++
			return
		}
		if tm.Views > 0 {
			views += int64(tm.Views)
		}
	}

	add(main)
	for _, id := range thread {
		add(id)
	}
	return views, missing
}
