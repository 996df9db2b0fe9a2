package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowContains(t *testing.T) {
	w, err := NewWindow("2025-09-01", "2025-09-30", "UTC")
	require.NoError(t, err)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before start", time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC), false},
		{"first instant", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), true},
		{"middle", time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC), true},
		{"last day evening", time.Date(2025, 9, 30, 23, 0, 0, 0, time.UTC), true},
		{"after end", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, w.Contains(tc.now))
		})
	}
}

func TestWindowFinalDayUsesCampaignTimezone(t *testing.T) {
	w, err := NewWindow("2025-09-01", "2025-09-30", "Asia/Jakarta")
	require.NoError(t, err)

	// 18:00 UTC on the 29th is already the 30th in Jakarta (UTC+7).
	require.True(t, w.IsFinalDay(time.Date(2025, 9, 29, 18, 0, 0, 0, time.UTC)))
	require.False(t, w.IsFinalDay(time.Date(2025, 9, 29, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, time.Date(2025, 8, 31, 17, 0, 0, 0, time.UTC), w.StartsAt())
}

func TestNewWindowRejectsBadInput(t *testing.T) {
	_, err := NewWindow("2025-09-30", "2025-09-01", "")
	require.Error(t, err)

	_, err = NewWindow("yesterday", "2025-09-01", "")
	require.Error(t, err)

	_, err = NewWindow("2025-09-01", "2025-09-30", "Mars/Olympus")
	require.Error(t, err)
}
