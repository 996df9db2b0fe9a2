package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("CAMPAIGN_START", "2025-09-01")
	t.Setenv("POINTS_PER_POST", "250")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "2025-09-01", cfg.Campaign.Start)
	require.EqualValues(t, 250, cfg.Points.PerPost)
	require.EqualValues(t, 3, cfg.Points.LaneA.Threshold)
	require.Equal(t, "somnia_testnet", cfg.Points.LaneB.Network)
	require.Equal(t, 30*time.Minute, cfg.Engine.LockTTL)
	require.Equal(t, DefaultTiers, cfg.Tiers)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
CAMPAIGN:
  START: "2025-09-01"
  END: "2025-09-30"
  EXCLUDED_WALLETS:
    - "0xABC"
POINTS:
  IMPRESSIONS_POOLS:
    "7": 50000
TIERS:
  - NAME: BRONZE
    MIN_POINTS: 0
  - NAME: GOLD
    MIN_POINTS: 1000
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, []string{"0xABC"}, cfg.Campaign.ExcludedWallets)
	require.EqualValues(t, 50000, cfg.Points.ImpressionsPools["7"])
	require.Len(t, cfg.Tiers, 2)
	require.Equal(t, "GOLD", cfg.Tiers[1].Name)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
