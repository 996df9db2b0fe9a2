package db

import (
	"testing"

	"yapper-points/pkg/config"
	"yapper-points/pkg/errutil"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestDialectPostgresSSLMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "postgres"
	cfg.Database.Host = "db.internal"
	cfg.Database.Port = "5432"
	cfg.Database.User = "points"
	cfg.Database.DBNAME = "yapper"
	cfg.Database.SSLMode = SSLVerifyFull

	d, err := Dialect(cfg)
	require.NoError(t, err)

	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	require.Contains(t, pg.Config.DSN, "sslmode=verify-full")
	require.Contains(t, pg.Config.DSN, "TimeZone=UTC")
}

func TestDialectMissingHost(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "postgres"

	_, err := Dialect(cfg)
	require.True(t, errutil.IsStatus(err, errutil.StatusUnavailable))
}

func TestDialectUnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "oracle"

	_, err := Dialect(cfg)
	require.True(t, errutil.IsStatus(err, errutil.StatusValidationFailed))
}

func TestNewSqlite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.DSN = "file:dbtest?mode=memory&cache=shared"

	d, err := Dialect(cfg)
	require.NoError(t, err)

	gdb, err := New(cfg, d)
	require.NoError(t, err)
	require.NoError(t, gdb.Exec("SELECT 1").Error)
}
