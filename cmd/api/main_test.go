package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storefront-tma-backend/internal/config"
)

func TestRun_StoreFailureIsReturnedAndLogged(t *testing.T) {
	for _, k := range []string{
		"CONFIG_PATH", "PORT", "CORS_ALLOWED_ORIGINS", "DATABASE_DRIVER",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_INIT_DATA_MAX_AGE", "JWT_SECRET",
		"ADMIN_SEED_ENABLED", "ADMIN_SEED_PASSWORD", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}

	// A regular file where the database directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	t.Setenv("DATABASE_URL", filepath.Join(blocker, "data", "storefront.db"))

	cfg, err := config.Load()
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	err = run(cfg, zap.New(core))
	require.Error(t, err)

	entries := logs.FilterMessage("open database").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, 0, logs.FilterMessage("listening").Len())
}
