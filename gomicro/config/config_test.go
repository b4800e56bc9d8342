package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load("opshub-service")
	require.NoError(t, err)

	assert.Equal(t, "opshub-service", cfg.ServiceName)
	assert.Equal(t, "opshub_service", cfg.Metrics.Prefix)
	assert.Equal(t, 30*time.Minute, cfg.Cache.WorkingDaysTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, uint(5), cfg.DB.ConnectAttempts)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("CACHE_WORKING_DAYS_TTL", "5m")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load("authen-service")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.WorkingDaysTTL)
	assert.Equal(t, 100, cfg.DB.MaxOpenConns)
	assert.Contains(t, cfg.DB.GetDSN(), "host=db.internal")
}
