package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 92, cfg.Availability.MaxRangeDays)
	assert.Equal(t, "reject", cfg.Availability.WeeklyOverlapPolicy)
	assert.Equal(t, 10*time.Minute, cfg.Availability.CacheTTL)
	assert.Equal(t, "30 3 * * *", cfg.Maintenance.PruneSchedule)
	assert.Equal(t, 5, cfg.RateLimit.CalendarBurst)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Zero(t, cfg.Database.StatementTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 1, cfg.Exports.WorkerConcurrency)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WEEKLY_BLOCK_OVERLAP_POLICY", "ALLOW")
	t.Setenv("AVAILABILITY_CACHE_TTL", "90s")
	t.Setenv("AVAILABILITY_MAX_RANGE_DAYS", "0")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "allow", cfg.Availability.WeeklyOverlapPolicy)
	assert.Equal(t, 90*time.Second, cfg.Availability.CacheTTL)
	assert.Equal(t, 92, cfg.Availability.MaxRangeDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestLoadNormalizesPrefixAndRedisURL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("API_PREFIX", "api/v2/")
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("DB_STATEMENT_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v2", cfg.APIPrefix)
	assert.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
	assert.Equal(t, 3*time.Second, cfg.Database.StatementTimeout)
}

func TestLoadRejectsUnknownOverlapPolicy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WEEKLY_BLOCK_OVERLAP_POLICY", "merge")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEEKLY_BLOCK_OVERLAP_POLICY")
}

func TestValidateProductionSecrets(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENV", "Production")
	t.Setenv("ENABLE_EXPORTS", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be changed")
	assert.Contains(t, err.Error(), "EXPORTS_SIGNED_URL_SECRET must be changed")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EXPORTS_SIGNED_URL_SECRET", "an0ther")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
