package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 環境変数をクリア
	envVars := []string{
		"APP_ENV", "PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"MIGRATIONS_PATH",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
		"HOLD_TTL", "LOCK_MAX_RETRIES", "LOCK_RETRY_DELAY",
		"SWEEP_ENABLED", "SWEEP_INTERVAL",
		"RABBITMQ_URL", "QUEUE_ENABLED",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_CAPACITY",
	}
	for _, env := range envVars {
		os.Unsetenv(env)
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())

	// Server defaults
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "ticketera", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)

	// Redis defaults
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)

	// Lock defaults
	assert.Equal(t, 10*time.Minute, cfg.Lock.HoldTTL)
	assert.Equal(t, 5, cfg.Lock.MaxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Lock.RetryDelay)

	// Worker defaults
	assert.True(t, cfg.Worker.SweepEnabled)
	assert.Equal(t, time.Minute, cfg.Worker.SweepInterval)

	// Queue / RateLimit はデフォルト無効
	assert.False(t, cfg.Queue.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	os.Setenv("PORT", "9090")
	os.Setenv("HOLD_TTL", "5m")
	os.Setenv("LOCK_MAX_RETRIES", "10")
	os.Setenv("SWEEP_ENABLED", "false")
	os.Setenv("QUEUE_ENABLED", "true")
	os.Setenv("RATE_LIMIT_ENABLED", "true")
	os.Setenv("RATE_LIMIT_CAPACITY", "30")
	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("PORT")
		os.Unsetenv("HOLD_TTL")
		os.Unsetenv("LOCK_MAX_RETRIES")
		os.Unsetenv("SWEEP_ENABLED")
		os.Unsetenv("QUEUE_ENABLED")
		os.Unsetenv("RATE_LIMIT_ENABLED")
		os.Unsetenv("RATE_LIMIT_CAPACITY")
	}()

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Lock.HoldTTL)
	assert.Equal(t, 10, cfg.Lock.MaxRetries)
	assert.False(t, cfg.Worker.SweepEnabled)
	assert.True(t, cfg.Queue.Enabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.Capacity)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "user=postgres")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "dbname=testdb")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := &RedisConfig{Host: "localhost", Port: "6379"}
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_ENV_VAR", "custom_value")
	defer os.Unsetenv("TEST_ENV_VAR")

	assert.Equal(t, "custom_value", getEnv("TEST_ENV_VAR", "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT_VAR", "default"))
}

func TestGetIntEnv(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")

	assert.Equal(t, 42, getIntEnv("TEST_INT", 0))

	os.Setenv("TEST_INVALID_INT", "not_a_number")
	defer os.Unsetenv("TEST_INVALID_INT")

	assert.Equal(t, 99, getIntEnv("TEST_INVALID_INT", 99))
	assert.Equal(t, 100, getIntEnv("NON_EXISTENT_INT", 100))
}

func TestGetBoolEnv(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	assert.True(t, getBoolEnv("TEST_BOOL", false))

	os.Setenv("TEST_INVALID_BOOL", "yes-please")
	defer os.Unsetenv("TEST_INVALID_BOOL")

	assert.True(t, getBoolEnv("TEST_INVALID_BOOL", true))
	assert.False(t, getBoolEnv("NON_EXISTENT_BOOL", false))
}

func TestGetDurationEnv(t *testing.T) {
	os.Setenv("TEST_DURATION", "5m")
	defer os.Unsetenv("TEST_DURATION")

	assert.Equal(t, 5*time.Minute, getDurationEnv("TEST_DURATION", time.Second))

	os.Setenv("TEST_INVALID_DURATION", "invalid")
	defer os.Unsetenv("TEST_INVALID_DURATION")

	assert.Equal(t, 30*time.Second, getDurationEnv("TEST_INVALID_DURATION", 30*time.Second))
	assert.Equal(t, time.Minute, getDurationEnv("NON_EXISTENT_DURATION", time.Minute))
}
