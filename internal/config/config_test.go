package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "DEBUG", "SECRET_KEY", "ADMIN_PATH", "TLS_REDIRECT",
		"WORKER_ROLE", "CORS_ORIGIN_WHITELIST", "LISTEN_ADDR", "PVWATTS_API_KEY",
		"SQL_HOST", "SQL_PORT", "SQL_USER", "SQL_PASSWORD", "SQL_NAME", "SQL_SSLMODE",
		"AWS_REGION", "AWS_STORAGE_BUCKET_NAME", "AWS_MEDIA_BUCKET_NAME",
		"TASK_QUEUE_NAME", "TASK_POLL_INTERVAL", "TASK_MAX_ATTEMPTS", "TASK_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.DeployEnv)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.WorkerRole)
	assert.Equal(t, "admin", cfg.AdminPath)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, "navigader", cfg.Database.Name)
	assert.Equal(t, time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 4, cfg.Queue.Concurrency)
}

func TestFromEnvParsesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("DEBUG", "true")
	t.Setenv("WORKER_ROLE", "1")
	t.Setenv("TLS_REDIRECT", "yes")
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("CORS_ORIGIN_WHITELIST", "https://a.example https://b.example")
	t.Setenv("TASK_POLL_INTERVAL", "250ms")
	t.Setenv("TASK_MAX_ATTEMPTS", "5")
	t.Setenv("TASK_CONCURRENCY", "2")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.DeployEnv)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.WorkerRole)
	assert.True(t, cfg.TLSRedirect)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.PollInterval)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, 2, cfg.Queue.Concurrency)
}

func TestFromEnvRejectsUnknownEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "qa")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidateQueueBounds(t *testing.T) {
	cfg := &Config{DeployEnv: EnvDev, Queue: Queue{MaxAttempts: 0, Concurrency: 1}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DeployEnv: EnvDev, Queue: Queue{MaxAttempts: 1, Concurrency: 0}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DeployEnv: EnvDev, Queue: Queue{MaxAttempts: 1, Concurrency: 1}}
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	d := Database{
		Host: "db", Port: "5433", User: "nav", Password: "pw",
		Name: "navigader", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db port=5433 user=nav password=pw dbname=navigader sslmode=require",
		d.DSN())
}
