package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:?cache=shared")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("ASYNQ_CONCURRENCY", "1")
	t.Setenv("GOMAXPROCS", "0")
	t.Setenv("ADMIN_SECRET", "admin-secret-0123456789")
	t.Setenv("JWT_SECRET", "jwt-secret-0123456789")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 72*time.Hour, c.ReminderWindow)
	require.Equal(t, 20*time.Hour, c.ReminderDedupTTL)
	require.Equal(t, 12*time.Hour, c.StaffTokenTTL)
	require.Equal(t, "0 9 * * *", c.ReminderCron)
	require.Equal(t, "async", c.ActivityMode)
	require.Equal(t, "onboarding-files", c.MinioBucket)
	require.False(t, c.SMTPConfigured())
}

func TestLoadParsesReminderWindow(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMINDER_WINDOW", "48h")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 48*time.Hour, c.ReminderWindow)
}

func TestLoadRejectsShortAdminSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}
