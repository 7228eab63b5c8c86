package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("BUSINESS_TIMEZONE", "America/Chicago")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "stockwatch", cfg.MongoDB.DBName)
	assert.Equal(t, "*/5 * * * *", cfg.LowStock.CronSchedule)
	assert.Equal(t, 9, cfg.LowStock.DigestHour)
	assert.Equal(t, 15*time.Minute, cfg.LowStock.DigestWindow)
	assert.Equal(t, "https://api.resend.com", cfg.Email.BaseURL)
	require.NotNil(t, cfg.LowStock.Location)
	assert.Equal(t, "America/Chicago", cfg.LowStock.Location.String())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUSINESS_TIMEZONE")
}

func TestLoadRejectsBadDigestHour(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DIGEST_HOUR", "24")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)

	t.Setenv("DIGEST_HOUR", "nine")
	_, err = Load("testdata/does-not-exist.env")
	require.Error(t, err)
}

func TestValidateRequiresSheetsSettingsTogether(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/tmp/creds.json")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)

	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-id")
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.True(t, cfg.Sheets.Enabled())
}
