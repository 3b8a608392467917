package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("STREAM_PAGE_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, devSessionSecret, cfg.Server.SessionSecret)
	assert.Equal(t, 20, cfg.Stream.PageSize)
	assert.Equal(t, 16, cfg.Stream.SendBuffer)
	assert.Equal(t, 50*time.Second, cfg.Stream.PingPeriod)
	assert.False(t, cfg.Mail.Enabled())
	assert.False(t, cfg.Google.Enabled())
}

func TestLoadRequiresSessionSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("STREAM_PAGE_SIZE", "5")
	t.Setenv("STREAM_PONG_WAIT", "2s")
	t.Setenv("STREAM_PING_PERIOD", "1s")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Stream.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Stream.PongWait)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{SessionSecret: "x"},
			Database: DatabaseConfig{Driver: "postgres", DSN: "dsn"},
			Stream:   StreamConfig{PageSize: 20, SendBuffer: 16, PongWait: 60 * time.Second, PingPeriod: 50 * time.Second},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Stream.PingPeriod = cfg.Stream.PongWait
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Stream.SendBuffer = 0
	assert.Error(t, cfg.Validate())
}

func TestMailEnabled(t *testing.T) {
	m := MailConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "noreply@example.com"}
	assert.True(t, m.Enabled())
	m.Password = ""
	assert.False(t, m.Enabled())
}

func TestGoogleEnabled(t *testing.T) {
	assert.True(t, GoogleConfig{ClientID: "id", ClientSecret: "secret"}.Enabled())
	assert.False(t, GoogleConfig{ClientID: "id"}.Enabled())
}
