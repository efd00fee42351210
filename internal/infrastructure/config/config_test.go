package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fxoffice", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "fxoffice", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "org_id", cfg.JWT.OrgClaim)
		assert.Equal(t, 5*time.Minute, cfg.Webhook.Tolerance)
		assert.Equal(t, "@every 15m", cfg.Rates.RefreshCron)
		assert.Equal(t, 15*time.Minute, cfg.Trade.QuoteTTL)
		assert.True(t, cfg.Trade.KYCThreshold.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, "fxoffice", cfg.Telemetry.ServiceName)
		assert.False(t, cfg.Storage.Enabled())
	})

	t.Run("loads values from environment variables with FXO prefix", func(t *testing.T) {
		t.Setenv("FXO_APP_NAME", "test-app")
		t.Setenv("FXO_APP_PORT", "9000")
		t.Setenv("FXO_DATABASE_HOST", "testdb.local")
		t.Setenv("FXO_DATABASE_PORT", "5433")
		t.Setenv("FXO_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("FXO_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("FXO_TRADE_KYC_THRESHOLD", "2500.50")
		t.Setenv("FXO_TRADE_QUOTE_TTL", "5m")
		t.Setenv("FXO_RATES_REFRESH_CRON", "*/5 * * * *")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "2500.5", cfg.Trade.KYCThreshold.String())
		assert.Equal(t, 5*time.Minute, cfg.Trade.QuoteTTL)
		assert.Equal(t, "*/5 * * * *", cfg.Rates.RefreshCron)
	})

	t.Run("rejects malformed kyc threshold", func(t *testing.T) {
		t.Setenv("FXO_TRADE_KYC_THRESHOLD", "lots")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trade.kyc_threshold")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := valid()
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
		assert.Error(t, cfg.validate())
	})

	t.Run("webhook secret needs whsec prefix", func(t *testing.T) {
		cfg := valid()
		cfg.Webhook.Secret = "plain"
		assert.Error(t, cfg.validate())

		cfg.Webhook.Secret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("k"))
		assert.NoError(t, cfg.validate())
	})

	t.Run("identification key must be 32 bytes", func(t *testing.T) {
		cfg := valid()
		cfg.Crypto.IdentificationKey = base64.StdEncoding.EncodeToString([]byte("short"))
		assert.Error(t, cfg.validate())

		cfg.Crypto.IdentificationKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
		assert.NoError(t, cfg.validate())
	})

	t.Run("production requires secrets", func(t *testing.T) {
		cfg := valid()
		cfg.App.Env = "production"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt")

		cfg.JWT.Secret = strings.Repeat("s", 32)
		cfg.Database.Password = "pw"
		cfg.Database.SSLMode = "require"
		cfg.Webhook.Secret = "whsec_c2VjcmV0"
		cfg.Identity.SecretKey = "sk_live"
		cfg.Crypto.IdentificationKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
		assert.NoError(t, cfg.validate())

		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "fx", Password: "p@ss word", DBName: "fxoffice", SSLMode: "disable"}
	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://fx:p%40ss%20word@db:5432/fxoffice"))
	assert.Contains(t, dsn, "sslmode=disable")
}
