package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "lexdesk", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 100, cfg.Limits.MessagesPerDayUser)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090
allowed_origins = ["https://a.example", "https://b.example"]

[stripe]
price_basic = "price_file_basic"
price_pro = "price_file_pro"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POSTGRES_URL", "postgres://u:p@db:5432/x")
	t.Setenv("STRIPE_PRICE_PRO", "price_env_pro")
	t.Setenv("NEXT_PUBLIC_STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("APP_ALLOWED_ORIGINS", "https://c.example, https://d.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "price_file_basic", cfg.Stripe.PriceBasic)
	assert.Equal(t, "price_env_pro", cfg.Stripe.PricePro)
	assert.Equal(t, "pk_test_123", cfg.Stripe.PublishableKey)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Postgres.URL)
	assert.Equal(t, []string{"https://c.example", "https://d.example"}, cfg.App.AllowedOrigins)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := Load()
	require.Error(t, err)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
