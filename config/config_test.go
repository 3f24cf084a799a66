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

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expire)
	assert.Equal(t, "/static/images/default-pic.png", cfg.Warbler.DefaultImageURL)
	assert.Equal(t, 100, cfg.Warbler.TimelineLimit)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WARBLER_SERVER_PORT", "9090")
	t.Setenv("WARBLER_DATABASE_DRIVER", "postgres")
	t.Setenv("WARBLER_WARBLER_TIMELINE_LIMIT", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Warbler.TimelineLimit)
	assert.Equal(t, ":9090", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "oracle"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Database: DatabaseConfig{Driver: "postgres"}, Server: ServerConfig{Mode: "release"}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.Warbler.BcryptCost)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
