package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATA_SOURCE", "memory")
	t.Setenv("CATALOG_CACHE_TTL", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("PLAYER_IDLE_TTL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.PlayerIdleTTL)
	assert.Equal(t, DataSourceMemory, cfg.DataSource)
	assert.Equal(t, 10*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfigRESTRequiresURL(t *testing.T) {
	t.Setenv("DATA_SOURCE", "rest")
	t.Setenv("BAAS_URL", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "BAAS_URL")
}

func TestLoadConfigBadDurationKeepsDefault(t *testing.T) {
	t.Setenv("DATA_SOURCE", "memory")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	assert.ErrorContains(t, err, "REQUEST_TIMEOUT")
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
