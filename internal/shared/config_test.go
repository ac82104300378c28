package shared_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambulance_app/internal/domain"
	"ambulance_app/internal/shared"
)

var configKeys = []string{
	"CONFIG_FILE", "APP_ENV", "HTTP_ADDR", "METRICS_ADDR", "MYSQL_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"OVERPASS_URL", "OVERPASS_RPS", "OVERPASS_MAX_RETRIES", "SEARCH_TIMEOUT_SECONDS", "SEARCH_RADIUS_METERS",
	"SEARCH_MAX_RESULTS", "SEARCH_LANG", "CACHE_TTL_SECONDS", "AVERAGE_SPEED_KMH", "WARM_WORKERS", "WARM_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := shared.Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", c.AppEnv)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 0, c.OverpassMaxRetries)
	assert.Equal(t, 15*time.Second, c.SearchTimeout)
	assert.Equal(t, 10000, c.SearchRadius)
	assert.Equal(t, 5, c.SearchMax)
	assert.Equal(t, "en", c.SearchLang)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Equal(t, 4, c.WarmWorkers)
	assert.Empty(t, c.WarmOrigins)

	sc := c.SearchConfig()
	assert.Equal(t, 15*time.Second, sc.Timeout)
	assert.Equal(t, 5, sc.MaxResults)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_env: dev
http_addr: ":9000"
search_timeout_seconds: 5
search_lang: sw
warm_origins: "-1.2864,36.8172; -4.0435,39.6682"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7000")

	c, err := shared.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", c.AppEnv)
	assert.Equal(t, ":7000", c.HTTPAddr, "env wins over file")
	assert.Equal(t, 5*time.Second, c.SearchTimeout)
	assert.Equal(t, "sw", c.SearchLang)
	assert.Equal(t, []domain.Coordinate{{Lat: -1.2864, Lon: 36.8172}, {Lat: -4.0435, Lon: 39.6682}}, c.WarmOrigins)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCH_MAX_RESULTS", "five")
	t.Setenv("WARM_ORIGINS", "91,0")

	c, err := shared.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidNumber)
	assert.ErrorIs(t, err, shared.ErrInvalidOrigin)
	assert.Equal(t, 5, c.SearchMax, "bad value falls back to default")

	t.Setenv("SEARCH_MAX_RESULTS", "")
	t.Setenv("WARM_ORIGINS", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = shared.Load()
	assert.Error(t, err)
}

func TestParseOrigins(t *testing.T) {
	got, err := shared.ParseOrigins(" -1.28,36.81 ;; 0,0 ")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = shared.ParseOrigins("1,2,3")
	assert.ErrorIs(t, err, shared.ErrInvalidOrigin)
	_, err = shared.ParseOrigins("x,2")
	assert.ErrorIs(t, err, shared.ErrInvalidOrigin)
}
