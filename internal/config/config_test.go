package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2053, cfg.Server.Port)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "cache", cfg.Cache.File)
	assert.Equal(t, 1000, cfg.Cache.Num)
	assert.Equal(t, int(CacheExpireStrict), cfg.Cache.GetStrategy)
	assert.Equal(t, DefaultServers, cfg.Upstream.Servers)
	assert.Equal(t, int(StrategyFastestSticky), cfg.Upstream.ChooseStrategy)
	assert.Equal(t, "12h", cfg.Upstream.ChooseDuration)
	assert.Equal(t, int(IPChooseFirst), cfg.IPChoose.Strategy)
	assert.False(t, cfg.API.Enabled)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 5300
cache:
  num: 50
  get_strategy: 1
  ttl_timeout_ms: 5000
upstream:
  servers:
    - "9.9.9.9"
  choose_strategy: 1
filtering:
  sources:
    - "00-gov.cn"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5300, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Cache.Num)
	assert.Equal(t, int(CacheStaleWithRefresh), cfg.Cache.GetStrategy)
	assert.Equal(t, 5000, cfg.Cache.TTLTimeoutMs)
	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.Upstream.Servers)
	assert.Equal(t, int(StrategyRace), cfg.Upstream.ChooseStrategy)
	assert.Equal(t, []string{"00-gov.cn"}, cfg.Filtering.Sources)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DNSFWD_SERVER_PORT", "9999")
	t.Setenv("DNSFWD_UPSTREAM_SERVERS", "1.1.1.1,8.8.4.4:5353")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"1.1.1.1:53", "8.8.4.4:5353"}, cfg.Upstream.Servers)
}

func TestNormalizeUpstream(t *testing.T) {
	assert.Equal(t, "8.8.8.8:53", normalizeUpstream("8.8.8.8"))
	assert.Equal(t, "8.8.8.8:5353", normalizeUpstream("8.8.8.8:5353"))
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream:\n  choose_strategy: 9\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: [invalid"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
