// Package config provides configuration loading for the forwarder using
// Viper. Hardcoded defaults are overridden by an optional YAML file, which
// environment variables override in turn (§6 Configuration).
//
// Environment variables use the DNSFWD_ prefix and the config key with
// "." replaced by "_": DNSFWD_SERVER_PORT, DNSFWD_UPSTREAM_SERVERS,
// DNSFWD_CACHE_NUM, and so on.
package config

// ServerChooseStrategy selects how the upstream dispatcher picks among
// configured servers (§4.F "Sender strategies").
type ServerChooseStrategy int

const (
	// StrategyFastestSticky always sends to the current fastest server,
	// re-benchmarking periodically.
	StrategyFastestSticky ServerChooseStrategy = iota
	// StrategyRace fans out to all servers and returns the first answer.
	StrategyRace
	// StrategyCombine fans out to all servers and unions their A records.
	StrategyCombine
)

// CacheGetStrategy selects the cache serving policy (§4.D).
type CacheGetStrategy int

const (
	// CacheExpireStrict serves the cached record until expiry, then
	// blocks on a fresh upstream round trip.
	CacheExpireStrict CacheGetStrategy = iota
	// CacheStaleWithRefresh serves a stale record during a grace window
	// while refreshing it in the background.
	CacheStaleWithRefresh
)

// IPChooseStrategy selects how the pipeline picks among multiple A
// records in one answer (§4.G stage 4).
type IPChooseStrategy int

const (
	// IPChooseFirst keeps only the first address (IPFirst stage).
	IPChooseFirst IPChooseStrategy = iota
	// IPChooseProbe probes every address with ICMP echo and keeps the
	// fastest responder (IPSelect stage).
	IPChooseProbe
)

// ServerConfig contains the UDP listener settings (§6 "Network").
type ServerConfig struct {
	Host      string `yaml:"host"      mapstructure:"host"`
	Port      int    `yaml:"port"      mapstructure:"port"`
	Reuseport bool   `yaml:"reuseport" mapstructure:"reuseport"`
}

// CacheConfig controls the cache stage (§6 cache/cache-file/cache-num,
// cache-get-strategy, cache-ttl-timeout-ms).
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled"         mapstructure:"enabled"`
	File         string `yaml:"file"            mapstructure:"file"`
	Num          int    `yaml:"num"             mapstructure:"num"`
	GetStrategy  int    `yaml:"get_strategy"    mapstructure:"get_strategy"`
	TTLTimeoutMs int    `yaml:"ttl_timeout_ms"  mapstructure:"ttl_timeout_ms"`
}

// UpstreamConfig contains the configured upstream endpoints and the
// server-selection strategy (§6 servers, server-choose-strategy,
// server-choose-duration-h).
type UpstreamConfig struct {
	Servers        []string `yaml:"servers"           mapstructure:"servers"`
	ChooseStrategy int      `yaml:"choose_strategy"   mapstructure:"choose_strategy"`
	ChooseDuration string   `yaml:"choose_duration"   mapstructure:"choose_duration"` // e.g. "12h"
}

// FilteringConfig controls the domain blocklist (§6 filters).
type FilteringConfig struct {
	Sources         []string `yaml:"sources"          mapstructure:"sources"`
	RefreshInterval string   `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// IPChooseConfig controls answer-address selection (§6
// ip-choose-strategy).
type IPChooseConfig struct {
	Strategy int `yaml:"strategy" mapstructure:"strategy"`
}

// LoggingConfig contains logging settings (§6 log-level plus the
// teacher's structured-logging knobs, §10 AMBIENT STACK).
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"`
}

// APIConfig contains the optional read-only admin surface (§11 DOMAIN
// STACK, adminapi). Disabled by default.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// Config is the root configuration structure (§6 Configuration table).
type Config struct {
	Server    ServerConfig    `yaml:"server"    mapstructure:"server"`
	Cache     CacheConfig     `yaml:"cache"     mapstructure:"cache"`
	Upstream  UpstreamConfig  `yaml:"upstream"  mapstructure:"upstream"`
	Filtering FilteringConfig `yaml:"filtering" mapstructure:"filtering"`
	IPChoose  IPChooseConfig  `yaml:"ip_choose" mapstructure:"ip_choose"`
	Logging   LoggingConfig   `yaml:"logging"   mapstructure:"logging"`
	API       APIConfig       `yaml:"api"       mapstructure:"api"`
}
