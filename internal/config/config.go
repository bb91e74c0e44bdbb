// Package config provides configuration loading and validation for the
// forwarder.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (DNSFWD_* prefix)
//  2. YAML config file (if specified with --config)
//  3. Hardcoded defaults
//
// All configuration is validated during Load() so a bad setting is a fatal
// startup error rather than a surprise at request time (§7 "Configuration
// error at startup: fatal, process exits").
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultServers is the upstream list used when none is configured.
var DefaultServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DNSFWD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 2053)
	v.SetDefault("server.reuseport", true)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.file", "cache")
	v.SetDefault("cache.num", 1000)
	v.SetDefault("cache.get_strategy", int(CacheExpireStrict))
	v.SetDefault("cache.ttl_timeout_ms", 0)

	v.SetDefault("upstream.servers", DefaultServers)
	v.SetDefault("upstream.choose_strategy", int(StrategyFastestSticky))
	v.SetDefault("upstream.choose_duration", "12h")

	v.SetDefault("filtering.sources", []string{})
	v.SetDefault("filtering.refresh_interval", "24h")

	v.SetDefault("ip_choose.strategy", int(IPChooseFirst))

	v.SetDefault("logging.level", "error")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
}

// Load loads configuration from a YAML file (if path is non-empty) with
// environment variable overrides, then validates the result.
func Load(path string) (*Config, error) {
	v, err := initConfig(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:      v.GetString("server.host"),
			Port:      v.GetInt("server.port"),
			Reuseport: v.GetBool("server.reuseport"),
		},
		Cache: CacheConfig{
			Enabled:      v.GetBool("cache.enabled"),
			File:         v.GetString("cache.file"),
			Num:          v.GetInt("cache.num"),
			GetStrategy:  v.GetInt("cache.get_strategy"),
			TTLTimeoutMs: v.GetInt("cache.ttl_timeout_ms"),
		},
		Upstream: UpstreamConfig{
			Servers:        getStringSliceOrSplit(v, "upstream.servers"),
			ChooseStrategy: v.GetInt("upstream.choose_strategy"),
			ChooseDuration: v.GetString("upstream.choose_duration"),
		},
		Filtering: FilteringConfig{
			Sources:         getStringSliceOrSplit(v, "filtering.sources"),
			RefreshInterval: v.GetString("filtering.refresh_interval"),
		},
		IPChoose: IPChooseConfig{
			Strategy: v.GetInt("ip_choose.strategy"),
		},
		Logging: LoggingConfig{
			Level:            strings.ToUpper(v.GetString("logging.level")),
			Structured:       v.GetBool("logging.structured"),
			StructuredFormat: v.GetString("logging.structured_format"),
			IncludePID:       v.GetBool("logging.include_pid"),
			ExtraFields:      v.GetStringMapString("logging.extra_fields"),
		},
		API: APIConfig{
			Enabled: v.GetBool("api.enabled"),
			Host:    v.GetString("api.host"),
			Port:    v.GetInt("api.port"),
		},
	}

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getStringSliceOrSplit handles both slice and comma-separated string
// values, since env vars arrive as a single string while YAML arrives as
// a list.
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		result := make([]string, 0, len(slice))
		for _, s := range slice {
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
		return result
	}
	if s := v.GetString(key); s != "" {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return nil
}

// normalizeConfig validates and fills in derived fields.
func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	if len(cfg.Upstream.Servers) == 0 {
		cfg.Upstream.Servers = DefaultServers
	}
	for i, s := range cfg.Upstream.Servers {
		cfg.Upstream.Servers[i] = normalizeUpstream(s)
	}

	switch ServerChooseStrategy(cfg.Upstream.ChooseStrategy) {
	case StrategyFastestSticky, StrategyRace, StrategyCombine:
	default:
		return fmt.Errorf("upstream.choose_strategy must be 0, 1, or 2, got %d", cfg.Upstream.ChooseStrategy)
	}
	if cfg.Upstream.ChooseDuration == "" {
		cfg.Upstream.ChooseDuration = "12h"
	}
	if _, err := time.ParseDuration(cfg.Upstream.ChooseDuration); err != nil {
		return fmt.Errorf("upstream.choose_duration: %w", err)
	}

	switch CacheGetStrategy(cfg.Cache.GetStrategy) {
	case CacheExpireStrict, CacheStaleWithRefresh:
	default:
		return fmt.Errorf("cache.get_strategy must be 0 or 1, got %d", cfg.Cache.GetStrategy)
	}
	if cfg.Cache.Num <= 0 {
		cfg.Cache.Num = 1000
	}
	if cfg.Cache.File == "" {
		cfg.Cache.File = "cache"
	}

	switch IPChooseStrategy(cfg.IPChoose.Strategy) {
	case IPChooseFirst, IPChooseProbe:
	default:
		return fmt.Errorf("ip_choose.strategy must be 0 or 1, got %d", cfg.IPChoose.Strategy)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "ERROR"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}
	if cfg.Filtering.RefreshInterval == "" {
		cfg.Filtering.RefreshInterval = "24h"
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled && (cfg.API.Port <= 0 || cfg.API.Port > 65535) {
		return errors.New("api.port must be 1..65535")
	}

	return nil
}

// normalizeUpstream appends the standard DNS port if the configured
// endpoint omits one.
func normalizeUpstream(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if _, _, err := net.SplitHostPort(s); err == nil {
		return s
	}
	return s + ":53"
}
