package adminapi

import "time"

// StatusResponse is the /health response body.
type StatusResponse struct {
	Status string `json:"status"`
}

// CacheStats reports the cache pool's current size and its hit rate
// since startup (§2 component E).
type CacheStats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	HitRate   float64 `json:"hit_rate"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
}

// UpstreamStats reports the dispatcher's current fastest-server choice
// and the configured sender strategy (§2 component F).
type UpstreamStats struct {
	Strategy string   `json:"strategy"`
	Fastest  string   `json:"fastest"`
	Servers  []string `json:"servers"`
}

// ProcessStats is a lightweight gopsutil-derived snapshot (§11 DOMAIN
// STACK, gopsutil home).
type ProcessStats struct {
	MemoryRSSMB    float64 `json:"memory_rss_mb"`
	OpenFDs        int32   `json:"open_fds"`
	NumGoroutine   int     `json:"num_goroutine"`
	CPUPercent     float64 `json:"cpu_percent"`
}

// StatsResponse is the /stats response body.
type StatsResponse struct {
	Uptime    string        `json:"uptime"`
	StartTime time.Time     `json:"start_time"`
	Cache     CacheStats    `json:"cache"`
	Upstream  UpstreamStats `json:"upstream"`
	Process   ProcessStats  `json:"process"`
}
