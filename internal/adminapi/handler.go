package adminapi

import (
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

// CacheStatsFunc reports a point-in-time snapshot of the cache pool.
type CacheStatsFunc func() (size, capacity int, hits, misses int64)

// UpstreamStatsFunc reports a point-in-time snapshot of the upstream
// dispatcher's server set.
type UpstreamStatsFunc func() (strategy, fastest string, servers []string)

// Handler holds the read-only dependencies the admin API exposes.
// Unlike the teacher's handlers.Handler, there is no write surface:
// this forwarder has no zone/cluster/config-mutation concerns in
// scope (§11 DOMAIN STACK).
type Handler struct {
	logger    *slog.Logger
	startTime time.Time

	cacheStats    CacheStatsFunc
	upstreamStats UpstreamStatsFunc
	proc          *process.Process
}

// NewHandler builds a Handler. cacheStats/upstreamStats may be nil, in
// which case the corresponding section of /stats reports zero values.
func NewHandler(logger *slog.Logger, cacheStats CacheStatsFunc, upstreamStats UpstreamStatsFunc) *Handler {
	var proc *process.Process
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		proc = p
	}
	return &Handler{
		logger:        logger,
		startTime:     time.Now(),
		cacheStats:    cacheStats,
		upstreamStats: upstreamStats,
		proc:          proc,
	}
}

// Health godoc
// @Summary Health check
// @Description Reports that the admin API is serving
// @Tags system
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Forwarder statistics
// @Description Returns cache, upstream, and process statistics
// @Tags system
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	resp := StatsResponse{
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		StartTime: h.startTime,
	}

	if h.cacheStats != nil {
		size, capacity, hits, misses := h.cacheStats()
		resp.Cache = CacheStats{Size: size, Capacity: capacity, Hits: hits, Misses: misses}
		if total := hits + misses; total > 0 {
			resp.Cache.HitRate = float64(hits) / float64(total)
		}
	}

	if h.upstreamStats != nil {
		strategy, fastest, servers := h.upstreamStats()
		resp.Upstream = UpstreamStats{Strategy: strategy, Fastest: fastest, Servers: servers}
	}

	resp.Process = ProcessStats{NumGoroutine: runtime.NumGoroutine()}
	if h.proc != nil {
		if mem, err := h.proc.MemoryInfo(); err == nil && mem != nil {
			resp.Process.MemoryRSSMB = float64(mem.RSS) / 1024 / 1024
		}
		if fds, err := h.proc.NumFDs(); err == nil {
			resp.Process.OpenFDs = fds
		}
		if cpuPct, err := h.proc.CPUPercent(); err == nil {
			resp.Process.CPUPercent = cpuPct
		}
	}

	c.JSON(http.StatusOK, resp)
}
