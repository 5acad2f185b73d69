package api

import (
	"net/http"
	"runtime"

	"knowthepast/pkg/tracker"
)

// CacheSizer reports how many entries a cache holds.
type CacheSizer interface {
	Len() int
}

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	tracker *tracker.Tracker
	caches  map[string]CacheSizer
	hub     *Hub
}

// NewStatsHandler creates a stats handler. caches maps a display name to a cache.
func NewStatsHandler(t *tracker.Tracker, caches map[string]CacheSizer, hub *Hub) *StatsHandler {
	return &StatsHandler{tracker: t, caches: caches, hub: hub}
}

type ProviderStatsDTO struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	HitRate       int64 `json:"hit_rate"`
}

type StatsResponse struct {
	UptimeSec    int64                       `json:"uptime_sec"`
	MemoryMB     uint64                      `json:"memory_mb"`
	Goroutines   int                         `json:"goroutines"`
	EventClients int                         `json:"event_clients"`
	Caches       map[string]int              `json:"caches"`
	Providers    map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		UptimeSec:  int64(h.tracker.Uptime().Seconds()),
		MemoryMB:   mem.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		Caches:     make(map[string]int, len(h.caches)),
		Providers:  make(map[string]ProviderStatsDTO),
	}
	if h.hub != nil {
		resp.EventClients = h.hub.Count()
	}
	for name, c := range h.caches {
		resp.Caches[name] = c.Len()
	}

	for provider, stats := range h.tracker.Snapshot() {
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[provider] = ProviderStatsDTO{
			CacheHits:     stats.CacheHits,
			CacheMisses:   stats.CacheMisses,
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			HitRate:       hitRate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
