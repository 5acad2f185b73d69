package tracker

import (
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "maps"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	// Test Tracking
	tr.TrackCacheHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)
	tr.TrackAPIZero(provider)

	// Verify Snapshot
	stats = tr.Snapshot()
	pStats, ok := stats[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}

	if pStats.CacheHits != 1 {
		t.Errorf("Expected 1 CacheHit, got %d", pStats.CacheHits)
	}
	if pStats.CacheMisses != 1 {
		t.Errorf("Expected 1 CacheMiss, got %d", pStats.CacheMisses)
	}
	if pStats.APISuccess != 1 {
		t.Errorf("Expected 1 APISuccess, got %d", pStats.APISuccess)
	}
	if pStats.APIFailures != 1 {
		t.Errorf("Expected 1 APIFailure, got %d", pStats.APIFailures)
	}
	if pStats.APIZeroResult != 1 {
		t.Errorf("Expected 1 APIZeroResult, got %d", pStats.APIZeroResult)
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.TrackAPISuccess("maps")
	tr.TrackCacheHit("maps")
	tr.TrackAPIFailure("gemini")

	tr.Reset()

	stats := tr.Snapshot()
	if len(stats) != 2 {
		t.Fatalf("providers should survive Reset, got %d", len(stats))
	}
	if stats["maps"].APISuccess != 0 || stats["maps"].CacheHits != 0 || stats["gemini"].APIFailures != 0 {
		t.Errorf("counters not zeroed: %+v", stats)
	}
	if got := tr.Providers(); len(got) != 2 || got[0] != "gemini" || got[1] != "maps" {
		t.Errorf("Providers() = %v, want sorted [gemini maps]", got)
	}
}
