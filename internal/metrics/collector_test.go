package metrics

import (
	"sync"
	"testing"
	"time"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, time.Second)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() panicked with nil provider: %v", r)
		}
	}()
	collector.collect()
}

func TestCollectUpdatesCacheGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{CachedThumbnails: 42, CacheBytes: 1 << 20},
	}

	NewCollector(provider, time.Minute).collect()

	if got := gaugeValue(t, ThumbnailCacheCount); got != 42 {
		t.Errorf("ThumbnailCacheCount = %v, want 42", got)
	}
	if got := gaugeValue(t, ThumbnailCacheSize); got != 1<<20 {
		t.Errorf("ThumbnailCacheSize = %v, want %d", got, 1<<20)
	}
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{CachedThumbnails: 1}}
	collector := NewCollector(provider, 10*time.Millisecond)

	collector.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	collector.Stop()

	if provider.callCount() < 3 {
		t.Errorf("collector ran %d times, want at least 3", provider.callCount())
	}
}
