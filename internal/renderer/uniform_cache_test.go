package renderer

import (
	"testing"
)

func TestNewUniformCache(t *testing.T) {
	cache := NewUniformCache(7)

	if cache == nil {
		t.Fatal("NewUniformCache returned nil")
	}

	if cache.locations == nil {
		t.Error("locations map should be initialized")
	}

	if cache.program != 7 {
		t.Errorf("program = %d, want 7", cache.program)
	}
}

func TestUniformCacheClear(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["uTime"] = 5

	cache.Clear()

	if len(cache.locations) != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestUniformCacheReturnsCachedLocation(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["uSize"] = 3

	// served from the map, no GL call involved
	if loc := cache.GetLocation("uSize"); loc != 3 {
		t.Errorf("GetLocation = %d, want 3", loc)
	}
}
