package repository

import (
	"context"
	"sync"
	"time"

	"agendapro/internal/models"
)

type MemorySettingsCache struct {
	mu         sync.RWMutex
	settings   *models.AdminSettings
	expiresAt  time.Time
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySettingsCache(ttl time.Duration) *MemorySettingsCache {
	return &MemorySettingsCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySettingsCache) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil || (r.ttl > 0 && r.now().After(r.expiresAt)) {
		return nil, nil
	}
	copied := copySettings(r.settings)
	return &copied, nil
}

func (r *MemorySettingsCache) SetSettings(ctx context.Context, settings *models.AdminSettings) error {
	copied := copySettings(settings)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &copied
	r.expiresAt = r.now().Add(r.ttl)
	return nil
}

func (r *MemorySettingsCache) InvalidateSettings(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = nil
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemorySettingsCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}

// copySettings detaches the plans map so callers cannot mutate the cached value.
func copySettings(s *models.AdminSettings) models.AdminSettings {
	out := *s
	out.Plans = make(map[string]models.PlanSettings, len(s.Plans))
	for k, v := range s.Plans {
		out.Plans[k] = v
	}
	return out
}
