package repository

import (
	"context"
	"sync/atomic"
	"time"

	"agendapro/internal/domain"
	"agendapro/internal/models"

	"github.com/rs/zerolog"
)

const primaryRetryInterval = time.Minute

// FailoverSettingsCache uses Redis while it answers and an in-memory cache otherwise.
// After a failure the primary is retried once per minute. Writes that miss the
// primary mark its copy stale; it is resynced from the fallback before the next read.
type FailoverSettingsCache struct {
	primary   domain.SettingsCache
	fallback  domain.SettingsCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	stale     atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSettingsCache(primary, fallback domain.SettingsCache, logger *zerolog.Logger) *FailoverSettingsCache {
	return &FailoverSettingsCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverSettingsCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > primaryRetryInterval
}

func (r *FailoverSettingsCache) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary settings cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverSettingsCache) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary settings cache recovered")
	}
}

// dropStale replaces the primary's copy with the fallback's if a write missed it.
func (r *FailoverSettingsCache) dropStale(ctx context.Context) error {
	if !r.stale.Load() {
		return nil
	}
	current, err := r.fallback.GetSettings(ctx)
	if err == nil && current != nil {
		err = r.primary.SetSettings(ctx, current)
	} else {
		err = r.primary.InvalidateSettings(ctx)
	}
	if err != nil {
		return err
	}
	r.stale.Store(false)
	r.logger.Info().Msg("Primary settings cache resynced after outage")
	return nil
}

func (r *FailoverSettingsCache) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	if r.usePrimary() {
		if err := r.dropStale(ctx); err != nil {
			r.markDown("get_settings", err)
			return r.fallback.GetSettings(ctx)
		}
		settings, err := r.primary.GetSettings(ctx)
		if err == nil {
			r.markUp()
			return settings, nil
		}
		r.markDown("get_settings", err)
	}

	return r.fallback.GetSettings(ctx)
}

func (r *FailoverSettingsCache) SetSettings(ctx context.Context, settings *models.AdminSettings) error {
	// the fallback always holds a copy so an outage does not start from an empty cache
	_ = r.fallback.SetSettings(ctx, settings)

	if r.usePrimary() {
		err := r.primary.SetSettings(ctx, settings)
		if err == nil {
			r.stale.Store(false)
			r.markUp()
			return nil
		}
		r.markDown("set_settings", err)
	}
	r.stale.Store(true)
	return nil
}

func (r *FailoverSettingsCache) InvalidateSettings(ctx context.Context) error {
	_ = r.fallback.InvalidateSettings(ctx)

	if r.usePrimary() {
		err := r.primary.InvalidateSettings(ctx)
		if err == nil {
			r.stale.Store(false)
			r.markUp()
			return nil
		}
		r.markDown("invalidate_settings", err)
	}
	r.stale.Store(true)
	return nil
}

func (r *FailoverSettingsCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("check_rate_limit", err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
