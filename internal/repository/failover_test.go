package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"agendapro/internal/config"
	"agendapro/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminSettings), args.Error(1)
}

func (m *mockCache) SetSettings(ctx context.Context, settings *models.AdminSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *mockCache) InvalidateSettings(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSettingsCache(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSettingsCache(primary, fallback, &logger)
	ctx := context.Background()

	settings := models.DefaultAdminSettings()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetSettings", ctx).Return(&settings, nil).Once()

		got, err := repo.GetSettings(ctx)
		assert.NoError(t, err)
		assert.Equal(t, &settings, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("GetSettings", ctx).Return(nil, errors.New("fail")).Once()
		fallback.On("GetSettings", ctx).Return(&settings, nil).Once()

		got, err := repo.GetSettings(ctx)
		assert.NoError(t, err)
		assert.Equal(t, &settings, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DownSkipsPrimary", func(t *testing.T) {
		fallback.On("CheckRateLimit", ctx, "phone:1", 5, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "phone:1", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "phone:1", 5, time.Minute)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("GetSettings", ctx).Return(&settings, nil).Once()

		got, err := repo.GetSettings(ctx)
		assert.NoError(t, err)
		assert.Equal(t, &settings, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("GetSettings", ctx).Return(nil, errors.New("still fail")).Once()
		fallback.On("GetSettings", ctx).Return(nil, nil).Once()

		got, err := repo.GetSettings(ctx)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, repo.isDown.Load())
		assert.WithinDuration(t, time.Now(), time.Unix(0, repo.lastCheck.Load()), time.Second)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetSettingsWritesBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("SetSettings", ctx, &settings).Return(nil).Once()
		primary.On("SetSettings", ctx, &settings).Return(nil).Once()

		assert.NoError(t, repo.SetSettings(ctx, &settings))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetSettingsFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("SetSettings", ctx, &settings).Return(nil).Once()
		primary.On("SetSettings", ctx, &settings).Return(errors.New("fail")).Once()

		assert.NoError(t, repo.SetSettings(ctx, &settings))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("InvalidateSettings", ctx).Return(nil).Once()
		primary.On("InvalidateSettings", ctx).Return(errors.New("fail")).Once()

		assert.NoError(t, repo.InvalidateSettings(ctx))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("CheckRateLimitFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "phone:6", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "phone:6", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "phone:6", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

func TestFailoverSettingsCache_ResyncAfterOutage(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	logger := zerolog.New(io.Discard)
	repo := NewFailoverSettingsCache(NewRedisSettingsCache(client, 10*time.Minute), NewMemorySettingsCache(10*time.Minute), &logger)
	now := time.Now()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	before := models.DefaultAdminSettings()
	require.NoError(t, repo.SetSettings(ctx, &before))

	s.SetError("down")
	updated := models.DefaultAdminSettings()
	plan := updated.Plans[models.PlanEssential]
	plan.Price = decimal.RequireFromString("99.00")
	updated.Plans[models.PlanEssential] = plan
	require.NoError(t, repo.SetSettings(ctx, &updated))
	assert.True(t, repo.isDown.Load())

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("99.00").Equal(got.Plans[models.PlanEssential].Price))

	s.SetError("")
	now = now.Add(2 * time.Minute)

	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("99.00").Equal(got.Plans[models.PlanEssential].Price))
	assert.False(t, repo.isDown.Load())
	assert.False(t, repo.stale.Load())

	raw, err := s.Get(settingsKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "99")
}
