package service

import (
	"context"
	"fmt"
	"time"

	"agendapro/internal/domain"
	"agendapro/internal/events"
	"agendapro/internal/logging"
	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettingsService is the process-wide store for admin settings: cache, then
// database, then configured defaults.
type SettingsService struct {
	repo     domain.SettingsRepository
	cache    domain.SettingsCache
	eventBus *events.EventBus
	defaults models.AdminSettings
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewSettingsService(
	repo domain.SettingsRepository,
	cache domain.SettingsCache,
	eventBus *events.EventBus,
	defaults models.AdminSettings,
	logger *zerolog.Logger,
) *SettingsService {
	l := logging.Component(logger, "settings")
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		defaults: defaults,
		logger:   l,
		now:      time.Now,
	}
}

func (s *SettingsService) Get(ctx context.Context) (*models.AdminSettings, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSettings(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("settings cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	stored, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		d := s.defaults
		stored = &d
	}

	if s.cache != nil {
		if err := s.cache.SetSettings(ctx, stored); err != nil {
			s.logger.Warn().Err(err).Msg("settings cache write failed")
		}
	}
	return stored, nil
}

// Update validates, persists and broadcasts new settings.
func (s *SettingsService) Update(ctx context.Context, settings *models.AdminSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	settings.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.SetSettings(ctx, settings); err != nil {
			s.logger.Warn().Err(err).Msg("settings cache refresh failed")
			_ = s.cache.InvalidateSettings(ctx)
		}
	}

	if err := s.eventBus.PublishJSON(events.EventSettingsUpdated, settings); err != nil {
		s.logger.Error().Err(err).Msg("publish settings event error")
	}
	s.logger.Info().Str("pix_key", settings.PixKey).Msg("settings updated")
	return nil
}

// Subscribe calls fn with the new settings after every successful Update.
func (s *SettingsService) Subscribe(fn func(models.AdminSettings)) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Subscribe(events.EventSettingsUpdated, func(e *events.Event) error {
		var settings models.AdminSettings
		if err := e.Decode(&settings); err != nil {
			return err
		}
		fn(settings)
		return nil
	})
}

func (s *SettingsService) PlanPrice(ctx context.Context, plan string) (decimal.Decimal, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := settings.Plans[plan]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", subscription.ErrUnknownPlan, plan)
	}
	return p.Price, nil
}

// AffiliatePlanMixed estimates a sales mix of 60% complete and 40% essential plans.
const AffiliatePlanMixed = "mixed"

var mixedShare = map[string]decimal.Decimal{
	models.PlanComplete:  decimal.RequireFromString("0.6"),
	models.PlanEssential: decimal.RequireFromString("0.4"),
}

// AffiliateEstimate is what an affiliate earns for a number of sales.
type AffiliateEstimate struct {
	CommissionPercent int                        `json:"commission_percent"`
	MinSales          int                        `json:"min_sales"`
	PerSale           map[string]decimal.Decimal `json:"per_sale"`
	Plan              string                     `json:"plan"`
	Sales             int                        `json:"sales"`
	Earnings          decimal.Decimal            `json:"earnings"`
}

// EstimateAffiliate prices sales of plan, or of the mixed split, at the current
// commission.
func (s *SettingsService) EstimateAffiliate(ctx context.Context, plan string, sales int) (*AffiliateEstimate, error) {
	if sales < 0 {
		return nil, fmt.Errorf("%w: sales must not be negative", ErrValidation)
	}
	if plan == "" {
		plan = AffiliatePlanMixed
	}
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	est := &AffiliateEstimate{
		CommissionPercent: settings.Affiliate.CommissionPercent,
		MinSales:          settings.Affiliate.MinSales,
		PerSale:           make(map[string]decimal.Decimal, len(settings.Plans)),
		Plan:              plan,
		Sales:             sales,
		Earnings:          decimal.Zero,
	}
	for id := range settings.Plans {
		est.PerSale[id] = settings.Commission(id)
	}

	n := decimal.NewFromInt(int64(sales))
	if plan == AffiliatePlanMixed {
		for id, share := range mixedShare {
			est.Earnings = est.Earnings.Add(est.PerSale[id].Mul(n).Mul(share))
		}
		est.Earnings = est.Earnings.Round(2)
		return est, nil
	}

	perSale, ok := est.PerSale[plan]
	if !ok {
		return nil, fmt.Errorf("%w: %q", subscription.ErrUnknownPlan, plan)
	}
	est.Earnings = perSale.Mul(n)
	return est, nil
}
