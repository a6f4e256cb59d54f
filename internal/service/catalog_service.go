package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agendapro/internal/availability"
	"agendapro/internal/domain"
	"agendapro/internal/logging"
	"agendapro/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CatalogService manages a tenant's services and public profile.
type CatalogService struct {
	repo   domain.Repository
	logger *zerolog.Logger
	now    func() time.Time
}

type ServiceInput struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

func (in *ServiceInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: service name is required", ErrValidation)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	case in.DurationMinutes <= 0 || in.DurationMinutes > availability.MinutesPerDay:
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrValidation, availability.MinutesPerDay)
	}
	return nil
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	l := logging.Component(logger, "catalog")
	return &CatalogService{repo: repo, logger: l, now: time.Now}
}

func (s *CatalogService) ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*models.Service, error) {
	return s.repo.ListServices(ctx, tenantID, activeOnly)
}

func (s *CatalogService) CreateService(ctx context.Context, tenantID string, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	svc := &models.Service{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Name:            in.Name,
		Description:     in.Description,
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		IsActive:        in.IsActive == nil || *in.IsActive,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	logging.Ctx(logging.WithTenant(ctx, tenantID), s.logger).Info().Str("service_id", svc.ID).Msg("service created")
	return svc, nil
}

// UpdateService replaces the editable fields. Existing appointments keep their snapshot.
func (s *CatalogService) UpdateService(ctx context.Context, tenantID, id string, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	svc, err := s.repo.GetService(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	svc.Name = in.Name
	svc.Description = in.Description
	svc.Price = in.Price
	svc.DurationMinutes = in.DurationMinutes
	if in.IsActive != nil {
		svc.IsActive = *in.IsActive
	}
	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *CatalogService) DeactivateService(ctx context.Context, tenantID, id string) error {
	svc, err := s.repo.GetService(ctx, tenantID, id)
	if err != nil {
		return err
	}
	svc.IsActive = false
	return s.repo.UpdateService(ctx, svc)
}

func (s *CatalogService) GetProfile(ctx context.Context, tenantID string) (*models.TenantProfile, error) {
	return s.repo.GetProfile(ctx, tenantID)
}

// UpdateProfile stores a profile whose schedule resolves and which accepts at least
// one payment method.
func (s *CatalogService) UpdateProfile(ctx context.Context, profile *models.TenantProfile) (*models.TenantProfile, error) {
	if strings.TrimSpace(profile.BusinessName) == "" {
		return nil, fmt.Errorf("%w: business name is required", ErrValidation)
	}
	if _, err := availability.Window(&profile.Schedule); err != nil {
		return nil, fmt.Errorf("%w: schedule: %v", ErrValidation, err)
	}
	pm := profile.PaymentMethods
	if !pm.Pix && !pm.Card && !pm.Cash {
		return nil, fmt.Errorf("%w: at least one payment method is required", ErrValidation)
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
