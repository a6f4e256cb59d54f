package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agendapro/internal/availability"
	"agendapro/internal/database"
	"agendapro/internal/domain"
	"agendapro/internal/events"
	"agendapro/internal/logging"
	"agendapro/internal/metrics"
	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type BookingOptions struct {
	MaxBookingDays int
	RateLimit      int
	RateWindow     time.Duration
	Location       *time.Location
	Policy         subscription.Policy
}

type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	limiter        domain.RateLimiter
	maxBookingDays int
	rateLimit      int
	rateWindow     time.Duration
	location       *time.Location
	policy         subscription.Policy
	logger         *zerolog.Logger
	now            func() time.Time
}

// AppointmentRequest is what a client submits from the public booking page.
type AppointmentRequest struct {
	TenantID      string `json:"-"`
	ServiceID     string `json:"service_id"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

func NewBookingService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	limiter domain.RateLimiter,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = models.BookingRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = models.BookingRateWindow * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	l := logging.Component(logger, "booking")
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		limiter:        limiter,
		maxBookingDays: opts.MaxBookingDays,
		rateLimit:      opts.RateLimit,
		rateWindow:     opts.RateWindow,
		location:       opts.Location,
		policy:         opts.Policy,
		logger:         l,
		now:            time.Now,
	}
}

func (s *BookingService) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// ValidateBookingDate accepts dates from today up to maxBookingDays ahead.
func (s *BookingService) ValidateBookingDate(date time.Time) error {
	date = date.In(s.location)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.location)
	today := s.today()

	if day.Before(today) {
		return ErrPastDate
	}
	if day.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

func (s *BookingService) parseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, date, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, date)
	}
	return d, nil
}

func (s *BookingService) loadProfile(ctx context.Context, tenantID string) (*models.TenantProfile, error) {
	profile, err := s.repo.GetProfile(ctx, tenantID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, availability.ErrConfigurationMissing
	}
	return profile, err
}

func (s *BookingService) activeService(ctx context.Context, tenantID, serviceID string) (*models.Service, error) {
	svc, err := s.repo.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrServiceInactive
	}
	return svc, nil
}

func (s *BookingService) bookedIntervals(ctx context.Context, tenantID, date string) ([]availability.Interval, error) {
	appointments, err := s.repo.ListAppointments(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	booked, bad := availability.BookedFromAppointments(appointments)
	for _, e := range bad {
		logging.Ctx(logging.WithTenant(ctx, tenantID), s.logger).Warn().Err(e).Str("date", date).Msg("skipping malformed appointment")
	}
	return booked, nil
}

func (s *BookingService) checkAccess(ctx context.Context, tenantID string) error {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !subscription.HasAccess(tenant, s.now(), s.policy) {
		return ErrNoAccess
	}
	return nil
}

// GetAvailableSlots lists the free start times for a service on a date. It applies
// the same date window and tenant access rules as CreateAppointment.
func (s *BookingService) GetAvailableSlots(ctx context.Context, tenantID, serviceID, date string) ([]string, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateBookingDate(day); err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, tenantID); err != nil {
		return nil, err
	}
	svc, err := s.activeService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	booked, err := s.bookedIntervals(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	metrics.IncAvailabilityQuery()
	return availability.Compute(&profile.Schedule, svc.DurationMinutes, day, booked)
}

func (s *BookingService) checkRateLimit(ctx context.Context, req AppointmentRequest) error {
	if s.limiter == nil {
		return nil
	}
	key := "booking:" + req.TenantID + ":" + req.ClientPhone
	allowed, err := s.limiter.CheckRateLimit(ctx, key, s.rateLimit, s.rateWindow)
	if err != nil {
		logging.Ctx(logging.WithTenant(ctx, req.TenantID), s.logger).Warn().Err(err).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (r *AppointmentRequest) validate() error {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientPhone = strings.TrimSpace(r.ClientPhone)
	switch {
	case r.ClientName == "":
		return fmt.Errorf("%w: client name is required", ErrValidation)
	case r.ClientPhone == "":
		return fmt.Errorf("%w: client phone is required", ErrValidation)
	case r.ServiceID == "":
		return fmt.Errorf("%w: service is required", ErrValidation)
	case !models.IsValidPaymentMethod(r.PaymentMethod):
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, r.PaymentMethod)
	}
	return nil
}

// CreateAppointment books a slot for a client. The overlap check is repeated under
// the database lock so two clients cannot take the same slot.
func (s *BookingService) CreateAppointment(ctx context.Context, req AppointmentRequest) (*models.Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, req); err != nil {
		return nil, err
	}

	if err := s.checkAccess(ctx, req.TenantID); err != nil {
		return nil, err
	}

	day, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateBookingDate(day); err != nil {
		return nil, err
	}

	svc, err := s.activeService(ctx, req.TenantID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !profile.PaymentMethods.Accepts(req.PaymentMethod) {
		return nil, ErrPaymentMethodDisabled
	}

	hours, err := availability.Window(&profile.Schedule)
	if err != nil {
		return nil, err
	}
	if !availability.IsOperatingDay(day, hours.Days) {
		return nil, availability.ErrClosedDay
	}

	start, err := availability.ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %v", ErrValidation, err)
	}
	end := start + svc.DurationMinutes
	if start < hours.Open || end > hours.Close {
		return nil, fmt.Errorf("%w: %s-%s is outside operating hours", ErrValidation,
			availability.FormatClock(start), availability.FormatClock(end))
	}

	appt := &models.Appointment{
		TenantID:      req.TenantID,
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		Service:       svc.Snapshot(),
		Date:          req.Date,
		StartTime:     availability.FormatClock(start),
		EndTime:       availability.FormatClock(end),
		PaymentMethod: req.PaymentMethod,
		Status:        models.StatusPending,
		Notes:         req.Notes,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateAppointmentWithLock(ctx, appt); err != nil {
		return nil, err
	}

	metrics.IncAppointmentCreated()
	s.publishEvent(events.EventAppointmentCreated, appt)
	logging.Ctx(logging.WithTenant(ctx, appt.TenantID), s.logger).Info().
		Str("appointment_id", appt.ID).
		Str("date", appt.Date).
		Str("start", appt.StartTime).
		Msg("appointment created")
	return appt, nil
}

// UpdateStatus moves an appointment along pending -> confirmed -> completed, or cancels it.
func (s *BookingService) UpdateStatus(ctx context.Context, tenantID, id, status string) (*models.Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, tenantID, id, status, s.now())
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.AppointmentStatusEvent(status), appt)
	return appt, nil
}

func (s *BookingService) ListAppointments(ctx context.Context, tenantID, date string) ([]*models.Appointment, error) {
	if _, err := s.parseDate(date); err != nil {
		return nil, err
	}
	return s.repo.ListAppointments(ctx, tenantID, date)
}

func (s *BookingService) publishEvent(eventType string, appt *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		ClientName:    appt.ClientName,
		ClientPhone:   appt.ClientPhone,
		ServiceName:   appt.Service.Name,
		Price:         appt.Service.Price,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		Status:        appt.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("appointment_id", appt.ID).Msg("publish event error")
	}
}
