package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agendapro/internal/config"
	"agendapro/internal/export"
	"agendapro/internal/logging"
	"agendapro/internal/metrics"
	"agendapro/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Services are the handlers' collaborators.
type Services struct {
	Booking      *service.BookingService
	Catalog      *service.CatalogService
	Finance      *service.FinanceService
	Subscription *service.SubscriptionService
	Settings     *service.SettingsService
	Admin        *service.AdminService
	Exporter     *export.Exporter
	// Health is checked by /healthz when set.
	Health func(ctx context.Context) error
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	location *time.Location
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
	limiter  *rateLimiter
}

func NewHTTPServer(cfg config.APIConfig, svc Services, location *time.Location, logger *zerolog.Logger) *HTTPServer {
	if location == nil {
		location = time.UTC
	}
	l := logging.Component(logger, "http")
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		location: location,
		logger:   l,
		auth:     NewHTTPAuth(cfg.Auth),
		limiter:  newRateLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.requestIDMiddleware(srv.loggingMiddleware(srv.rateLimitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	merchant := func(h http.HandlerFunc) http.HandlerFunc { return s.auth.Require(config.PermissionMerchant, h) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return s.auth.Require(config.PermissionAdmin, h) }

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("GET /api/v1/public/tenants/{tenantID}/services", s.handlePublicServices)
	mux.HandleFunc("GET /api/v1/public/tenants/{tenantID}/availability", s.handleAvailability)
	mux.HandleFunc("POST /api/v1/public/tenants/{tenantID}/appointments", s.handleCreateAppointment)
	mux.HandleFunc("GET /api/v1/affiliate", s.handleAffiliateEstimate)

	const tenant = "/api/v1/tenants/{tenantID}"
	mux.HandleFunc("GET "+tenant+"/profile", merchant(s.handleGetProfile))
	mux.HandleFunc("PUT "+tenant+"/profile", merchant(s.handleUpdateProfile))
	mux.HandleFunc("GET "+tenant+"/services", merchant(s.handleListServices))
	mux.HandleFunc("POST "+tenant+"/services", merchant(s.handleCreateService))
	mux.HandleFunc("PUT "+tenant+"/services/{serviceID}", merchant(s.handleUpdateService))
	mux.HandleFunc("DELETE "+tenant+"/services/{serviceID}", merchant(s.handleDeactivateService))
	mux.HandleFunc("GET "+tenant+"/appointments", merchant(s.handleListAppointments))
	mux.HandleFunc("POST "+tenant+"/appointments/{appointmentID}/status", merchant(s.handleAppointmentStatus))
	mux.HandleFunc("DELETE "+tenant+"/appointments/{appointmentID}", merchant(s.handleDeleteAppointment))
	mux.HandleFunc("GET "+tenant+"/clients", merchant(s.handleClients))
	mux.HandleFunc("GET "+tenant+"/transactions", merchant(s.handleListTransactions))
	mux.HandleFunc("POST "+tenant+"/transactions", merchant(s.handleCreateTransaction))
	mux.HandleFunc("DELETE "+tenant+"/transactions/{transactionID}", merchant(s.handleDeleteTransaction))
	mux.HandleFunc("GET "+tenant+"/summary", merchant(s.handleSummary))
	mux.HandleFunc("GET "+tenant+"/subscription", merchant(s.handleSubscriptionStatus))
	mux.HandleFunc("POST "+tenant+"/payments", merchant(s.handleRequestRenewal))
	mux.HandleFunc("GET "+tenant+"/export", merchant(s.handleExport))

	mux.HandleFunc("GET /api/v1/admin/payments", admin(s.handleListPayments))
	mux.HandleFunc("POST /api/v1/admin/payments/{paymentID}/confirm", admin(s.handleConfirmPayment))
	mux.HandleFunc("GET /api/v1/admin/tenants", admin(s.handleListTenants))
	mux.HandleFunc("POST /api/v1/admin/tenants/{tenantID}/active", admin(s.handleSetTenantActive))
	mux.HandleFunc("PUT /api/v1/admin/tenants/{tenantID}", admin(s.handleUpdateTenant))
	mux.HandleFunc("DELETE /api/v1/admin/tenants/{tenantID}", admin(s.handleDeleteTenant))
	mux.HandleFunc("GET /api/v1/admin/users", admin(s.handleListUsers))
	mux.HandleFunc("PUT /api/v1/admin/users/{userID}", admin(s.handleUpdateUser))
	mux.HandleFunc("DELETE /api/v1/admin/users/{userID}", admin(s.handleDeleteUser))
	mux.HandleFunc("GET /api/v1/admin/settings", admin(s.handleGetSettings))
	mux.HandleFunc("PUT /api/v1/admin/settings", admin(s.handleUpdateSettings))
	mux.HandleFunc("GET /api/v1/admin/stats", admin(s.handleStats))
	mux.HandleFunc("POST /api/v1/login-check", admin(s.handleLoginCheck))
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// the mux fills in Pattern on the matched request
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		s.logger.Info().
			Str("request_id", logging.RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("endpoint", endpoint).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(s.auth.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
