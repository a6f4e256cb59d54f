package api

import (
	"errors"
	"net/http"

	"agendapro/internal/availability"
	"agendapro/internal/database"
	"agendapro/internal/logging"
	"agendapro/internal/service"
	"agendapro/internal/subscription"
)

var statusByError = []struct {
	err    error
	status int
}{
	{database.ErrNotFound, http.StatusNotFound},

	{subscription.ErrAlreadyProcessed, http.StatusConflict},
	{database.ErrSlotNotAvailable, http.StatusConflict},
	{database.ErrPendingPaymentExists, http.StatusConflict},
	{database.ErrEmailTaken, http.StatusConflict},
	{database.ErrInvalidTransition, http.StatusConflict},
	{database.ErrAutomaticTransaction, http.StatusConflict},

	{service.ErrValidation, http.StatusUnprocessableEntity},
	{service.ErrPastDate, http.StatusUnprocessableEntity},
	{service.ErrDateTooFar, http.StatusUnprocessableEntity},
	{service.ErrServiceInactive, http.StatusUnprocessableEntity},
	{service.ErrPaymentMethodDisabled, http.StatusUnprocessableEntity},
	{subscription.ErrInvalidRegistration, http.StatusUnprocessableEntity},
	{subscription.ErrUnknownPlan, http.StatusUnprocessableEntity},
	{availability.ErrClosedDay, http.StatusUnprocessableEntity},
	{availability.ErrConfigurationMissing, http.StatusUnprocessableEntity},
	{availability.ErrInvalidInterval, http.StatusUnprocessableEntity},

	{service.ErrNoAccess, http.StatusForbidden},
	{service.ErrSubscriptionExpired, http.StatusForbidden},
	{service.ErrUserInactive, http.StatusForbidden},

	{service.ErrRateLimited, http.StatusTooManyRequests},
}

// statusFor maps a domain error to its HTTP status, 500 when unknown.
func statusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeServiceError answers with the mapped status. Internal errors are logged and
// their text is not leaked.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context(), s.logger).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
