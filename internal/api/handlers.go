package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agendapro/internal/export"
	"agendapro/internal/models"
	"agendapro/internal/service"
	"agendapro/internal/subscription"
)

const (
	dateLayout = "2006-01-02"
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q; expected YYYY-MM-DD", service.ErrValidation, raw)
	}
	return d, nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Public booking page

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var draft subscription.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg, err := s.svc.Subscription.Register(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant":  reg.Tenant,
		"user":    reg.User,
		"payment": reg.Payment,
	})
}

func (s *HTTPServer) handlePublicServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.svc.Catalog.ListServices(r.Context(), r.PathValue("tenantID"), true)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	date := strings.TrimSpace(q.Get("date"))
	if serviceID == "" || date == "" {
		writeError(w, http.StatusBadRequest, "service_id and date are required")
		return
	}

	slots, err := s.svc.Booking.GetAvailableSlots(r.Context(), r.PathValue("tenantID"), serviceID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id": serviceID,
		"date":       date,
		"slots":      slots,
	})
}

func (s *HTTPServer) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req service.AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.TenantID = r.PathValue("tenantID")

	appt, err := s.svc.Booking.CreateAppointment(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Merchant panel

func (s *HTTPServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Catalog.GetProfile(r.Context(), r.PathValue("tenantID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.TenantProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	profile.TenantID = r.PathValue("tenantID")

	saved, err := s.svc.Catalog.UpdateProfile(r.Context(), &profile)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	services, err := s.svc.Catalog.ListServices(r.Context(), r.PathValue("tenantID"), activeOnly)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var in service.ServiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.svc.Catalog.CreateService(r.Context(), r.PathValue("tenantID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var in service.ServiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.svc.Catalog.UpdateService(r.Context(), r.PathValue("tenantID"), r.PathValue("serviceID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeactivateService(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeactivateService(r.Context(), r.PathValue("tenantID"), r.PathValue("serviceID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	appointments, err := s.svc.Booking.ListAppointments(r.Context(), r.PathValue("tenantID"), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

func (s *HTTPServer) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := s.svc.Booking.UpdateStatus(r.Context(), r.PathValue("tenantID"), r.PathValue("appointmentID"), body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	to, err := s.parseDate(q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}

	txs, err := s.svc.Finance.List(r.Context(), r.PathValue("tenantID"), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *HTTPServer) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in service.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.svc.Finance.Add(r.Context(), r.PathValue("tenantID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *HTTPServer) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Finance.Delete(r.Context(), r.PathValue("tenantID"), r.PathValue("transactionID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Booking.DeleteAppointment(r.Context(), r.PathValue("tenantID"), r.PathValue("appointmentID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clients, err := s.svc.Booking.ClientDirectory(r.Context(), r.PathValue("tenantID"), q.Get("search"), q.Get("sort"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenantID")
	summary, err := s.svc.Finance.Summary(r.Context(), tenantID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	dashboard, err := s.svc.Finance.Dashboard(r.Context(), tenantID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "dashboard": dashboard})
}

func (s *HTTPServer) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Subscription.Status(r.Context(), r.PathValue("tenantID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *HTTPServer) handleRequestRenewal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment, err := s.svc.Subscription.RequestRenewal(r.Context(), r.PathValue("tenantID"), body.Plan)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	to, err := s.parseDate(q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusUnprocessableEntity, "to is before from")
		return
	}

	tenantID := r.PathValue("tenantID")
	data, err := s.svc.Exporter.TenantReport(r.Context(), tenantID, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(tenantID, from, to)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Admin

func (s *HTTPServer) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.Subscription.ListPayments(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	totals, err := s.svc.Subscription.PaymentTotals(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments, "totals": totals})
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	payment, tenant, err := s.svc.Subscription.ConfirmPayment(r.Context(), r.PathValue("paymentID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment, "tenant": tenant})
}

func (s *HTTPServer) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.svc.Admin.ListTenants(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (s *HTTPServer) handleSetTenantActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	tenant, err := s.svc.Subscription.SetTenantActive(r.Context(), r.PathValue("tenantID"), *body.Active)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *HTTPServer) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var body service.TenantUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenant, err := s.svc.Admin.UpdateTenant(r.Context(), r.PathValue("tenantID"), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *HTTPServer) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admin.DeleteTenant(r.Context(), r.PathValue("tenantID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Admin.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body service.UserUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.svc.Admin.UpdateUser(r.Context(), r.PathValue("userID"), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admin.DeleteUser(r.Context(), r.PathValue("userID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleAffiliateEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sales := 0
	if raw := strings.TrimSpace(q.Get("sales")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sales must be a whole number")
			return
		}
		sales = n
	}
	estimate, err := s.svc.Settings.EstimateAffiliate(r.Context(), q.Get("plan"), sales)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (s *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *HTTPServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.AdminSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Settings.Update(r.Context(), &settings); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Admin.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleLoginCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.svc.Subscription.CheckLogin(r.Context(), body.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
