package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"agendapro/internal/logging"
	"agendapro/internal/models"

	"github.com/shopspring/decimal"
)

const (
	ClientSortName  = "name"
	ClientSortLast  = "last_appointment"
	ClientSortSpent = "total_spent"
)

// ClientSummary is one client of a tenant, built from the appointment history.
type ClientSummary struct {
	Name              string          `json:"name"`
	Phone             string          `json:"phone"`
	LastAppointment   string          `json:"last_appointment"`
	TotalAppointments int             `json:"total_appointments"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	Services          []string        `json:"services"`
}

// ClientDirectory lists the clients who booked with a tenant, grouped by name and
// phone. Cancelled appointments count as visits but add nothing to TotalSpent.
// search matches name or phone; sortBy is one of the ClientSort values.
func (s *BookingService) ClientDirectory(ctx context.Context, tenantID, search, sortBy string) ([]*ClientSummary, error) {
	switch sortBy {
	case "":
		sortBy = ClientSortName
	case ClientSortName, ClientSortLast, ClientSortSpent:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrValidation, sortBy)
	}

	appointments, err := s.repo.ListAppointmentsInRange(ctx, tenantID, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, err
	}

	byClient := make(map[string]*ClientSummary)
	var clients []*ClientSummary
	for _, a := range appointments {
		key := strings.ToLower(strings.TrimSpace(a.ClientName)) + "|" + strings.TrimSpace(a.ClientPhone)
		c, ok := byClient[key]
		if !ok {
			c = &ClientSummary{Name: a.ClientName, Phone: a.ClientPhone, TotalSpent: decimal.Zero}
			byClient[key] = c
			clients = append(clients, c)
		}
		c.TotalAppointments++
		if a.Status != models.StatusCancelled {
			c.TotalSpent = c.TotalSpent.Add(a.Service.Price)
		}
		if a.Date > c.LastAppointment {
			c.LastAppointment = a.Date
		}
		if !slices.Contains(c.Services, a.Service.Name) {
			c.Services = append(c.Services, a.Service.Name)
		}
	}

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]*ClientSummary, 0, len(clients))
	for _, c := range clients {
		if search == "" || strings.Contains(strings.ToLower(c.Name), search) || strings.Contains(c.Phone, search) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch sortBy {
		case ClientSortLast:
			return a.LastAppointment > b.LastAppointment
		case ClientSortSpent:
			return a.TotalSpent.GreaterThan(b.TotalSpent)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	})
	return out, nil
}

// DeleteAppointment removes an appointment from the agenda. Income already booked
// for it is kept.
func (s *BookingService) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	if err := s.repo.DeleteAppointment(ctx, tenantID, id); err != nil {
		return err
	}
	logging.Ctx(logging.WithTenant(ctx, tenantID), s.logger).Info().Str("appointment_id", id).Msg("appointment deleted")
	return nil
}
