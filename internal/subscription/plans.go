package subscription

import (
	"fmt"

	"agendapro/internal/models"
)

// Plan describes the limits a tenant gets on a plan. Prices live in the admin settings.
type Plan struct {
	ID       string
	MaxUsers int
	Features []string
}

var catalog = map[string]Plan{
	models.PlanEssential: {
		ID:       models.PlanEssential,
		MaxUsers: 3,
		Features: []string{models.FeatureAppointments, models.FeatureWhatsApp, models.FeatureBasicServices},
	},
	models.PlanComplete: {
		ID:       models.PlanComplete,
		MaxUsers: 5,
		Features: []string{
			models.FeatureAppointments,
			models.FeatureFinances,
			models.FeatureWhatsApp,
			models.FeatureReports,
			models.FeatureAdvancedServices,
		},
	},
}

func LookupPlan(id string) (Plan, error) {
	p, ok := catalog[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	features := make([]string, len(p.Features))
	copy(features, p.Features)
	p.Features = features
	return p, nil
}

// applyPlan copies plan limits onto the tenant.
func applyPlan(t *models.Tenant, p Plan) {
	t.Plan = p.ID
	t.MaxUsers = p.MaxUsers
	t.Features = p.Features
}

// ChangePlan moves a tenant to another plan's limits. The billing period is untouched.
func ChangePlan(t *models.Tenant, planID string) error {
	p, err := LookupPlan(planID)
	if err != nil {
		return err
	}
	applyPlan(t, p)
	return nil
}
