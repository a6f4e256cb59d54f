package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PlanSettings struct {
	Name  string          `json:"name" yaml:"name"`
	Price decimal.Decimal `json:"price" yaml:"price"`
}

type AffiliateSettings struct {
	CommissionPercent int `json:"commission_percent" yaml:"commission_percent"`
	MinSales          int `json:"min_sales" yaml:"min_sales"`
}

// AdminSettings is the operator-wide configuration edited from the admin panel.
type AdminSettings struct {
	PixKey    string                  `json:"pix_key" yaml:"pix_key"`
	Plans     map[string]PlanSettings `json:"plans" yaml:"plans"`
	Affiliate AffiliateSettings       `json:"affiliate" yaml:"affiliate"`
	UpdatedAt time.Time               `json:"updated_at" yaml:"-"`
}

func DefaultAdminSettings() AdminSettings {
	return AdminSettings{
		Plans: map[string]PlanSettings{
			PlanEssential: {Name: "Plano Essencial", Price: decimal.RequireFromString("16.90")},
			PlanComplete:  {Name: "Plano Completo", Price: decimal.RequireFromString("19.90")},
		},
		Affiliate: AffiliateSettings{CommissionPercent: 30, MinSales: 5},
	}
}

func (s AdminSettings) Validate() error {
	for _, plan := range []string{PlanEssential, PlanComplete} {
		p, ok := s.Plans[plan]
		if !ok {
			return fmt.Errorf("plan %q is missing", plan)
		}
		if !p.Price.IsPositive() {
			return fmt.Errorf("plan %q price must be positive", plan)
		}
	}
	if s.Affiliate.CommissionPercent < 0 || s.Affiliate.CommissionPercent > 100 {
		return errors.New("affiliate commission must be between 0 and 100")
	}
	if s.Affiliate.MinSales < 1 {
		return errors.New("affiliate min sales must be at least 1")
	}
	return nil
}

// Commission is the affiliate payout for one sale of the plan.
func (s AdminSettings) Commission(plan string) decimal.Decimal {
	p, ok := s.Plans[plan]
	if !ok {
		return decimal.Zero
	}
	return p.Price.Mul(decimal.NewFromInt(int64(s.Affiliate.CommissionPercent))).Div(decimal.NewFromInt(100)).Round(2)
}
