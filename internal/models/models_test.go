package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{"unknown", StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBlockingStatus(t *testing.T) {
	assert.True(t, (&Appointment{Status: StatusPending}).Blocking())
	assert.True(t, (&Appointment{Status: StatusConfirmed}).Blocking())
	assert.False(t, (&Appointment{Status: StatusCancelled}).Blocking())
	assert.False(t, (&Appointment{Status: StatusCompleted}).Blocking())
}

func TestPaymentMethods(t *testing.T) {
	pm := PaymentMethods{Pix: true, Cash: true}
	assert.True(t, pm.Accepts(PaymentMethodPix))
	assert.False(t, pm.Accepts(PaymentMethodCard))
	assert.False(t, pm.Accepts("boleto"))
	assert.True(t, IsValidPaymentMethod(PaymentMethodCard))
	assert.False(t, IsValidPaymentMethod("boleto"))
}

func TestDefaultProfile(t *testing.T) {
	tenant := &Tenant{ID: "t1", BusinessName: "Studio", CreatedAt: time.Now()}
	profile := DefaultProfile(tenant)

	assert.Equal(t, "t1", profile.TenantID)
	assert.Equal(t, DefaultOpenTime, profile.Schedule.OpenTime)
	assert.Equal(t, DefaultCloseTime, profile.Schedule.CloseTime)
	assert.Len(t, profile.Schedule.OperatingDays, 6)
	assert.NotContains(t, profile.Schedule.OperatingDays, "sunday")

	profile.Schedule.OperatingDays[0] = "sunday"
	assert.Equal(t, "monday", DefaultOperatingDays[0])
}

func TestAdminSettings(t *testing.T) {
	s := DefaultAdminSettings()
	assert.NoError(t, s.Validate())

	t.Run("Commission", func(t *testing.T) {
		assert.True(t, decimal.RequireFromString("5.07").Equal(s.Commission(PlanEssential)))
		assert.True(t, decimal.RequireFromString("5.97").Equal(s.Commission(PlanComplete)))
		assert.True(t, s.Commission("gold").IsZero())
	})

	t.Run("InvalidPrice", func(t *testing.T) {
		bad := DefaultAdminSettings()
		bad.Plans[PlanComplete] = PlanSettings{Name: "x", Price: decimal.Zero}
		assert.Error(t, bad.Validate())
	})

	t.Run("InvalidCommission", func(t *testing.T) {
		bad := DefaultAdminSettings()
		bad.Affiliate.CommissionPercent = 120
		assert.Error(t, bad.Validate())
	})

	t.Run("MissingPlan", func(t *testing.T) {
		bad := DefaultAdminSettings()
		delete(bad.Plans, PlanEssential)
		assert.Error(t, bad.Validate())
	})
}

func TestTransactionSigned(t *testing.T) {
	in := &Transaction{Type: TransactionIncome, Amount: decimal.NewFromInt(10)}
	out := &Transaction{Type: TransactionExpense, Amount: decimal.NewFromInt(4)}
	assert.True(t, in.Signed().Add(out.Signed()).Equal(decimal.NewFromInt(6)))
}
