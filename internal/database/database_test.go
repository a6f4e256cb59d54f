package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func registerTenant(t *testing.T, db *DB, email string, now time.Time) *subscription.Registration {
	t.Helper()
	reg, err := subscription.Register(subscription.Draft{
		Name:         "Owner",
		Email:        email,
		BusinessName: "Salon " + email,
		Phone:        "11988887777",
		Plan:         models.PlanEssential,
	}, decimal.RequireFromString("16.90"), now)
	require.NoError(t, err)
	require.NoError(t, db.CreateRegistration(context.Background(), reg.Tenant, reg.User, reg.Profile, reg.Payment))
	return reg
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestRegistration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	reg := registerTenant(t, db, "ana@example.com", now)

	tenant, err := db.GetTenant(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.False(t, tenant.IsActive)
	assert.WithinDuration(t, now.Add(subscription.TrialPeriod), tenant.ExpiresAt, time.Millisecond)
	assert.Equal(t, reg.Tenant.Features, tenant.Features)
	assert.Nil(t, tenant.SuspendedAt)

	user, err := db.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, tenant.ID, user.TenantID)

	profile, err := db.GetProfile(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultOpenTime, profile.Schedule.OpenTime)
	assert.Equal(t, models.DefaultOperatingDays, profile.Schedule.OperatingDays)
	assert.True(t, profile.PaymentMethods.Pix)

	pending, err := db.ListPayments(ctx, models.PaymentPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, decimal.RequireFromString("16.90").Equal(pending[0].Amount))

	t.Run("DuplicateEmailRollsBack", func(t *testing.T) {
		dup, err := subscription.Register(subscription.Draft{
			Name: "Other", Email: "ana@example.com", BusinessName: "Other", Plan: models.PlanComplete,
		}, decimal.NewFromInt(1), now)
		require.NoError(t, err)

		err = db.CreateRegistration(ctx, dup.Tenant, dup.User, dup.Profile, dup.Payment)
		assert.ErrorIs(t, err, ErrEmailTaken)

		_, err = db.GetTenant(ctx, dup.Tenant.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmPayment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Now().UTC()
	reg := registerTenant(t, db, "bia@example.com", start)

	confirmAt := start.Add(2 * time.Hour)
	payment, tenant, err := db.ConfirmPayment(ctx, reg.Payment.ID, confirmAt)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, payment.Status)
	require.NotNil(t, payment.ConfirmedAt)
	assert.True(t, tenant.IsActive)

	stored, err := db.GetTenant(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.WithinDuration(t, confirmAt.Add(subscription.BillingPeriod), stored.ExpiresAt, time.Millisecond)

	users, err := db.ListUsers(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsActive)

	storedPayment, err := db.GetPayment(ctx, reg.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, storedPayment.Status)
	require.NotNil(t, storedPayment.ConfirmedAt)
	assert.WithinDuration(t, confirmAt, *storedPayment.ConfirmedAt, time.Millisecond)

	t.Run("ReplayIsRejected", func(t *testing.T) {
		_, _, err := db.ConfirmPayment(ctx, reg.Payment.ID, confirmAt.Add(24*time.Hour))
		assert.ErrorIs(t, err, ErrAlreadyProcessed)

		again, err := db.GetTenant(ctx, reg.Tenant.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, stored.ExpiresAt, again.ExpiresAt, time.Millisecond)
	})

	t.Run("UnknownPayment", func(t *testing.T) {
		_, _, err := db.ConfirmPayment(ctx, "missing", confirmAt)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmPaymentConcurrent(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	reg := registerTenant(t, db, "caio@example.com", time.Now().UTC())

	const workers = 8
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			_, _, err := db.ConfirmPayment(context.Background(), reg.Payment.ID, time.Now().Add(time.Duration(i)*time.Minute))
			results <- err
		}(i)
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestPendingPaymentUniqueness(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	reg := registerTenant(t, db, "duda@example.com", now)

	second, err := subscription.NewRenewal(reg.Tenant, models.PlanComplete, decimal.RequireFromString("19.90"), now)
	require.NoError(t, err)
	assert.ErrorIs(t, db.CreatePayment(ctx, second), ErrPendingPaymentExists)

	_, _, err = db.ConfirmPayment(ctx, reg.Payment.ID, now)
	require.NoError(t, err)

	assert.NoError(t, db.CreatePayment(ctx, second))

	other := registerTenant(t, db, "edu@example.com", now)
	assert.NotEqual(t, reg.Tenant.ID, other.Tenant.ID)
}

func TestExpireStalePaymentsAndTotals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := registerTenant(t, db, "old@example.com", now.Add(-100*time.Hour))
	fresh := registerTenant(t, db, "fresh@example.com", now)
	paid := registerTenant(t, db, "paid@example.com", now.Add(-200*time.Hour))
	_, _, err := db.ConfirmPayment(ctx, paid.Payment.ID, now)
	require.NoError(t, err)

	totals, err := db.PaymentTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.PendingCount)
	assert.Equal(t, 1, totals.ConfirmedCount)
	assert.True(t, decimal.RequireFromString("33.80").Equal(totals.Pending))
	assert.True(t, decimal.RequireFromString("16.90").Equal(totals.Confirmed))

	n, err := db.ExpireStalePayments(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := db.GetPayment(ctx, old.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentExpired, p.Status)

	p, err = db.GetPayment(ctx, fresh.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)

	_, _, err = db.ConfirmPayment(ctx, old.Payment.ID, now)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestSetTenantActive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	reg := registerTenant(t, db, "fabi@example.com", now)

	tenant, err := db.SetTenantActive(ctx, reg.Tenant.ID, true, now)
	require.NoError(t, err)
	assert.True(t, tenant.IsActive)
	assert.Nil(t, tenant.SuspendedAt)

	tenant, err = db.SetTenantActive(ctx, reg.Tenant.ID, false, now)
	require.NoError(t, err)
	assert.False(t, tenant.IsActive)
	require.NotNil(t, tenant.SuspendedAt)

	users, err := db.ListUsers(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.False(t, users[0].IsActive)

	_, err = db.SetTenantActive(ctx, "missing", true, now)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := db.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProfileAndServices(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	reg := registerTenant(t, db, "gabi@example.com", time.Now().UTC())

	profile, err := db.GetProfile(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	profile.Schedule = models.OperatingSchedule{OpenTime: "09:00", CloseTime: "17:30", OperatingDays: []string{"tuesday"}}
	profile.PaymentMethods.Card = true
	profile.PaymentMethods.PixKey = "pix@gabi"
	require.NoError(t, db.SaveProfile(ctx, profile))

	got, err := db.GetProfile(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.Schedule, got.Schedule)
	assert.Equal(t, profile.PaymentMethods, got.PaymentMethods)

	_, err = db.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	svc := &models.Service{
		ID: "svc-1", TenantID: reg.Tenant.ID, Name: "Corte", Price: decimal.RequireFromString("45.50"),
		DurationMinutes: 45, IsActive: true, CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateService(ctx, svc))

	stored, err := db.GetService(ctx, reg.Tenant.ID, "svc-1")
	require.NoError(t, err)
	assert.True(t, svc.Price.Equal(stored.Price))
	assert.Equal(t, 45, stored.DurationMinutes)

	_, err = db.GetService(ctx, "other-tenant", "svc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	stored.IsActive = false
	require.NoError(t, db.UpdateService(ctx, stored))

	active, err := db.ListServices(ctx, reg.Tenant.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := db.ListServices(ctx, reg.Tenant.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, db.UpdateService(ctx, &models.Service{ID: "nope", TenantID: reg.Tenant.ID}), ErrNotFound)
}

func TestSettings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s, err := db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := models.DefaultAdminSettings()
	want.PixKey = "admin@pix"
	require.NoError(t, db.SaveSettings(ctx, &want))

	got, err := db.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin@pix", got.PixKey)
	assert.True(t, want.Plans[models.PlanComplete].Price.Equal(got.Plans[models.PlanComplete].Price))
	assert.Equal(t, 30, got.Affiliate.CommissionPercent)

	want.PixKey = "changed"
	require.NoError(t, db.SaveSettings(ctx, &want))
	got, err = db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.PixKey)
}

type countlessResult struct{}

func (countlessResult) LastInsertId() (int64, error) { return 0, nil }
func (countlessResult) RowsAffected() (int64, error) {
	return 0, errors.New("rows affected not supported")
}

type countedResult int64

func (r countedResult) LastInsertId() (int64, error) { return 0, nil }
func (r countedResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestAffected(t *testing.T) {
	n, err := affected(countedResult(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = affected(countlessResult{})
	assert.ErrorContains(t, err, "rows affected not supported")
}

func TestUserManagement(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	first := registerTenant(t, db, "hana@example.com", now)
	registerTenant(t, db, "iris@example.com", now)

	u, err := db.GetUser(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "hana@example.com", u.Email)

	u.Name = "Hana Sato"
	u.Email = " HANA.S@Example.com "
	u.Role = models.RoleAdmin
	u.IsActive = true
	require.NoError(t, db.UpdateUser(ctx, u))

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hana Sato", got.Name)
	assert.Equal(t, "hana.s@example.com", got.Email)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.IsActive)

	got.Email = "iris@example.com"
	assert.ErrorIs(t, db.UpdateUser(ctx, got), ErrEmailTaken)
	assert.ErrorIs(t, db.UpdateUser(ctx, &models.User{ID: "missing", Email: "x@example.com"}), ErrNotFound)

	require.NoError(t, db.DeleteUser(ctx, u.ID))
	_, err = db.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestUpdateTenant(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	reg := registerTenant(t, db, "joana@example.com", now)
	registerTenant(t, db, "kelly@example.com", now)

	tenant, err := db.GetTenant(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	tenant.Name = "Joana Lima"
	tenant.Email = "contato@joana.com"
	require.NoError(t, subscription.ChangePlan(tenant, models.PlanComplete))
	require.NoError(t, db.UpdateTenant(ctx, tenant))

	got, err := db.GetTenant(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Joana Lima", got.Name)
	assert.Equal(t, models.PlanComplete, got.Plan)
	assert.Equal(t, tenant.MaxUsers, got.MaxUsers)
	assert.Equal(t, tenant.Features, got.Features)

	owner, err := db.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "contato@joana.com", owner.Email)

	got.Email = "kelly@example.com"
	assert.ErrorIs(t, db.UpdateTenant(ctx, got), ErrEmailTaken)

	unchanged, err := db.GetTenant(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "contato@joana.com", unchanged.Email)

	assert.ErrorIs(t, db.UpdateTenant(ctx, &models.Tenant{ID: "missing"}), ErrNotFound)
}

func TestDeleteTenant(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	gone := registerTenant(t, db, "lara@example.com", now)
	kept := registerTenant(t, db, "mila@example.com", now)

	require.NoError(t, db.CreateService(ctx, &models.Service{
		ID: "svc-lara", TenantID: gone.Tenant.ID, Name: "Corte", Price: decimal.RequireFromString("30"),
		DurationMinutes: 30, IsActive: true, CreatedAt: now,
	}))
	require.NoError(t, db.CreateAppointmentWithLock(ctx, newAppointment(gone.Tenant.ID, "2025-07-01", "09:00", "10:00")))
	require.NoError(t, db.CreateTransaction(ctx, &models.Transaction{
		ID: "tx-lara", TenantID: gone.Tenant.ID, Type: models.TransactionExpense, Description: "Aluguel",
		Amount: decimal.RequireFromString("500"), Category: "Fixos", Date: now,
	}))

	require.NoError(t, db.DeleteTenant(ctx, gone.Tenant.ID))

	_, err := db.GetTenant(ctx, gone.Tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetUser(ctx, gone.User.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetProfile(ctx, gone.Tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetPayment(ctx, gone.Payment.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	services, err := db.ListServices(ctx, gone.Tenant.ID, false)
	require.NoError(t, err)
	assert.Empty(t, services)
	appointments, err := db.ListAppointmentsInRange(ctx, gone.Tenant.ID, "0000-01-01", "9999-12-31")
	require.NoError(t, err)
	assert.Empty(t, appointments)
	txs, err := db.ListTransactions(ctx, gone.Tenant.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = db.GetTenant(ctx, kept.Tenant.ID)
	assert.NoError(t, err)
	_, err = db.GetUser(ctx, kept.User.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, db.DeleteTenant(ctx, gone.Tenant.ID), ErrNotFound)
}
