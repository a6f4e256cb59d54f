package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAdminService(repo, &logger)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	repo.On("ListTenants", ctx).Return([]*models.Tenant{
		{ID: "a", IsActive: true, ExpiresAt: now.Add(time.Hour)},
		{ID: "b", IsActive: true, ExpiresAt: now.Add(-time.Hour)},
		{ID: "c", IsActive: false, ExpiresAt: now.Add(time.Hour)},
	}, nil).Once()
	repo.On("ListUsers", ctx, "").Return([]*models.User{
		{ID: "1", IsActive: true}, {ID: "2", IsActive: false}, {ID: "3", IsActive: true},
	}, nil).Once()
	repo.On("PaymentTotals", ctx).Return(models.PaymentTotals{
		Confirmed: decimal.RequireFromString("36.80"), Pending: decimal.RequireFromString("16.90"),
		ConfirmedCount: 2, PendingCount: 1,
	}, nil).Once()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTenants)
	assert.Equal(t, 1, stats.ActiveTenants)
	assert.Equal(t, 1, stats.TrialingTenants)
	assert.Equal(t, 1, stats.ExpiredTenants)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 1, stats.PendingPayments)
	assert.True(t, decimal.RequireFromString("36.8").Equal(stats.ConfirmedRevenue))
	repo.AssertExpectations(t)
}

func TestAdminService_ListTenants(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAdminService(repo, &logger)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)
	suspended := now.Add(-time.Hour)

	repo.On("ListTenants", ctx).Return([]*models.Tenant{
		{ID: "a", IsActive: true, ExpiresAt: now.Add(36 * time.Hour)},
		{ID: "b", ExpiresAt: now.Add(time.Hour), SuspendedAt: &suspended},
	}, nil).Once()

	list, err := svc.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, subscription.Active, list[0].Status)
	assert.Equal(t, 2, list[0].DaysRemaining)
	assert.Equal(t, subscription.Suspended, list[1].Status)
	assert.Equal(t, "b", list[1].ID)
}

func TestAdminService_ListUsers(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAdminService(repo, &logger)

	repo.On("ListUsers", ctx, "").Return([]*models.User{
		{ID: "1", Role: models.RoleAdmin}, {ID: "2", Role: models.RoleMerchant}, {ID: "3", Role: models.RoleMerchant},
	}, nil)

	all, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	merchants, err := svc.ListUsers(ctx, models.RoleMerchant)
	require.NoError(t, err)
	require.Len(t, merchants, 2)
	assert.Equal(t, "2", merchants[0].ID)

	_, err = svc.ListUsers(ctx, "owner")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	str := func(s string) *string { return &s }
	no := false

	t.Run("EditsFields", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		repo.On("GetUser", ctx, "u1").Return(&models.User{
			ID: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleMerchant, IsActive: true,
		}, nil).Once()
		repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Name == "Ana Paula" && u.Email == "ana.paula@example.com" && !u.IsActive
		})).Return(nil).Once()

		u, err := svc.UpdateUser(ctx, "u1", UserUpdate{Name: str(" Ana Paula "), Email: str("Ana.Paula@Example.com"), IsActive: &no})
		require.NoError(t, err)
		assert.Equal(t, models.RoleMerchant, u.Role)
		repo.AssertExpectations(t)
	})

	t.Run("Invalid", func(t *testing.T) {
		for name, in := range map[string]UserUpdate{
			"EmptyName": {Name: str("  ")},
			"BadRole":   {Role: str("owner")},
			"BadEmail":  {Email: str("not-an-email")},
		} {
			t.Run(name, func(t *testing.T) {
				repo := new(mockRepo)
				svc := NewAdminService(repo, &logger)
				repo.On("GetUser", ctx, "u1").Return(&models.User{
					ID: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleMerchant,
				}, nil).Once()

				_, err := svc.UpdateUser(ctx, "u1", in)
				assert.ErrorIs(t, err, ErrValidation)
				repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("LastAdminKept", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		admin := &models.User{ID: "a1", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin, IsActive: true}
		repo.On("GetUser", ctx, "a1").Return(admin, nil).Once()
		repo.On("ListUsers", ctx, "").Return([]*models.User{
			admin, {ID: "a2", Role: models.RoleAdmin, IsActive: false}, {ID: "m1", Role: models.RoleMerchant, IsActive: true},
		}, nil).Once()

		_, err := svc.UpdateUser(ctx, "a1", UserUpdate{Role: str(models.RoleMerchant)})
		assert.ErrorIs(t, err, ErrValidation)
		repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
	})

	t.Run("AdminDemotedWhenAnotherRemains", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		repo.On("GetUser", ctx, "a1").Return(&models.User{
			ID: "a1", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin, IsActive: true,
		}, nil).Once()
		repo.On("ListUsers", ctx, "").Return([]*models.User{
			{ID: "a1", Role: models.RoleAdmin, IsActive: true}, {ID: "a2", Role: models.RoleAdmin, IsActive: true},
		}, nil).Once()
		repo.On("UpdateUser", ctx, mock.Anything).Return(nil).Once()

		u, err := svc.UpdateUser(ctx, "a1", UserUpdate{IsActive: &no})
		require.NoError(t, err)
		assert.False(t, u.IsActive)
		repo.AssertExpectations(t)
	})

	t.Run("Missing", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		missing := errors.New("user missing: not found")
		repo.On("GetUser", ctx, "nope").Return(nil, missing).Once()

		_, err := svc.UpdateUser(ctx, "nope", UserUpdate{Name: str("X")})
		assert.ErrorIs(t, err, missing)
	})
}

func TestAdminService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("Merchant", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		repo.On("GetUser", ctx, "m1").Return(&models.User{ID: "m1", Role: models.RoleMerchant, IsActive: true}, nil).Once()
		repo.On("DeleteUser", ctx, "m1").Return(nil).Once()

		require.NoError(t, svc.DeleteUser(ctx, "m1"))
		repo.AssertExpectations(t)
	})

	t.Run("LastAdminKept", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		admin := &models.User{ID: "a1", Role: models.RoleAdmin, IsActive: true}
		repo.On("GetUser", ctx, "a1").Return(admin, nil).Once()
		repo.On("ListUsers", ctx, "").Return([]*models.User{admin}, nil).Once()

		assert.ErrorIs(t, svc.DeleteUser(ctx, "a1"), ErrValidation)
		repo.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})
}

func TestAdminService_UpdateTenant(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	str := func(s string) *string { return &s }
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tenant := func() *models.Tenant {
		t := &models.Tenant{
			ID: "t1", Name: "Bia", BusinessName: "Studio Bia", Email: "bia@example.com",
			IsActive: true, ExpiresAt: now.AddDate(0, 0, 20),
		}
		_ = subscription.ChangePlan(t, models.PlanEssential)
		return t
	}

	t.Run("PlanChange", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		svc.now = fixedClock(now)
		repo.On("GetTenant", ctx, "t1").Return(tenant(), nil).Once()
		repo.On("UpdateTenant", ctx, mock.MatchedBy(func(t *models.Tenant) bool {
			return t.Plan == models.PlanComplete && t.BusinessName == "Studio Bia Lima"
		})).Return(nil).Once()

		got, err := svc.UpdateTenant(ctx, "t1", TenantUpdate{Plan: str(" Complete "), BusinessName: str("Studio Bia Lima")})
		require.NoError(t, err)
		want, err := subscription.LookupPlan(models.PlanComplete)
		require.NoError(t, err)
		assert.Equal(t, want.MaxUsers, got.MaxUsers)
		assert.True(t, got.ExpiresAt.Equal(now.AddDate(0, 0, 20)))
		repo.AssertNotCalled(t, "SetTenantActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("Deactivate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewAdminService(repo, &logger)
		svc.now = fixedClock(now)
		suspended := tenant()
		suspended.IsActive = false
		suspended.SuspendedAt = &now
		no := false
		repo.On("GetTenant", ctx, "t1").Return(tenant(), nil).Once()
		repo.On("UpdateTenant", ctx, mock.Anything).Return(nil).Once()
		repo.On("SetTenantActive", ctx, "t1", false, now).Return(suspended, nil).Once()

		got, err := svc.UpdateTenant(ctx, "t1", TenantUpdate{IsActive: &no})
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.NotNil(t, got.SuspendedAt)
		repo.AssertExpectations(t)
	})

	t.Run("Invalid", func(t *testing.T) {
		for name, tc := range map[string]struct {
			in   TenantUpdate
			want error
		}{
			"UnknownPlan": {TenantUpdate{Plan: str("gold")}, subscription.ErrUnknownPlan},
			"EmptyName":   {TenantUpdate{Name: str(" ")}, ErrValidation},
			"BadEmail":    {TenantUpdate{Email: str("bia")}, ErrValidation},
		} {
			t.Run(name, func(t *testing.T) {
				repo := new(mockRepo)
				svc := NewAdminService(repo, &logger)
				repo.On("GetTenant", ctx, "t1").Return(tenant(), nil).Once()

				_, err := svc.UpdateTenant(ctx, "t1", tc.in)
				assert.ErrorIs(t, err, tc.want)
				repo.AssertNotCalled(t, "UpdateTenant", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestAdminService_DeleteTenant(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAdminService(repo, &logger)

	repo.On("DeleteTenant", ctx, "t1").Return(nil).Once()
	gone := errors.New("tenant t2: not found")
	repo.On("DeleteTenant", ctx, "t2").Return(gone).Once()

	require.NoError(t, svc.DeleteTenant(ctx, "t1"))
	assert.ErrorIs(t, svc.DeleteTenant(ctx, "t2"), gone)
	repo.AssertExpectations(t)
}
