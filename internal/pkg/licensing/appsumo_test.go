package licensing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
)

func TestActivateAppSumo_NewEmailTier1(t *testing.T) {
	env := newLicensingEnv()

	result, err := env.svc.ActivateAppSumo(context.Background(), AppSumoActivation{
		Name:       "Ada Example",
		Email:      "ada@example.com",
		Password:   "hunter22",
		LicenseKey: "abc-123",
		Tier:       1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Entitlement.Tier)
	assert.Equal(t, int64(100), result.CreditsGranted)
	assert.Equal(t, 0, result.SeatsCreated)

	user := env.users.users["ada@example.com"]
	require.NotNil(t, user)
	assert.Equal(t, user.ID, result.UserID)
	assert.NotEmpty(t, user.Password)
	assert.NotEqual(t, "hunter22", user.Password)
	assert.True(t, env.users.paid[user.ID])

	license := env.licenses.licenses["ABC-123"]
	require.NotNil(t, license)
	assert.True(t, license.IsActive)
	assert.Equal(t, models.VendorAppSumo, license.Vendor)
	assert.Equal(t, []uint{license.ID}, env.licenses.userLinks[user.ID])

	plan := env.subs.plans[models.VendorAppSumo+":appsumo_tier1"]
	require.NotNil(t, plan)
	assert.Equal(t, models.PlanDurationLifetime, plan.Duration)

	active := env.subs.activeFor(user.ID)
	require.Len(t, active, 1)
	assert.Equal(t, plan.ID, active[0].PlanID)
	assert.Equal(t, license.ID, *active[0].LicenseKeyID)

	assert.Equal(t, int64(100), env.credits.balances[user.ID])
	require.Len(t, env.credits.log, 1)
	assert.Equal(t, models.TransactionTypePlanCredits, env.credits.log[0].Type)
	assert.Equal(t, int64(100), env.credits.log[0].Amount)
}

func TestActivateAppSumo_SecondActivationRejected(t *testing.T) {
	env := newLicensingEnv()

	first, err := env.svc.ActivateAppSumo(context.Background(), AppSumoActivation{
		Name: "Ada Example", Email: "ada@example.com", LicenseKey: "ABC-123", Tier: 1,
	})
	require.NoError(t, err)

	_, err = env.svc.ActivateAppSumo(context.Background(), AppSumoActivation{
		Name: "Eve Intruder", Email: "eve@example.com", LicenseKey: "ABC-123", Tier: 1,
	})
	assert.ErrorIs(t, err, ErrKeyAlreadyActivated)

	// The original owner keeps the key; no account was created for the retry.
	license := env.licenses.licenses["ABC-123"]
	assert.Equal(t, []uint{license.ID}, env.licenses.userLinks[first.UserID])
	assert.Nil(t, env.users.users["eve@example.com"])
	require.Len(t, env.credits.log, 1)
}

func TestActivateAppSumo_TierFromKeyName(t *testing.T) {
	env := newLicensingEnv()

	result, err := env.svc.ActivateAppSumo(context.Background(), AppSumoActivation{
		Name:       "Team Lead",
		Email:      "lead@example.com",
		LicenseKey: "appsumo-agency-xyz",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Entitlement.Tier)
	assert.Equal(t, int64(1000), result.CreditsGranted)
	assert.Equal(t, 10, result.SeatsCreated)
}

func TestActivateAppSumo_EmptyKey(t *testing.T) {
	env := newLicensingEnv()

	_, err := env.svc.ActivateAppSumo(context.Background(), AppSumoActivation{
		Email: "ada@example.com", LicenseKey: "   ",
	})
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}
