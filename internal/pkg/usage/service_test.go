package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
)

// fakeLicenseRepo covers only the lookups the usage service performs. The
// embedded interface panics on anything else, which would flag an unexpected
// call immediately.
type fakeLicenseRepo struct {
	repository.LicenseRepository
	licenses map[string]*models.LicenseKey
	subs     map[string]*models.SubLicense
}

func (f *fakeLicenseRepo) GetByKey(key string) (*models.LicenseKey, error) {
	if license, ok := f.licenses[key]; ok {
		return license, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLicenseRepo) GetSubLicenseByKey(key string) (*models.SubLicense, error) {
	if sub, ok := f.subs[key]; ok {
		return sub, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLicenseRepo) ListSubLicenses(mainLicenseKeyID uint) ([]models.SubLicense, error) {
	var out []models.SubLicense
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == mainLicenseKeyID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

type fakeUsageRepo struct {
	repository.UsageRepository
	entries []models.UsageTracking
	nextID  uint
}

func (f *fakeUsageRepo) Create(entry *models.UsageTracking) error {
	f.nextID++
	entry.ID = f.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeUsageRepo) inWindow(entry models.UsageTracking, from, to time.Time) bool {
	return !entry.CreatedAt.Before(from) && entry.CreatedAt.Before(to)
}

func (f *fakeUsageRepo) ListForLicenseKeys(licenseKeyIDs []uint, subLicenseIDs []uint, from, to time.Time) ([]models.UsageTracking, error) {
	var out []models.UsageTracking
	for _, entry := range f.entries {
		if !f.inWindow(entry, from, to) {
			continue
		}
		match := false
		for _, id := range licenseKeyIDs {
			if entry.LicenseKeyID != nil && *entry.LicenseKeyID == id {
				match = true
			}
		}
		for _, id := range subLicenseIDs {
			if entry.SubLicenseID != nil && *entry.SubLicenseID == id {
				match = true
			}
		}
		if match {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeUsageRepo) ListForSubLicense(subLicenseID uint, from, to time.Time) ([]models.UsageTracking, error) {
	var out []models.UsageTracking
	for _, entry := range f.entries {
		if f.inWindow(entry, from, to) && entry.SubLicenseID != nil && *entry.SubLicenseID == subLicenseID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeCreditRepo struct {
	repository.CreditRepository
	balances map[uint]int64
}

func (f *fakeCreditRepo) GetByUserID(userID uint) (*models.UserCredit, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.UserCredit{UserID: userID, Balance: balance}, nil
}

type usageEnv struct {
	svc          *Service
	licenses     *fakeLicenseRepo
	usage        *fakeUsageRepo
	credits      *fakeCreditRepo
	licenseBumps []uint
	seatBumps    []uint
}

func newUsageEnv(t *testing.T) *usageEnv {
	t.Helper()
	env := &usageEnv{
		licenses: &fakeLicenseRepo{
			licenses: map[string]*models.LicenseKey{},
			subs:     map[string]*models.SubLicense{},
		},
		usage:   &fakeUsageRepo{},
		credits: &fakeCreditRepo{balances: map[uint]int64{}},
	}
	env.svc = NewService(&repository.Repositories{
		License: env.licenses,
		Usage:   env.usage,
		Credit:  env.credits,
	})
	env.svc.addLicenseUsage = func(id uint) error {
		env.licenseBumps = append(env.licenseBumps, id)
		return nil
	}
	env.svc.addSubLicenseUsage = func(id uint) error {
		env.seatBumps = append(env.seatBumps, id)
		return nil
	}
	return env
}

func (e *usageEnv) seedTeam() (*models.LicenseKey, *models.SubLicense, *models.SubLicense) {
	main := &models.LicenseKey{ID: 1, Key: "main-key", IsActive: true}
	e.licenses.licenses[main.Key] = main
	userID := uint(7)
	seatA := &models.SubLicense{ID: 11, Key: "seat-a", MainLicenseKeyID: main.ID, AssignedUserID: &userID}
	seatB := &models.SubLicense{ID: 12, Key: "seat-b", MainLicenseKeyID: main.ID}
	e.licenses.subs[seatA.Key] = seatA
	e.licenses.subs[seatB.Key] = seatB
	return main, seatA, seatB
}

func TestService_Track_MainLicense(t *testing.T) {
	env := newUsageEnv(t)
	main, _, _ := env.seedTeam()

	result, err := env.svc.Track(context.Background(), TrackInput{
		LicenseKey: main.Key,
		Action:     "comment",
		Platform:   "linkedin",
	})
	require.NoError(t, err)
	assert.True(t, result.Recorded)
	assert.True(t, result.Attributed)
	assert.Nil(t, result.CreditBalance)

	require.Len(t, env.usage.entries, 1)
	entry := env.usage.entries[0]
	require.NotNil(t, entry.LicenseKeyID)
	assert.Equal(t, main.ID, *entry.LicenseKeyID)
	assert.Nil(t, entry.SubLicenseID)
	assert.Equal(t, []uint{main.ID}, env.licenseBumps)
	assert.Empty(t, env.seatBumps)
}

func TestService_Track_SubLicenseAttributesSeatAndUser(t *testing.T) {
	env := newUsageEnv(t)
	_, seatA, _ := env.seedTeam()
	env.credits.balances[*seatA.AssignedUserID] = 250

	result, err := env.svc.Track(context.Background(), TrackInput{
		LicenseKey: seatA.Key,
		Action:     "comment",
		Platform:   "linkedin",
	})
	require.NoError(t, err)
	require.NotNil(t, result.CreditBalance)
	assert.Equal(t, int64(250), *result.CreditBalance)

	require.Len(t, env.usage.entries, 1)
	entry := env.usage.entries[0]
	require.NotNil(t, entry.SubLicenseID)
	assert.Equal(t, seatA.ID, *entry.SubLicenseID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, *seatA.AssignedUserID, *entry.UserID)
	assert.Equal(t, []uint{seatA.ID}, env.seatBumps)
	assert.Empty(t, env.licenseBumps)
}

func TestService_Track_UnknownKeyStillRecords(t *testing.T) {
	env := newUsageEnv(t)

	result, err := env.svc.Track(context.Background(), TrackInput{
		LicenseKey: "no-such-key",
		Action:     "comment",
		Platform:   "linkedin",
	})
	require.NoError(t, err)
	assert.True(t, result.Recorded)
	assert.False(t, result.Attributed)

	require.Len(t, env.usage.entries, 1)
	assert.Nil(t, env.usage.entries[0].LicenseKeyID)
	assert.Nil(t, env.usage.entries[0].SubLicenseID)
	assert.Empty(t, env.licenseBumps)
	assert.Empty(t, env.seatBumps)
}

func TestService_Track_RequiresActionAndPlatform(t *testing.T) {
	env := newUsageEnv(t)

	_, err := env.svc.Track(context.Background(), TrackInput{Platform: "linkedin"})
	assert.Error(t, err)
	_, err = env.svc.Track(context.Background(), TrackInput{Action: "comment"})
	assert.Error(t, err)
	assert.Empty(t, env.usage.entries)
}

func seedEntries(env *usageEnv, base time.Time, main *models.LicenseKey, seatA, seatB *models.SubLicense) {
	add := func(day int, platform, action string, licenseID, subID *uint) {
		env.usage.entries = append(env.usage.entries, models.UsageTracking{
			LicenseKeyID: licenseID,
			SubLicenseID: subID,
			Platform:     platform,
			Action:       action,
			CreatedAt:    base.AddDate(0, 0, day).Add(6 * time.Hour),
		})
	}
	add(0, "linkedin", "comment", &main.ID, nil)
	add(0, "linkedin", "comment", nil, &seatA.ID)
	add(1, "instagram", "like", nil, &seatA.ID)
	add(2, "linkedin", "comment", nil, &seatB.ID)
}

func TestService_TeamAnalytics_MainLicenseSeesAllSeats(t *testing.T) {
	env := newUsageEnv(t)
	main, seatA, seatB := env.seedTeam()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(env, base, main, seatA, seatB)

	report, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey: main.Key,
		From:       base,
		To:         base.AddDate(0, 0, 4),
	})
	require.NoError(t, err)

	assert.True(t, report.IsMainKey)
	assert.Equal(t, int64(4), report.Total)
	assert.Equal(t, int64(3), report.ByPlatform["linkedin"])
	assert.Equal(t, int64(1), report.ByPlatform["instagram"])
	assert.Equal(t, int64(3), report.ByAction["comment"])

	require.Len(t, report.Daily, 4)
	assert.Equal(t, DailyCount{Date: "2026-03-01", Count: 2}, report.Daily[0])
	assert.Equal(t, DailyCount{Date: "2026-03-02", Count: 1}, report.Daily[1])
	assert.Equal(t, DailyCount{Date: "2026-03-03", Count: 1}, report.Daily[2])
	assert.Equal(t, DailyCount{Date: "2026-03-04", Count: 0}, report.Daily[3])

	require.Len(t, report.Seats, 2)
	assert.Equal(t, SeatUsage{SubLicenseID: seatA.ID, Count: 2}, report.Seats[0])
	assert.Equal(t, SeatUsage{SubLicenseID: seatB.ID, Count: 1}, report.Seats[1])
}

func TestService_TeamAnalytics_SubLicenseSeesOnlyItsOwn(t *testing.T) {
	env := newUsageEnv(t)
	main, seatA, seatB := env.seedTeam()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(env, base, main, seatA, seatB)

	report, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey: seatA.Key,
		From:       base,
		To:         base.AddDate(0, 0, 4),
	})
	require.NoError(t, err)

	assert.False(t, report.IsMainKey)
	assert.Equal(t, int64(2), report.Total)
	require.Len(t, report.Seats, 1)
	assert.Equal(t, seatA.ID, report.Seats[0].SubLicenseID)
}

func TestService_TeamAnalytics_SeatFilter(t *testing.T) {
	env := newUsageEnv(t)
	main, seatA, seatB := env.seedTeam()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(env, base, main, seatA, seatB)

	report, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey:   main.Key,
		From:         base,
		To:           base.AddDate(0, 0, 4),
		SubLicenseID: &seatB.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Total)

	foreign := uint(999)
	_, err = env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey:   main.Key,
		From:         base,
		To:           base.AddDate(0, 0, 4),
		SubLicenseID: &foreign,
	})
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestService_TeamAnalytics_PlatformAndActionFilters(t *testing.T) {
	env := newUsageEnv(t)
	main, seatA, seatB := env.seedTeam()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(env, base, main, seatA, seatB)

	report, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey: main.Key,
		From:       base,
		To:         base.AddDate(0, 0, 4),
		Platform:   "linkedin",
		Action:     "comment",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Total)
	assert.Zero(t, report.ByPlatform["instagram"])
}

func TestService_TeamAnalytics_UnknownKey(t *testing.T) {
	env := newUsageEnv(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey: "ghost",
		From:       base,
		To:         base.AddDate(0, 0, 1),
	})
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestService_TeamAnalytics_InvalidRange(t *testing.T) {
	env := newUsageEnv(t)
	main, _, _ := env.seedTeam()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.TeamAnalytics(context.Background(), AnalyticsInput{
		LicenseKey: main.Key,
		From:       base,
		To:         base,
	})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
