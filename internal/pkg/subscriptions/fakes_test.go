package subscriptions

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
)

// In-memory repository fakes used by the webhook handler tests.

type fakeUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) UpsertByEmail(email, name string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if user, err := f.GetByEmail(normalized); err == nil {
		return user, nil
	}
	user := &models.User{Email: normalized, Name: name, Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	_ = f.Create(user)
	return user, nil
}

func (f *fakeUserRepo) SetPaidStatus(id uint, paid bool) error {
	if user, ok := f.users[id]; ok {
		user.IsPaidUser = paid
	}
	return nil
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) List(offset, limit int) ([]models.User, error) { return nil, nil }
func (f *fakeUserRepo) Count() (int64, error)                         { return int64(len(f.users)), nil }

func (f *fakeUserRepo) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	return nil, nil, gorm.ErrRecordNotFound
}

type fakeLicenseRepo struct {
	licenses map[uint]*models.LicenseKey
	subs     map[uint]*models.SubLicense
	links    map[[2]uint]bool
	nextID   uint
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{
		licenses: make(map[uint]*models.LicenseKey),
		subs:     make(map[uint]*models.SubLicense),
		links:    make(map[[2]uint]bool),
	}
}

func (f *fakeLicenseRepo) GetByKey(key string) (*models.LicenseKey, error) {
	for _, license := range f.licenses {
		if license.Key == key {
			return license, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLicenseRepo) GetByKeyWithSubLicenses(key string) (*models.LicenseKey, error) {
	license, err := f.GetByKey(key)
	if err != nil {
		return nil, err
	}
	license.SubLicenses = nil
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == license.ID {
			license.SubLicenses = append(license.SubLicenses, *sub)
		}
	}
	return license, nil
}

func (f *fakeLicenseRepo) GetSubLicenseByKey(key string) (*models.SubLicense, error) {
	for _, sub := range f.subs {
		if sub.Key == key {
			copied := *sub
			copied.MainLicenseKey = f.licenses[sub.MainLicenseKeyID]
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLicenseRepo) GetByProductIDForUser(productID int64, userID uint) (*models.LicenseKey, error) {
	for _, license := range f.licenses {
		if license.LemonProductID == nil || *license.LemonProductID != productID || !license.IsActive {
			continue
		}
		if f.links[[2]uint{userID, license.ID}] {
			return license, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLicenseRepo) UpsertActivate(key, vendor string, tier int, productID *int64) (*models.LicenseKey, error) {
	now := time.Now()
	if license, err := f.GetByKey(key); err == nil {
		license.IsActive = true
		license.Vendor = vendor
		license.Tier = tier
		license.LemonProductID = productID
		license.ActivatedAt = &now
		return license, nil
	}
	f.nextID++
	license := &models.LicenseKey{
		ID: f.nextID, Key: key, IsActive: true, IsMainKey: true,
		Vendor: vendor, Tier: tier, LemonProductID: productID, ActivatedAt: &now,
	}
	f.licenses[license.ID] = license
	return license, nil
}

func (f *fakeLicenseRepo) Deactivate(licenseKeyID uint) error {
	if license, ok := f.licenses[licenseKeyID]; ok {
		now := time.Now()
		license.IsActive = false
		license.DeactivatedAt = &now
	}
	return nil
}

func (f *fakeLicenseRepo) DeactivateSubLicenses(mainLicenseKeyID uint) error {
	now := time.Now()
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == mainLicenseKeyID && sub.Status == models.SubLicenseStatusActive {
			sub.Status = models.SubLicenseStatusInactive
			sub.DeactivatedAt = &now
		}
	}
	return nil
}

func (f *fakeLicenseRepo) EnsureUserLink(userID, licenseKeyID uint) error {
	f.links[[2]uint{userID, licenseKeyID}] = true
	return nil
}

func (f *fakeLicenseRepo) UserOwnsLicense(userID, licenseKeyID uint) (bool, error) {
	return f.links[[2]uint{userID, licenseKeyID}], nil
}

func (f *fakeLicenseRepo) LinkedUserIDs(licenseKeyID uint) ([]uint, error) {
	var ids []uint
	for pair, linked := range f.links {
		if linked && pair[1] == licenseKeyID {
			ids = append(ids, pair[0])
		}
	}
	return ids, nil
}

func (f *fakeLicenseRepo) CreateActivation(activation *models.Activation) error { return nil }

func (f *fakeLicenseRepo) IncrementActivationCount(licenseKeyID uint) error {
	if license, ok := f.licenses[licenseKeyID]; ok {
		license.ActivationCount++
	}
	return nil
}

func (f *fakeLicenseRepo) IncrementUsageCount(licenseKeyID uint, delta int64) error {
	if license, ok := f.licenses[licenseKeyID]; ok {
		license.UsageCount += delta
	}
	return nil
}

func (f *fakeLicenseRepo) CreateSubLicense(sub *models.SubLicense) error {
	f.nextID++
	sub.ID = f.nextID
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeLicenseRepo) CountSubLicenses(mainLicenseKeyID uint) (int64, error) {
	var count int64
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == mainLicenseKeyID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLicenseRepo) CountActiveSubLicenses(mainLicenseKeyID uint) (int64, error) {
	var count int64
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == mainLicenseKeyID && sub.Status == models.SubLicenseStatusActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeLicenseRepo) ListSubLicenses(mainLicenseKeyID uint) ([]models.SubLicense, error) {
	var subs []models.SubLicense
	for _, sub := range f.subs {
		if sub.MainLicenseKeyID == mainLicenseKeyID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (f *fakeLicenseRepo) UpdateSubLicense(sub *models.SubLicense) error {
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeLicenseRepo) AssignSubLicenseUser(subLicenseID, userID uint) error {
	if sub, ok := f.subs[subLicenseID]; ok {
		sub.AssignedUserID = &userID
		sub.Status = models.SubLicenseStatusActive
	}
	return nil
}

func (f *fakeLicenseRepo) IncrementSubLicenseActivation(subLicenseID uint) error {
	if sub, ok := f.subs[subLicenseID]; ok {
		sub.ActivationCount++
	}
	return nil
}

type fakeSubscriptionRepo struct {
	plans      map[uint]*models.Plan
	subs       map[uint]*models.UserSubscription
	events     map[string]*models.WebhookEvent
	nextID     uint
	nextPlanID uint
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		plans:  make(map[uint]*models.Plan),
		subs:   make(map[uint]*models.UserSubscription),
		events: make(map[string]*models.WebhookEvent),
	}
}

func (f *fakeSubscriptionRepo) UpsertPlan(plan *models.Plan) error {
	for _, existing := range f.plans {
		if existing.Vendor == plan.Vendor && existing.ProductID == plan.ProductID {
			existing.Tier = plan.Tier
			existing.Duration = plan.Duration
			existing.Name = plan.Name
			existing.MaxUsers = plan.MaxUsers
			existing.IsActive = plan.IsActive
			*plan = *existing
			return nil
		}
	}
	f.nextPlanID++
	plan.ID = f.nextPlanID
	copied := *plan
	f.plans[plan.ID] = &copied
	return nil
}

func (f *fakeSubscriptionRepo) GetPlanByID(id uint) (*models.Plan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return plan, nil
}

func (f *fakeSubscriptionRepo) GetSubscriptionByVendorSubID(vendorSubID string) (*models.UserSubscription, error) {
	for _, sub := range f.subs {
		if sub.VendorSubID != nil && *sub.VendorSubID == vendorSubID {
			sub.Plan = f.plans[sub.PlanID]
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepo) CreateSubscription(sub *models.UserSubscription) error {
	f.nextID++
	sub.ID = f.nextID
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubscriptionRepo) SaveSubscription(sub *models.UserSubscription) error {
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubscriptionRepo) CancelActiveByUser(userID uint, endDate time.Time) error {
	now := time.Now()
	for _, sub := range f.subs {
		if sub.UserID == userID && sub.Status == models.SubscriptionStatusActive {
			sub.Status = models.SubscriptionStatusCancelled
			sub.EndDate = &endDate
			sub.CancelledAt = &now
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) ListOverdue(now time.Time) ([]models.UserSubscription, error) {
	var out []models.UserSubscription
	for _, sub := range f.subs {
		if sub.Status == models.SubscriptionStatusActive && sub.EndDate != nil && sub.EndDate.Before(now) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Vendor + ":" + event.VendorEventID
	if stored, ok := f.events[key]; ok {
		return false, stored, nil
	}
	f.nextID++
	event.ID = f.nextID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeSubscriptionRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, event := range f.events {
		if event.ID == id {
			event.ProcessingError = processingError
			if processingError == "" {
				now := time.Now()
				event.ProcessedAt = &now
			}
		}
	}
	return nil
}

// fakeCreditRepo mirrors the credit repository contract in memory.
type fakeCreditRepo struct {
	credits map[uint]*models.UserCredit
	log     []models.CreditTransaction
	nextID  uint
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{credits: make(map[uint]*models.UserCredit)}
}

func (f *fakeCreditRepo) GetByUserID(userID uint) (*models.UserCredit, error) {
	credit, ok := f.credits[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return credit, nil
}

func (f *fakeCreditRepo) Grant(userID uint, amount int64, txType, description string) (*models.UserCredit, error) {
	credit, ok := f.credits[userID]
	if !ok {
		f.nextID++
		credit = &models.UserCredit{ID: f.nextID, UserID: userID}
		f.credits[userID] = credit
	}
	credit.Balance += amount
	f.log = append(f.log, models.CreditTransaction{UserCreditID: credit.ID, Amount: amount, Type: txType, Description: description})
	return credit, nil
}

func (f *fakeCreditRepo) Spend(userID uint, amount int64, description string) (*models.UserCredit, error) {
	credit, ok := f.credits[userID]
	if !ok || credit.Balance < amount {
		return nil, repository.ErrInsufficientCredits
	}
	credit.Balance -= amount
	f.log = append(f.log, models.CreditTransaction{UserCreditID: credit.ID, Amount: -amount, Type: models.TransactionTypeSpent, Description: description})
	return credit, nil
}

func (f *fakeCreditRepo) Deduct(userID uint, amount int64, txType, description string) (*models.UserCredit, int64, error) {
	credit, ok := f.credits[userID]
	if !ok {
		return nil, 0, nil
	}
	deducted := amount
	if credit.Balance < deducted {
		deducted = credit.Balance
	}
	if deducted <= 0 {
		return credit, 0, nil
	}
	credit.Balance -= deducted
	f.log = append(f.log, models.CreditTransaction{UserCreditID: credit.ID, Amount: -deducted, Type: txType, Description: description})
	return credit, deducted, nil
}

func (f *fakeCreditRepo) ListTransactions(userID uint, offset, limit int) ([]models.CreditTransaction, error) {
	credit, ok := f.credits[userID]
	if !ok {
		return []models.CreditTransaction{}, nil
	}
	var out []models.CreditTransaction
	for i := len(f.log) - 1; i >= 0; i-- {
		if f.log[i].UserCreditID == credit.ID {
			out = append(out, f.log[i])
		}
	}
	return out, nil
}
