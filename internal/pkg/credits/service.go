package credits

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
)

// ErrInsufficientCredits is re-exported so callers do not need to import the
// repository package to match the failure.
var ErrInsufficientCredits = repository.ErrInsufficientCredits

// Service is the credit ledger. All balance math happens in the repository
// under row locks; the service adds tier semantics on top.
type Service struct {
	repo repository.CreditRepository
}

// NewService creates a credit service from an injected repository.
func NewService(repo repository.CreditRepository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a credit service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewCreditRepository(db))
}

// Balance returns the user's current balance. A user without a credit row
// has a balance of zero.
func (s *Service) Balance(ctx context.Context, userID uint) (int64, error) {
	_ = ctx
	credit, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return credit.Balance, nil
}

// Grant adds credits to the user's balance with the given transaction type.
func (s *Service) Grant(ctx context.Context, userID uint, amount int64, txType, description string) (*models.UserCredit, error) {
	_ = ctx
	return s.repo.Grant(userID, amount, txType, description)
}

// GrantPlanCredits grants the monthly allowance for a tier.
func (s *Service) GrantPlanCredits(ctx context.Context, userID uint, tier int, reason string) (*models.UserCredit, error) {
	_ = ctx
	amount := entitlements.TierCredits(tier)
	return s.repo.Grant(userID, amount, models.TransactionTypePlanCredits, reason)
}

// Spend removes credits from the user's balance. The whole amount is spent
// or nothing; ErrInsufficientCredits means nothing changed.
func (s *Service) Spend(ctx context.Context, userID uint, amount int64, description string) (*models.UserCredit, error) {
	_ = ctx
	return s.repo.Spend(userID, amount, description)
}

// Deduct removes up to amount credits, clamping at zero. Users without a
// credit row are silently skipped; the returned deducted amount is zero then.
func (s *Service) Deduct(ctx context.Context, userID uint, amount int64, txType, description string) (int64, error) {
	_ = ctx
	_, deducted, err := s.repo.Deduct(userID, amount, txType, description)
	return deducted, err
}

// AdjustForTierChange reconciles the balance after a plan tier change. An
// upgrade grants the allowance difference, a downgrade deducts it (clamped
// at zero). Equal tiers are a no-op.
func (s *Service) AdjustForTierChange(ctx context.Context, userID uint, oldTier, newTier int) error {
	_ = ctx
	diff := entitlements.TierCredits(newTier) - entitlements.TierCredits(oldTier)
	if diff == 0 {
		return nil
	}

	description := fmt.Sprintf("Plan change tier %d -> %d", oldTier, newTier)
	if diff > 0 {
		_, err := s.repo.Grant(userID, diff, models.TransactionTypePlanCreditsAdjusted, description)
		return err
	}
	_, _, err := s.repo.Deduct(userID, -diff, models.TransactionTypePlanCreditsAdjusted, description)
	return err
}

// History returns the user's transaction log, newest first.
func (s *Service) History(ctx context.Context, userID uint, offset, limit int) ([]models.CreditTransaction, error) {
	_ = ctx
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListTransactions(userID, offset, limit)
}
