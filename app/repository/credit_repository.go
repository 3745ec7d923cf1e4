package repository

import (
	"errors"
	"fmt"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientCredits is returned by Spend when the balance does not
// cover the requested amount. No partial spend happens.
var ErrInsufficientCredits = errors.New("insufficient credits")

// creditRepository implements the CreditRepository interface
type creditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository instance
func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

// GetByUserID retrieves the credit record for a user
func (r *creditRepository) GetByUserID(userID uint) (*models.UserCredit, error) {
	var credit models.UserCredit
	err := r.db.Where("user_id = ?", userID).First(&credit).Error
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

// lockOrCreate loads the user's credit row under a row lock, creating it with
// a zero balance first when it does not exist yet. Must run inside tx.
func lockOrCreate(tx *gorm.DB, userID uint) (*models.UserCredit, error) {
	var credit models.UserCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&credit).Error
	if err == nil {
		return &credit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	credit = models.UserCredit{UserID: userID, Balance: 0}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&credit).Error; err != nil {
		return nil, err
	}
	// Re-read under the lock; a concurrent insert may have won.
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// Grant adds amount to the user's balance and appends a positive transaction.
// The credit row is created lazily on first grant.
func (r *creditRepository) Grant(userID uint, amount int64, txType, description string) (*models.UserCredit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	var result *models.UserCredit
	err := r.db.Transaction(func(tx *gorm.DB) error {
		credit, err := lockOrCreate(tx, userID)
		if err != nil {
			return err
		}
		credit.Balance += amount
		if err := tx.Model(credit).Update("balance", credit.Balance).Error; err != nil {
			return err
		}
		entry := models.CreditTransaction{
			UserCreditID: credit.ID,
			Amount:       amount,
			Type:         txType,
			Description:  description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result = credit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Spend subtracts amount from the user's balance and appends a negative
// SPENT transaction. Fails with ErrInsufficientCredits when the balance does
// not cover the amount; the balance is left untouched in that case.
func (r *creditRepository) Spend(userID uint, amount int64, description string) (*models.UserCredit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("spend amount must be positive, got %d", amount)
	}

	var result *models.UserCredit
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var credit models.UserCredit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&credit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInsufficientCredits
			}
			return err
		}
		if credit.Balance < amount {
			return ErrInsufficientCredits
		}
		credit.Balance -= amount
		if err := tx.Model(&credit).Update("balance", credit.Balance).Error; err != nil {
			return err
		}
		entry := models.CreditTransaction{
			UserCreditID: credit.ID,
			Amount:       -amount,
			Type:         models.TransactionTypeSpent,
			Description:  description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result = &credit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deduct removes up to amount from the user's balance, clamping at zero, and
// appends one negative transaction for what was actually removed. A user
// without a credit row is a silent no-op. Returns the deducted amount.
func (r *creditRepository) Deduct(userID uint, amount int64, txType, description string) (*models.UserCredit, int64, error) {
	if amount <= 0 {
		return nil, 0, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}

	var result *models.UserCredit
	var deducted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var credit models.UserCredit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&credit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		deducted = amount
		if credit.Balance < deducted {
			deducted = credit.Balance
		}
		if deducted <= 0 {
			deducted = 0
			result = &credit
			return nil
		}
		credit.Balance -= deducted
		if err := tx.Model(&credit).Update("balance", credit.Balance).Error; err != nil {
			return err
		}
		entry := models.CreditTransaction{
			UserCreditID: credit.ID,
			Amount:       -deducted,
			Type:         txType,
			Description:  description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result = &credit
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result, deducted, nil
}

// ListTransactions returns the user's transaction log, newest first
func (r *creditRepository) ListTransactions(userID uint, offset, limit int) ([]models.CreditTransaction, error) {
	var credit models.UserCredit
	if err := r.db.Where("user_id = ?", userID).First(&credit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.CreditTransaction{}, nil
		}
		return nil, err
	}
	var entries []models.CreditTransaction
	err := r.db.Where("user_credit_id = ?", credit.ID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}
