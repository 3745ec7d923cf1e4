package licensing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
)

// Key collisions with uuidv4 are practically impossible; the retry exists so
// a unique-index violation never bubbles up as a 500.
const subLicenseKeyAttempts = 3

// EnsureSeats creates the sub-license seats a main key's tier entitles it to,
// topping up when seats are missing. Existing seats are never touched.
// Returns the number of seats created.
func (s *Service) EnsureSeats(ctx context.Context, license *models.LicenseKey) (int, error) {
	_ = ctx
	target := entitlements.TierSeatCount(license.Tier)
	if target == 0 {
		return 0, nil
	}

	existing, err := s.repos.License.CountSubLicenses(license.ID)
	if err != nil {
		return 0, err
	}
	missing := target - int(existing)
	if missing <= 0 {
		return 0, nil
	}

	created := 0
	for i := 0; i < missing; i++ {
		if err := s.createSeat(license); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Service) createSeat(license *models.LicenseKey) error {
	var lastErr error
	for attempt := 0; attempt < subLicenseKeyAttempts; attempt++ {
		sub := &models.SubLicense{
			Key:                uuid.NewString(),
			Status:             models.SubLicenseStatusInactive,
			MainLicenseKeyID:   license.ID,
			OriginalLicenseKey: license.Key,
		}
		lastErr = s.repos.License.CreateSubLicense(sub)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return lastErr
		}
	}
	return fmt.Errorf("failed to create sub-license after %d attempts: %w", subLicenseKeyAttempts, lastErr)
}

// SeatInfo is the owner-facing view of one sub-license seat.
type SeatInfo struct {
	ID            uint   `json:"id"`
	Key           string `json:"key"`
	Status        string `json:"status"`
	AssignedEmail string `json:"assigned_email,omitempty"`
	Assigned      bool   `json:"assigned"`
}

// ListSeats returns the seats under a main license key. A non-zero callerID
// must be linked to the key.
func (s *Service) ListSeats(ctx context.Context, mainKey string, callerID uint) ([]SeatInfo, error) {
	_ = ctx
	license, err := s.repos.License.GetByKey(strings.TrimSpace(mainKey))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	if err := s.requireOwner(callerID, license.ID); err != nil {
		return nil, err
	}

	subs, err := s.repos.License.ListSubLicenses(license.ID)
	if err != nil {
		return nil, err
	}

	seats := make([]SeatInfo, 0, len(subs))
	for _, sub := range subs {
		seats = append(seats, SeatInfo{
			ID:            sub.ID,
			Key:           sub.Key,
			Status:        sub.Status,
			AssignedEmail: sub.AssignedEmail,
			Assigned:      sub.AssignedUserID != nil || sub.AssignedEmail != "",
		})
	}
	return seats, nil
}

// AssignSeat binds the first unassigned seat of a main key to the given
// email, creating the user account on the fly when none exists yet. The
// seat becomes active immediately. A non-zero callerID must be linked to
// the main key.
func (s *Service) AssignSeat(ctx context.Context, mainKey, email string, callerID uint) (*SeatInfo, error) {
	_ = ctx
	license, err := s.repos.License.GetByKey(strings.TrimSpace(mainKey))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	if err := s.requireOwner(callerID, license.ID); err != nil {
		return nil, err
	}
	if !license.IsActive {
		return nil, ErrLicenseInactive
	}

	subs, err := s.repos.License.ListSubLicenses(license.ID)
	if err != nil {
		return nil, err
	}

	var seat *models.SubLicense
	for i := range subs {
		if subs[i].AssignedUserID == nil && subs[i].AssignedEmail == "" {
			seat = &subs[i]
			break
		}
	}
	if seat == nil {
		return nil, ErrSeatLimitReached
	}

	user, err := s.repos.User.UpsertByEmail(email, "")
	if err != nil {
		return nil, err
	}

	if err := s.repos.License.AssignSubLicenseUser(seat.ID, user.ID); err != nil {
		return nil, err
	}
	seat.AssignedEmail = strings.ToLower(strings.TrimSpace(email))
	seat.AssignedUserID = &user.ID
	seat.Status = models.SubLicenseStatusActive
	if err := s.repos.License.UpdateSubLicense(seat); err != nil {
		return nil, err
	}

	if err := s.repos.License.EnsureUserLink(user.ID, license.ID); err != nil {
		return nil, err
	}
	if err := s.repos.User.SetPaidStatus(user.ID, true); err != nil {
		return nil, err
	}

	return &SeatInfo{
		ID:            seat.ID,
		Key:           seat.Key,
		Status:        seat.Status,
		AssignedEmail: seat.AssignedEmail,
		Assigned:      true,
	}, nil
}
