package usage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/metrics/counter"
)

var (
	// ErrLicenseNotFound is returned when a key matches neither a main
	// license nor a sub-license.
	ErrLicenseNotFound = errors.New("license key not found")
	// ErrSeatNotFound is returned when a seat filter names a sub-license
	// that does not belong to the caller's main license.
	ErrSeatNotFound = errors.New("sub-license not found")
	// ErrInvalidRange is returned for an empty or inverted date range.
	ErrInvalidRange = errors.New("invalid date range")
)

// Counter bump functions are fields so tests can observe them without Redis.
type Service struct {
	repos              *repository.Repositories
	addLicenseUsage    func(licenseKeyID uint) error
	addSubLicenseUsage func(subLicenseID uint) error
}

// NewService creates a usage service from injected repositories.
func NewService(repos *repository.Repositories) *Service {
	return &Service{
		repos:              repos,
		addLicenseUsage:    counter.AddLicenseUsage,
		addSubLicenseUsage: counter.AddSubLicenseUsage,
	}
}

// NewServiceFromDB creates a usage service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewRepositories(db))
}

// TrackInput describes one metered action reported by a client.
type TrackInput struct {
	LicenseKey string `json:"license_key"`
	UserID     *uint  `json:"user_id,omitempty"`
	Action     string `json:"action"`
	Platform   string `json:"platform"`
	Event      string `json:"event,omitempty"`
}

// TrackResult reports the attribution outcome and, when the acting user is
// known, their current credit balance.
type TrackResult struct {
	Recorded      bool   `json:"recorded"`
	Attributed    bool   `json:"attributed"`
	CreditBalance *int64 `json:"credit_balance,omitempty"`
}

// Track records a usage entry. A sub-license key attributes the entry to the
// seat, a main key to the license itself. An unknown key still records an
// unattributed entry so client-side tracking never hard-fails.
func (s *Service) Track(ctx context.Context, input TrackInput) (*TrackResult, error) {
	_ = ctx
	if strings.TrimSpace(input.Action) == "" || strings.TrimSpace(input.Platform) == "" {
		return nil, errors.New("action and platform are required")
	}

	entry := models.UsageTracking{
		Action:   strings.TrimSpace(input.Action),
		Platform: strings.TrimSpace(input.Platform),
		Event:    strings.TrimSpace(input.Event),
		UserID:   input.UserID,
	}

	key := strings.TrimSpace(input.LicenseKey)
	if key != "" {
		if sub, err := s.repos.License.GetSubLicenseByKey(key); err == nil {
			entry.SubLicenseID = &sub.ID
			if entry.UserID == nil {
				entry.UserID = sub.AssignedUserID
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		} else if license, lerr := s.repos.License.GetByKey(key); lerr == nil {
			entry.LicenseKeyID = &license.ID
		} else if !errors.Is(lerr, gorm.ErrRecordNotFound) {
			return nil, lerr
		}
	}

	if err := s.repos.Usage.Create(&entry); err != nil {
		return nil, err
	}

	// Counter bumps are best effort, a Redis hiccup must not fail tracking.
	switch {
	case entry.SubLicenseID != nil:
		_ = s.addSubLicenseUsage(*entry.SubLicenseID)
	case entry.LicenseKeyID != nil:
		_ = s.addLicenseUsage(*entry.LicenseKeyID)
	}

	result := &TrackResult{
		Recorded:   true,
		Attributed: entry.SubLicenseID != nil || entry.LicenseKeyID != nil,
	}
	if entry.UserID != nil {
		if credit, err := s.repos.Credit.GetByUserID(*entry.UserID); err == nil && credit != nil {
			balance := credit.Balance
			result.CreditBalance = &balance
		}
	}
	return result, nil
}

// AnalyticsInput selects the analytics window and optional filters. The
// scope is derived from the key itself: a main license sees its own entries
// plus every seat, a sub-license key sees only its own.
type AnalyticsInput struct {
	LicenseKey   string
	From         time.Time
	To           time.Time
	SubLicenseID *uint
	Platform     string
	Action       string
}

// DailyCount is one day of the analytics window, zero-filled for days
// without activity.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SeatUsage aggregates entries per sub-license.
type SeatUsage struct {
	SubLicenseID uint  `json:"sub_license_id"`
	Count        int64 `json:"count"`
}

// Analytics is the aggregated usage report for one license scope.
type Analytics struct {
	Total      int64            `json:"total"`
	ByPlatform map[string]int64 `json:"by_platform"`
	ByAction   map[string]int64 `json:"by_action"`
	Daily      []DailyCount     `json:"daily"`
	Seats      []SeatUsage      `json:"seats"`
	IsMainKey  bool             `json:"is_main_key"`
}

// TeamAnalytics aggregates usage entries visible to the given key within
// [From, To). Unknown keys return ErrLicenseNotFound.
func (s *Service) TeamAnalytics(ctx context.Context, input AnalyticsInput) (*Analytics, error) {
	_ = ctx
	key := strings.TrimSpace(input.LicenseKey)
	if key == "" {
		return nil, ErrLicenseNotFound
	}
	if !input.From.Before(input.To) {
		return nil, ErrInvalidRange
	}

	license, err := s.repos.License.GetByKey(key)
	if err == nil {
		return s.mainAnalytics(license, input)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub, err := s.repos.License.GetSubLicenseByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}

	entries, err := s.repos.Usage.ListForSubLicense(sub.ID, input.From, input.To)
	if err != nil {
		return nil, err
	}
	return s.aggregate(entries, input, false), nil
}

func (s *Service) mainAnalytics(license *models.LicenseKey, input AnalyticsInput) (*Analytics, error) {
	subs, err := s.repos.License.ListSubLicenses(license.ID)
	if err != nil {
		return nil, err
	}
	subIDs := make([]uint, 0, len(subs))
	for _, sub := range subs {
		subIDs = append(subIDs, sub.ID)
	}

	var entries []models.UsageTracking
	if input.SubLicenseID != nil {
		found := false
		for _, id := range subIDs {
			if id == *input.SubLicenseID {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrSeatNotFound
		}
		entries, err = s.repos.Usage.ListForSubLicense(*input.SubLicenseID, input.From, input.To)
	} else {
		entries, err = s.repos.Usage.ListForLicenseKeys([]uint{license.ID}, subIDs, input.From, input.To)
	}
	if err != nil {
		return nil, err
	}
	return s.aggregate(entries, input, true), nil
}

func (s *Service) aggregate(entries []models.UsageTracking, input AnalyticsInput, isMain bool) *Analytics {
	report := &Analytics{
		ByPlatform: map[string]int64{},
		ByAction:   map[string]int64{},
		IsMainKey:  isMain,
	}

	dayCounts := map[string]int64{}
	seatCounts := map[uint]int64{}
	for _, entry := range entries {
		if input.Platform != "" && entry.Platform != input.Platform {
			continue
		}
		if input.Action != "" && entry.Action != input.Action {
			continue
		}
		report.Total++
		report.ByPlatform[entry.Platform]++
		report.ByAction[entry.Action]++
		dayCounts[entry.CreatedAt.UTC().Format("2006-01-02")]++
		if entry.SubLicenseID != nil {
			seatCounts[*entry.SubLicenseID]++
		}
	}

	// Zero-fill every day of the window so charts render continuous axes.
	for day := input.From.UTC().Truncate(24 * time.Hour); day.Before(input.To); day = day.Add(24 * time.Hour) {
		label := day.Format("2006-01-02")
		report.Daily = append(report.Daily, DailyCount{Date: label, Count: dayCounts[label]})
	}

	for id, count := range seatCounts {
		report.Seats = append(report.Seats, SeatUsage{SubLicenseID: id, Count: count})
	}
	sort.Slice(report.Seats, func(i, j int) bool { return report.Seats[i].SubLicenseID < report.Seats[j].SubLicenseID })
	return report
}
