package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/cache"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
)

const (
	CacheKeyUsers        = "statistics:users:total"
	CacheKeyLicenses     = "statistics:licenses:active"
	CacheKeyRedeemsDaily = "statistics:redeems:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the admin dashboard
type StatisticsData struct {
	TotalUsers     int
	ActiveLicenses int
	TodayRedeems   int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached numbers are older than the refresh interval
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval has elapsed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded call to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recounts all statistics and stores them in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var activeLicenses int64
	if err := db.Model(&models.LicenseKey{}).Where("is_active = ?", true).Count(&activeLicenses).Error; err != nil {
		log.Printf("Error counting active licenses: %v", err)
		return err
	}

	var todayRedeems int64
	today := time.Now().UTC().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.RedeemCode{}).Where("claimed_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayRedeems).Error; err != nil {
		log.Printf("Error counting today's redeems: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyLicenses, strconv.FormatInt(activeLicenses, 10), CacheExpiration); err != nil {
		log.Printf("Error caching active licenses: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyRedeemsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayRedeems, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's redeems: %v", err)
		return err
	}

	return nil
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsers, func(count *int64) error {
		return database.GetDB().Model(&models.User{}).Count(count).Error
	})
}

// GetActiveLicenses returns the number of active license keys from cache or database
func GetActiveLicenses() int {
	return cachedCount(CacheKeyLicenses, func(count *int64) error {
		return database.GetDB().Model(&models.LicenseKey{}).Where("is_active = ?", true).Count(count).Error
	})
}

// GetTodayRedeems returns the number of redeem codes claimed today from cache or database
func GetTodayRedeems() int {
	today := time.Now().UTC().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyRedeemsDaily, today)

	return cachedCount(dailyKey, func(count *int64) error {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)
		return database.GetDB().Model(&models.RedeemCode{}).Where("claimed_at BETWEEN ? AND ?", todayStart, todayEnd).Count(count).Error
	})
}

func cachedCount(key string, fetch func(*int64) error) int {
	val, err := cache.Get(key)
	if err != nil {
		var count int64
		if err := fetch(&count); err != nil {
			log.Printf("Error counting %s: %v", key, err)
			return 0
		}

		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching %s: %v", key, err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics as one structure, refreshing the cache if stale
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalUsers:     GetTotalUsers(),
		ActiveLicenses: GetActiveLicenses(),
		TodayRedeems:   GetTodayRedeems(),
	}
}
