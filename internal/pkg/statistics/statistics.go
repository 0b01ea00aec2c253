package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/internal/pkg/cache"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
)

const (
	CacheKeyLinksTotal   = "statistics:links:total"
	CacheKeyRevenueDaily = "statistics:revenue:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyRevenueTotal = "statistics:revenue:total_cents"
	CacheKeyUsers        = "statistics:users:total"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregates shown on the landing page
type StatisticsData struct {
	TodayRevenueCents int64
	TotalRevenueCents int64
	TotalLinks        int
	TotalUsers        int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cache is older than the refresh interval
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

// UpdateStatisticsCache recomputes all aggregates and writes them to the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	var totalLinks int64
	if err := db.Model(&models.TrackingLink{}).Count(&totalLinks).Error; err != nil {
		log.Printf("Error counting tracking links: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting users: %v", err)
		return err
	}

	var totalCents int64
	if err := db.Model(&models.RevenueEntry{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&totalCents).Error; err != nil {
		log.Printf("Error summing revenue: %v", err)
		return err
	}

	today := time.Now().Format("2006-01-02")
	var todayCents int64
	if err := db.Model(&models.RevenueEntry{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("DATE(entry_date) = ?", today).
		Scan(&todayCents).Error; err != nil {
		log.Printf("Error summing today's revenue: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyLinksTotal, strconv.FormatInt(totalLinks, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyRevenueTotal, strconv.FormatInt(totalCents, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyRevenueDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayCents, 10), CacheExpiration); err != nil {
		return err
	}

	return nil
}

// GetStatistics returns the cached aggregates, refreshing the cache on miss
func GetStatistics() StatisticsData {
	data := StatisticsData{}

	total, err := cache.Get(CacheKeyRevenueTotal)
	if err != nil {
		if err := UpdateStatisticsCache(); err != nil {
			return data
		}
		total, _ = cache.Get(CacheKeyRevenueTotal)
	}
	data.TotalRevenueCents, _ = strconv.ParseInt(total, 10, 64)

	if v, err := cache.Get(fmt.Sprintf(CacheKeyRevenueDaily, time.Now().Format("2006-01-02"))); err == nil {
		data.TodayRevenueCents, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, err := cache.GetInt(CacheKeyLinksTotal); err == nil {
		data.TotalLinks = v
	}
	if v, err := cache.GetInt(CacheKeyUsers); err == nil {
		data.TotalUsers = v
	}

	return data
}
