package statistics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/app/repository"
	"github.com/churnaizer/churnaizer/internal/pkg/cache"
)

const (
	cacheKeyOverview = "statistics:overview:%s" // Format with owner UUID
	cacheExpiration  = 5 * time.Minute
)

// Overview contains the dashboard headline numbers for one owner.
type Overview struct {
	TrackedUsers    int64   `json:"tracked_users"`
	HighRiskUsers   int64   `json:"high_risk_users"`
	MediumRiskUsers int64   `json:"medium_risk_users"`
	LowRiskUsers    int64   `json:"low_risk_users"`
	AvgChurnScore   float64 `json:"avg_churn_score"`
}

// GetOverview returns the owner's dashboard numbers, served from the
// cache when fresh.
func GetOverview(ownerID string) (*Overview, error) {
	key := fmt.Sprintf(cacheKeyOverview, ownerID)

	if cached, err := cache.Get(key); err == nil && cached != "" {
		var overview Overview
		if err := json.Unmarshal([]byte(cached), &overview); err == nil {
			return &overview, nil
		}
	}

	overview, err := computeOverview(ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(overview); err == nil {
		if err := cache.Set(key, string(data), cacheExpiration); err != nil {
			log.Warnf("[Statistics] failed to cache overview for %s: %v", ownerID, err)
		}
	}

	return overview, nil
}

// Invalidate drops the cached overview after fresh scores arrive.
func Invalidate(ownerID string) {
	if err := cache.Delete(fmt.Sprintf(cacheKeyOverview, ownerID)); err != nil {
		log.Warnf("[Statistics] failed to invalidate overview for %s: %v", ownerID, err)
	}
}

func computeOverview(ownerID string) (*Overview, error) {
	repo := repository.GetGlobalFactory().GetUserDataRepository()

	total, err := repo.CountByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("count tracked users: %w", err)
	}
	riskCounts, err := repo.CountByRiskLevel(ownerID)
	if err != nil {
		return nil, fmt.Errorf("count risk buckets: %w", err)
	}
	avg, err := repo.AverageChurnScore(ownerID)
	if err != nil {
		return nil, fmt.Errorf("average churn score: %w", err)
	}

	return &Overview{
		TrackedUsers:    total,
		HighRiskUsers:   riskCounts["high"],
		MediumRiskUsers: riskCounts["medium"],
		LowRiskUsers:    riskCounts["low"],
		AvgChurnScore:   avg,
	}, nil
}
