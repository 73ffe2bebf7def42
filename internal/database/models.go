package database

import (
	"time"

	"github.com/google/uuid"
)

// Estimator names recorded in the history.
const (
	EstimatorPriceTime = "price_time"
	EstimatorLOC       = "loc"
	EstimatorQuestions = "questions"
)

// EstimateRecord is one persisted estimator run. Score holds the
// estimator's headline number: suggestion confidence for price/time, base
// score for LOC, potential completion score for question rounds.
type EstimateRecord struct {
	ID          string    `json:"id" db:"id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Estimator   string    `json:"estimator" db:"estimator"`
	Category    string    `json:"category" db:"category"`
	SubCategory string    `json:"sub_category,omitempty" db:"sub_category"`
	PriceMin    int       `json:"price_min,omitempty" db:"price_min"`
	PriceMed    int       `json:"price_med,omitempty" db:"price_med"`
	PriceMax    int       `json:"price_max,omitempty" db:"price_max"`
	DelayDays   int       `json:"delay_days,omitempty" db:"delay_days"`
	Score       float64   `json:"score" db:"score"`
}

// NewEstimateRecord stamps a record with an identifier and timestamp.
func NewEstimateRecord(estimator, category string) EstimateRecord {
	return EstimateRecord{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Estimator: estimator,
		Category:  category,
	}
}

// EstimatorStats aggregates history for one estimator.
type EstimatorStats struct {
	Count       int64   `json:"count"`
	AvgScore    float64 `json:"avg_score"`
	AvgPriceMed float64 `json:"avg_price_med,omitempty"`
}
