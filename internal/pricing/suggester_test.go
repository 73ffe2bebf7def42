package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSuggester() *Suggester {
	return NewSuggester(NewStoreWithGrid(DefaultGrid()))
}

func TestSuggestBaseline(t *testing.T) {
	s := newTestSuggester()

	res := s.Suggest(Input{
		Category:          "développement",
		SubCategory:       "web",
		EstimatedHours:    40,
		Complexity:        "medium",
		Urgency:           "normal",
		QualityLevel:      "professional",
		BriefQualityScore: 0.5,
		MarketHeat:        1.0,
	})

	// brief bonus clamps to 0.8, so total adjustment = 0.8:
	// med = 50 × 0.8 × 40 = 1600, rounded to the nearest 100.
	assert.Equal(t, 1000, res.PriceMin)
	assert.Equal(t, 1600, res.PriceMed)
	assert.Equal(t, 3000, res.PriceMax)

	// 40h / 6h-per-day × (2 − 0.8) iteration stretch = 8 days.
	assert.Equal(t, 8, res.DelayDays)

	// 0.5 base + 0.1 recognized category + 0.1 sub-category supplied.
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
}

func TestSuggestUrgentRaisesPriceAndShortensDelay(t *testing.T) {
	s := newTestSuggester()

	base := Input{
		Category:          "développement",
		SubCategory:       "web",
		EstimatedHours:    40,
		Complexity:        "medium",
		Urgency:           "normal",
		QualityLevel:      "professional",
		BriefQualityScore: 0.5,
		MarketHeat:        1.0,
	}
	normal := s.Suggest(base)

	urgent := base
	urgent.Urgency = "urgent"
	rushed := s.Suggest(urgent)

	// Urgency shortens time but raises price; the two are decoupled.
	assert.Greater(t, rushed.PriceMed, normal.PriceMed)
	assert.Less(t, rushed.DelayDays, normal.DelayDays)
	assert.Equal(t, 2000, rushed.PriceMed) // 50 × 0.8 × 1.3 × 40 = 2080 → 2000
	assert.Equal(t, 5, rushed.DelayDays)
}

func TestSuggestPriceOrdering(t *testing.T) {
	s := newTestSuggester()

	inputs := []Input{
		{Category: "développement", SubCategory: "mobile", EstimatedHours: 100, Complexity: "very_complex", Urgency: "urgent", QualityLevel: "enterprise", BriefQualityScore: 0.2, MarketHeat: 1.3, Constraints: []string{ConstraintOnSite, ConstraintCertification}},
		{Category: "design", BriefQualityScore: 0.9},
		{Category: "unknown-category", EstimatedHours: 3, BriefQualityScore: 0.0, MarketHeat: 0.5},
		{Category: "conseil", SubCategory: "stratégie", Complexity: "simple", Urgency: "flexible", QualityLevel: "basic", BriefQualityScore: 1.0},
	}

	for _, in := range inputs {
		res := s.Suggest(in)
		assert.LessOrEqual(t, res.PriceMin, res.PriceMed)
		assert.LessOrEqual(t, res.PriceMed, res.PriceMax)
		assert.GreaterOrEqual(t, res.DelayDays, 1)
		assert.LessOrEqual(t, res.DelayDays, 90)
		assert.GreaterOrEqual(t, res.Confidence, 0.3)
		assert.LessOrEqual(t, res.Confidence, 0.95)
	}
}

func TestSuggestIsDeterministic(t *testing.T) {
	s := newTestSuggester()
	in := Input{
		Category:          "marketing",
		SubCategory:       "digital",
		Complexity:        "complex",
		Urgency:           "flexible",
		QualityLevel:      "premium",
		BriefQualityScore: 0.7,
		MarketHeat:        1.1,
		Constraints:       []string{ConstraintTightBudget},
	}

	first := s.Suggest(in)
	second := s.Suggest(in)
	assert.Equal(t, first, second)
}

func TestSuggestDelayClampedAt90Days(t *testing.T) {
	s := newTestSuggester()

	res := s.Suggest(Input{
		Category:          "développement",
		EstimatedHours:    2000,
		Complexity:        "very_complex",
		Urgency:           "flexible",
		QualityLevel:      "enterprise",
		BriefQualityScore: 0.0,
	})
	assert.Equal(t, 90, res.DelayDays)
}

func TestEstimateHours(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		subCategory string
		complexity  string
		expected    int
	}{
		{name: "web medium", category: "développement", subCategory: "web", complexity: "medium", expected: 40},
		{name: "web complex", category: "développement", subCategory: "web", complexity: "complex", expected: 72},
		{name: "logo simple", category: "design", subCategory: "logo", complexity: "simple", expected: 4},
		{name: "unknown sub uses first entry", category: "conseil", subCategory: "coaching", complexity: "medium", expected: 35},
		{name: "unknown category uses default", category: "plomberie", subCategory: "", complexity: "medium", expected: 30},
		{name: "unknown complexity is neutral", category: "marketing", subCategory: "digital", complexity: "wild", expected: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EstimateHours(tt.category, tt.subCategory, tt.complexity))
		})
	}
}

func TestComputeAdjustmentsConstraints(t *testing.T) {
	adj := computeAdjustments(Input{
		Complexity:        "medium",
		Urgency:           "normal",
		QualityLevel:      "professional",
		BriefQualityScore: 0.8,
		MarketHeat:        1.0,
		Constraints:       []string{ConstraintOnSite, ConstraintCertification, ConstraintUrgent, ConstraintTightBudget},
	})

	assert.InDelta(t, 1.15*1.2, adj.ConstraintPenalty, 1e-9)
	assert.InDelta(t, 0.8, adj.UrgencyFactor, 1e-9) // normal 1.0 × 0.8
	// clamp(0.8 × 1.5) = 1.2, then tight_budget × 0.9.
	assert.InDelta(t, 1.08, adj.BriefQualityBonus, 1e-9)
}

func TestRationaleExplainsAdjustments(t *testing.T) {
	s := newTestSuggester()

	res := s.Suggest(Input{
		Category:          "développement",
		SubCategory:       "web",
		Complexity:        "complex",
		Urgency:           "urgent",
		QualityLevel:      "premium",
		BriefQualityScore: 0.3,
		MarketHeat:        1.2,
	})

	r := res.Rationale
	assert.Equal(t, "développement", r.BaseInfo.Category)
	require.NotEmpty(t, r.AdjustmentsApplied)
	assert.Contains(t, r.AdjustmentsApplied, "complex complexity: +60%")
	assert.Contains(t, r.AdjustmentsApplied, "urgency: shorter delivery, price increased by 30%")
	assert.Contains(t, r.AdjustmentsApplied, "premium quality requested: +30%")
	assert.Contains(t, r.MarketFactors, "tight market: rates slightly increased")
	assert.Contains(t, r.Recommendations, "consider a larger team to hold the deadline")
	assert.Contains(t, r.Recommendations, "plan intermediate milestones for validation")
	assert.Contains(t, r.Recommendations, "improve the brief to optimize cost and delivery time")
}

func TestInsights(t *testing.T) {
	s := newTestSuggester()

	insights := s.Insights("conseil", "stratégie")
	assert.Equal(t, "50-150€/h", insights.HourlyRange)
	assert.Equal(t, "400-1200€/day", insights.DailyRange)
	assert.Equal(t, "25 days", insights.TypicalDuration)
	assert.NotEmpty(t, insights.Recommendations)
}
