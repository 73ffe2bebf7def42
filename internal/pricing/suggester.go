package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/appelspro/brief-engine/internal/scoring"
)

// Constraint flags recognized by the suggester. Unknown flags are ignored.
const (
	ConstraintOnSite        = "on_site_required"
	ConstraintUrgent        = "urgent"
	ConstraintTightBudget   = "tight_budget"
	ConstraintCertification = "certification_required"
)

// timeFactors are the situational multipliers applied to both price and
// delay computations. Unknown levels fall back to 1.0.
var timeFactors = map[string]map[string]float64{
	"urgency": {
		"urgent":   0.6,
		"normal":   1.0,
		"flexible": 1.4,
	},
	"complexity": {
		"simple":       0.7,
		"medium":       1.0,
		"complex":      1.6,
		"very_complex": 2.2,
	},
	"quality_level": {
		"basic":        0.8,
		"professional": 1.0,
		"premium":      1.3,
		"enterprise":   1.6,
	},
}

// complexityHourMultipliers scale the base hour estimate by project
// complexity. Distinct from the price-side complexity factor above.
var complexityHourMultipliers = map[string]float64{
	"simple":       0.6,
	"medium":       1.0,
	"complex":      1.8,
	"very_complex": 2.5,
}

// baseHours is the per-category effort table used when the caller does not
// supply an hour estimate. Keyed by raw lowercased category, not the alias
// map: effort and rates are calibrated independently.
var baseHours = map[string]struct {
	order []string
	hours map[string]int
}{
	"développement": {order: []string{"web", "mobile", "api"}, hours: map[string]int{"web": 40, "mobile": 60, "api": 30}},
	"design":        {order: []string{"ui_ux", "graphique", "logo"}, hours: map[string]int{"ui_ux": 25, "graphique": 15, "logo": 8}},
	"marketing":     {order: []string{"digital", "contenu", "strategy"}, hours: map[string]int{"digital": 20, "contenu": 15, "strategy": 30}},
	"conseil":       {order: []string{"stratégie", "audit"}, hours: map[string]int{"stratégie": 35, "audit": 20}},
}

const defaultBaseHours = 30

// confidentCategories get a confidence bonus: the grid carries enough market
// depth for these segments to trust the bands.
var confidentCategories = map[string]bool{
	"développement": true,
	"design":        true,
	"marketing":     true,
}

// Input carries a normalized brief's pricing-relevant signals.
type Input struct {
	Category          string
	SubCategory       string
	EstimatedHours    int // 0 means estimate from category tables
	Complexity        string
	Urgency           string
	QualityLevel      string
	BriefQualityScore float64
	MarketHeat        float64
	Constraints       []string
}

func (in *Input) withDefaults() {
	if in.Complexity == "" {
		in.Complexity = "medium"
	}
	if in.Urgency == "" {
		in.Urgency = "normal"
	}
	if in.QualityLevel == "" {
		in.QualityLevel = "professional"
	}
	if in.MarketHeat <= 0 {
		in.MarketHeat = 1.0
	}
}

// AdjustmentFactors are the positive multipliers derived per request.
type AdjustmentFactors struct {
	ComplexityFactor  float64 `json:"complexity_factor"`
	UrgencyFactor     float64 `json:"urgency_factor"`
	QualityFactor     float64 `json:"quality_factor"`
	BriefQualityBonus float64 `json:"brief_quality_bonus"`
	MarketHeatFactor  float64 `json:"market_heat_factor"`
	ConstraintPenalty float64 `json:"constraint_penalty"`
}

// BaseInfo summarizes the inputs a suggestion was computed from.
type BaseInfo struct {
	Category       string `json:"category"`
	SubCategory    string `json:"sub_category,omitempty"`
	EstimatedHours int    `json:"estimated_hours"`
	BaseHourlyRate string `json:"base_hourly_rate"`
}

// Rationale explains which adjustments shaped a suggestion. Explanatory
// metadata only; never fed back into computation.
type Rationale struct {
	BaseInfo           BaseInfo `json:"base_info"`
	AdjustmentsApplied []string `json:"adjustments_applied"`
	MarketFactors      []string `json:"market_factors"`
	Recommendations    []string `json:"recommendations"`
}

// Suggestion is the price band and delivery estimate for a brief.
type Suggestion struct {
	PriceMin   int       `json:"price_suggested_min"`
	PriceMed   int       `json:"price_suggested_med"`
	PriceMax   int       `json:"price_suggested_max"`
	DelayDays  int       `json:"delay_suggested_days"`
	Rationale  Rationale `json:"rationale"`
	Confidence float64   `json:"confidence"`
}

// Suggester computes price/time suggestions against a pricing store.
type Suggester struct {
	store *Store
}

// NewSuggester creates a suggester bound to a pricing store.
func NewSuggester(store *Store) *Suggester {
	return &Suggester{store: store}
}

// Suggest derives a price band, delivery estimate, rationale, and confidence
// from the brief's category and situational signals. Never fails: every
// lookup has a fallback.
func (s *Suggester) Suggest(in Input) Suggestion {
	in.withDefaults()

	base := s.store.Grid().Lookup(in.Category, in.SubCategory)

	hours := in.EstimatedHours
	if hours <= 0 {
		hours = EstimateHours(in.Category, in.SubCategory, in.Complexity)
	}

	adj := computeAdjustments(in)
	priceMin, priceMed, priceMax := computePrices(base, hours, adj)
	delay := computeDelay(hours, adj)

	return Suggestion{
		PriceMin:   priceMin,
		PriceMed:   priceMed,
		PriceMax:   priceMax,
		DelayDays:  delay,
		Rationale:  buildRationale(base, hours, adj, in),
		Confidence: computeConfidence(in),
	}
}

// EstimateHours estimates effort from the category tables and complexity.
func EstimateHours(category, subCategory, complexity string) int {
	hours := defaultBaseHours
	if set, ok := baseHours[strings.ToLower(category)]; ok {
		if h, ok := set.hours[strings.ToLower(subCategory)]; ok {
			hours = h
		} else {
			hours = set.hours[set.order[0]]
		}
	}

	multiplier, ok := complexityHourMultipliers[complexity]
	if !ok {
		multiplier = 1.0
	}
	return int(float64(hours) * multiplier)
}

func factor(group, level string) float64 {
	if v, ok := timeFactors[group][level]; ok {
		return v
	}
	return 1.0
}

func hasConstraint(constraints []string, flag string) bool {
	for _, c := range constraints {
		if c == flag {
			return true
		}
	}
	return false
}

func computeAdjustments(in Input) AdjustmentFactors {
	adj := AdjustmentFactors{
		ComplexityFactor:  factor("complexity", in.Complexity),
		UrgencyFactor:     factor("urgency", in.Urgency),
		QualityFactor:     factor("quality_level", in.QualityLevel),
		BriefQualityBonus: scoring.Clamp(in.BriefQualityScore*1.5, 0.8, 1.2),
		MarketHeatFactor:  in.MarketHeat,
		ConstraintPenalty: 1.0,
	}

	if hasConstraint(in.Constraints, ConstraintOnSite) {
		adj.ConstraintPenalty *= 1.15
	}
	if hasConstraint(in.Constraints, ConstraintCertification) {
		adj.ConstraintPenalty *= 1.2
	}
	if hasConstraint(in.Constraints, ConstraintUrgent) {
		adj.UrgencyFactor *= 0.8
	}
	if hasConstraint(in.Constraints, ConstraintTightBudget) {
		adj.BriefQualityBonus *= 0.9
	}

	return adj
}

// computePrices multiplies each hourly band by the total adjustment and the
// hour estimate. Urgency is deliberately decoupled from its time factor: an
// urgent project gets a flat 1.3 price boost while the sub-1.0 urgency
// factor only shortens the delay.
func computePrices(base Profile, hours int, adj AdjustmentFactors) (int, int, int) {
	total := adj.ComplexityFactor *
		adj.QualityFactor *
		adj.BriefQualityBonus *
		adj.MarketHeatFactor *
		adj.ConstraintPenalty

	if adj.UrgencyFactor < 1.0 {
		total *= 1.3
	} else {
		total *= adj.UrgencyFactor
	}

	h := float64(hours)
	return scoring.RoundPrice(base.HourlyMin * total * h),
		scoring.RoundPrice(base.HourlyMed * total * h),
		scoring.RoundPrice(base.HourlyMax * total * h)
}

// computeDelay converts the hour estimate to days at 6 productive hours per
// day. A better brief means fewer iteration cycles, so the brief bonus works
// inverted here: briefBonus 1.2 shrinks the delay, 0.8 stretches it.
func computeDelay(hours int, adj AdjustmentFactors) int {
	baseDays := float64(hours) / 6.0
	timeAdjustment := adj.ComplexityFactor * adj.UrgencyFactor * adj.QualityFactor
	briefBonus := 2 - adj.BriefQualityBonus

	days := int(math.Round(baseDays * timeAdjustment * briefBonus))
	if days < 1 {
		return 1
	}
	if days > 90 {
		return 90
	}
	return days
}

func computeConfidence(in Input) float64 {
	confidence := in.BriefQualityScore
	if confidentCategories[strings.ToLower(in.Category)] {
		confidence += 0.1
	}
	if in.SubCategory != "" {
		confidence += 0.1
	}
	return scoring.Clamp(confidence, 0.3, 0.95)
}

func buildRationale(base Profile, hours int, adj AdjustmentFactors, in Input) Rationale {
	r := Rationale{
		BaseInfo: BaseInfo{
			Category:       in.Category,
			SubCategory:    in.SubCategory,
			EstimatedHours: hours,
			BaseHourlyRate: fmt.Sprintf("%.0f-%.0f€/h", base.HourlyMin, base.HourlyMax),
		},
		AdjustmentsApplied: []string{},
		MarketFactors:      []string{},
		Recommendations:    []string{},
	}

	if adj.ComplexityFactor > 1.2 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			fmt.Sprintf("%s complexity: +%d%%", in.Complexity, int((adj.ComplexityFactor-1)*100)))
	} else if adj.ComplexityFactor < 0.8 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			fmt.Sprintf("simple project: %d%% reduction", int((1-adj.ComplexityFactor)*100)))
	}

	if adj.UrgencyFactor < 1.0 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			"urgency: shorter delivery, price increased by 30%")
	}

	if adj.QualityFactor > 1.1 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			fmt.Sprintf("premium quality requested: +%d%%", int((adj.QualityFactor-1)*100)))
	}

	if adj.BriefQualityBonus > 1.1 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			"high-quality brief: fewer iterations, optimized price")
	} else if adj.BriefQualityBonus < 0.9 {
		r.AdjustmentsApplied = append(r.AdjustmentsApplied,
			"brief needs improvement: margin added for misunderstanding risk")
	}

	if adj.MarketHeatFactor > 1.1 {
		r.MarketFactors = append(r.MarketFactors, "tight market: rates slightly increased")
	} else if adj.MarketHeatFactor < 0.9 {
		r.MarketFactors = append(r.MarketFactors, "soft market: competitive rates")
	}

	if in.Urgency == "urgent" {
		r.Recommendations = append(r.Recommendations,
			"consider a larger team to hold the deadline")
	}
	if in.Complexity == "complex" {
		r.Recommendations = append(r.Recommendations,
			"plan intermediate milestones for validation")
	}
	if adj.BriefQualityBonus < 0.9 {
		r.Recommendations = append(r.Recommendations,
			"improve the brief to optimize cost and delivery time")
	}

	return r
}

// MarketInsights summarizes what the grid knows about a segment.
type MarketInsights struct {
	Category         string   `json:"category"`
	SubCategory      string   `json:"sub_category,omitempty"`
	HourlyRange      string   `json:"hourly_range"`
	DailyRange       string   `json:"daily_range"`
	TypicalDuration  string   `json:"typical_duration"`
	ComplexityImpact string   `json:"complexity_impact"`
	Recommendations  []string `json:"recommendations"`
}

// Insights returns market context for a category, for display alongside a
// suggestion.
func (s *Suggester) Insights(category, subCategory string) MarketInsights {
	base := s.store.Grid().Lookup(category, subCategory)

	return MarketInsights{
		Category:         category,
		SubCategory:      subCategory,
		HourlyRange:      fmt.Sprintf("%.0f-%.0f€/h", base.HourlyMin, base.HourlyMax),
		DailyRange:       fmt.Sprintf("%.0f-%.0f€/day", base.DailyMin, base.DailyMax),
		TypicalDuration:  fmt.Sprintf("%d days", base.AvgDays),
		ComplexityImpact: fmt.Sprintf("×%.1f for complex projects", base.ComplexityFactor),
		Recommendations: []string{
			"specify the expected quality level",
			"detail the technical constraints",
			"state urgency and flexibility",
			"provide a complete brief to optimize costs",
		},
	}
}
