// Package loc scores a project's likelihood of closing (LOC) from
// independent weighted signals and proposes concrete parameter changes with
// their expected score deltas. All coefficients are fixed, hand-specified
// constants; nothing here is a fitted model.
package loc

import (
	"fmt"
	"math"
	"strings"

	"github.com/appelspro/brief-engine/internal/scoring"
)

// componentWeights combine the seven LOC signals. They must sum to 1.0;
// init verifies the table has not drifted.
var componentWeights = map[string]float64{
	"brief_quality":         0.25,
	"price_competitiveness": 0.20,
	"category_demand":       0.15,
	"client_history":        0.15,
	"market_conditions":     0.10,
	"urgency":               0.08,
	"budget_realism":        0.07,
}

func init() {
	if !scoring.SumWeights(componentWeights, 1.0, 1e-9) {
		panic("loc: component weights must sum to 1.0")
	}
}

// Expected improvement per action band.
var improvementCoefficients = map[string]map[string]float64{
	"budget_increase": {
		"low":    0.05,
		"medium": 0.12,
		"high":   0.20,
	},
	"delay_extension": {
		"low":    0.03,
		"medium": 0.08,
		"high":   0.15,
	},
	"brief_enhancement": {
		"details":      0.10,
		"criteria":     0.08,
		"deliverables": 0.06,
	},
}

var demandScores = map[string]float64{
	"web_development":    0.8,
	"mobile_development": 0.7,
	"design_graphique":   0.6,
	"marketing_digital":  0.7,
	"construction":       0.9,
	"services_personne":  0.8,
}

const defaultDemandScore = 0.6

var demandAliases = map[string]string{
	"developpement": "web_development",
	"développement": "web_development",
	"mobile":        "mobile_development",
	"design":        "design_graphique",
	"marketing":     "marketing_digital",
	"travaux":       "construction",
	"menage":        "services_personne",
}

// Benchmark holds per-category closing-rate reference points.
type Benchmark struct {
	AvgLOC      float64 `json:"avg_loc"`
	TopQuartile float64 `json:"top_quartile"`
}

var categoryBenchmarks = map[string]Benchmark{
	"web_development":    {AvgLOC: 0.72, TopQuartile: 0.85},
	"mobile_development": {AvgLOC: 0.68, TopQuartile: 0.82},
	"design_graphique":   {AvgLOC: 0.78, TopQuartile: 0.90},
	"marketing_digital":  {AvgLOC: 0.70, TopQuartile: 0.84},
	"construction":       {AvgLOC: 0.65, TopQuartile: 0.80},
	"services_personne":  {AvgLOC: 0.82, TopQuartile: 0.92},
}

// Keyword lists carry the original French market terms alongside the usual
// English imports; descriptions arrive in either.
var (
	urgentKeywords     = []string{"urgent", "rapide", "vite", "asap", "immédiat", "pressé"}
	flexibleKeywords   = []string{"flexible", "pas pressé", "quand possible"}
	potentialUrgentCue = []string{"urgent", "vite", "rapide"}
	delayUrgentCue     = []string{"urgent", "vite"}
)

// ProjectData is the client-stated side of a request. Zero values mean the
// field was not supplied.
type ProjectData struct {
	Budget      float64
	Category    string
	ClientID    string
	Description string
}

// StandardizationData carries the normalized-brief signals produced by the
// standardization pipeline, including the price/time suggestion.
type StandardizationData struct {
	BriefQualityScore  float64
	PriceSuggestedMin  float64
	PriceSuggestedMed  float64
	PriceSuggestedMax  float64
	DelaySuggestedDays int
	MissingInfo        []string
}

// MarketContext carries current market signals.
type MarketContext struct {
	HeatScore         float64
	PriceSuggestedMed float64
}

// Action types proposed by the uplift analysis.
const (
	ActionBudgetIncrease   = "budget_increase"
	ActionDelayExtension   = "delay_extension"
	ActionBriefEnhancement = "brief_enhancement"
)

// Action is one concrete parameter change with its expected score delta.
// Delta holds the action-specific magnitude: budget increase amount,
// extension days, or count of missing brief elements.
type Action struct {
	Type                   string  `json:"type"`
	CurrentValue           float64 `json:"current_value"`
	RecommendedValue       float64 `json:"recommended_value"`
	Delta                  float64 `json:"delta"`
	ExpectedLOCImprovement float64 `json:"expected_loc_improvement"`
	Confidence             float64 `json:"confidence"`
	Reason                 string  `json:"reason"`
}

// Uplift aggregates the proposed actions. PotentialFinalLOC sums all action
// improvements onto the base score (capped at 0.95) and is deliberately
// independent of the improvement-potential ceiling; the two can diverge and
// both are exposed.
type Uplift struct {
	CurrentLOC        float64  `json:"current_loc"`
	TargetLOC         float64  `json:"target_loc"`
	Actions           []Action `json:"actions"`
	PotentialFinalLOC float64  `json:"potential_final_loc"`
}

// Result is the full LOC assessment for one project.
type Result struct {
	LOCBase              float64            `json:"loc_base"`
	Components           map[string]float64 `json:"components"`
	Uplift               Uplift             `json:"loc_uplift_reco"`
	ImprovementPotential float64            `json:"improvement_potential"`
	Recommendations      []string           `json:"recommendations"`
	Benchmark            *Benchmark         `json:"category_benchmark,omitempty"`
}

// Calculator computes LOC scores. Stateless and safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a LOC calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate scores the project's likelihood of closing and derives the
// ranked uplift actions. Never fails: every missing input has a documented
// neutral fallback.
func (c *Calculator) Calculate(project ProjectData, std StandardizationData, market MarketContext) Result {
	components := c.assessComponents(project, std, market)

	base := scoring.WeightedSum(components, componentWeights)
	base = scoring.Round3(scoring.Clamp(base, 0.15, 0.95))

	potential := c.improvementPotential(base, project, std)
	uplift := c.buildUplift(base, project, std, potential)

	result := Result{
		LOCBase:              base,
		Components:           components,
		Uplift:               uplift,
		ImprovementPotential: potential,
		Recommendations:      c.recommendations(base, uplift, potential),
	}
	if b, ok := categoryBenchmarks[resolveDemandCategory(project.Category)]; ok {
		result.Benchmark = &b
	}
	return result
}

func (c *Calculator) assessComponents(project ProjectData, std StandardizationData, market MarketContext) map[string]float64 {
	return map[string]float64{
		"brief_quality":         scoring.Clamp01(std.BriefQualityScore),
		"price_competitiveness": assessPriceCompetitiveness(project.Budget, market.PriceSuggestedMed),
		"category_demand":       assessCategoryDemand(project.Category),
		"client_history":        assessClientHistory(project.ClientID),
		"market_conditions":     assessMarketConditions(market.HeatScore),
		"urgency":               assessUrgency(project.Description),
		"budget_realism":        assessBudgetRealism(project.Budget, std),
	}
}

// assessPriceCompetitiveness bands the stated budget against the suggested
// median. No budget reads as middling-to-weak attractiveness.
func assessPriceCompetitiveness(budget, suggestedMed float64) float64 {
	if budget == 0 {
		return 0.4
	}
	if suggestedMed <= 0 {
		return 0.6
	}
	ratio := budget / suggestedMed
	return scoring.BandValue(ratio, []scoring.Band{
		{Min: 1.2, Value: 0.9},
		{Min: 1.0, Value: 0.7},
		{Min: 0.8, Value: 0.5},
	}, 0.3)
}

func assessCategoryDemand(category string) float64 {
	if score, ok := demandScores[resolveDemandCategory(category)]; ok {
		return score
	}
	return defaultDemandScore
}

func resolveDemandCategory(category string) string {
	key := strings.ToLower(category)
	if mapped, ok := demandAliases[key]; ok {
		return mapped
	}
	return key
}

// assessClientHistory is a deterministic stand-in for a real historical
// performance signal: a stable rune-sum hash of the client identifier
// banded into four tiers. Placeholder, not a learned estimate.
func assessClientHistory(clientID string) float64 {
	if clientID == "" {
		return 0.5
	}
	sum := 0
	for _, r := range clientID {
		sum += int(r)
	}
	switch hash := sum % 100; {
	case hash > 80:
		return 0.9
	case hash > 60:
		return 0.7
	case hash > 40:
		return 0.6
	default:
		return 0.4
	}
}

func assessMarketConditions(heatScore float64) float64 {
	if heatScore <= 0 {
		return 0.5
	}
	return scoring.Clamp01(heatScore)
}

func assessUrgency(description string) float64 {
	desc := strings.ToLower(description)
	if containsAny(desc, urgentKeywords) {
		return 0.8 // urgent projects attract faster commitments
	}
	if containsAny(desc, flexibleKeywords) {
		return 0.6
	}
	return 0.7
}

func assessBudgetRealism(budget float64, std StandardizationData) float64 {
	if budget == 0 || std.PriceSuggestedMin == 0 {
		return 0.4
	}
	if budget >= std.PriceSuggestedMin && budget <= std.PriceSuggestedMax {
		return 0.9
	}
	if budget >= std.PriceSuggestedMin*0.8 {
		return 0.7
	}
	return 0.3
}

// improvementPotential estimates how much headroom the project has, capped
// by the distance to the 0.95 ceiling.
func (c *Calculator) improvementPotential(base float64, project ProjectData, std StandardizationData) float64 {
	maxPotential := 0.95 - base

	var total float64
	if std.PriceSuggestedMed > 0 && project.Budget < std.PriceSuggestedMed {
		gap := (std.PriceSuggestedMed - project.Budget) / std.PriceSuggestedMed
		total += math.Min(0.2, gap)
	}
	if !containsAny(strings.ToLower(project.Description), potentialUrgentCue) {
		total += 0.08 // headroom from extending the deadline
	}
	if std.BriefQualityScore < 0.8 {
		total += (0.8 - std.BriefQualityScore) * 0.5
	}

	return math.Min(maxPotential, total)
}

func (c *Calculator) buildUplift(base float64, project ProjectData, std StandardizationData, potential float64) Uplift {
	uplift := Uplift{
		CurrentLOC: base,
		TargetLOC:  math.Min(0.95, base+potential),
		Actions:    []Action{},
	}

	if std.PriceSuggestedMed > 0 && project.Budget < std.PriceSuggestedMed {
		uplift.Actions = append(uplift.Actions, Action{
			Type:                   ActionBudgetIncrease,
			CurrentValue:           project.Budget,
			RecommendedValue:       std.PriceSuggestedMed,
			Delta:                  std.PriceSuggestedMed - project.Budget,
			ExpectedLOCImprovement: budgetUplift(project.Budget, std.PriceSuggestedMed),
			Confidence:             0.85,
			Reason:                 "a more attractive budget draws qualified providers",
		})
	}

	if !containsAny(strings.ToLower(project.Description), delayUrgentCue) {
		currentDelay := std.DelaySuggestedDays
		if currentDelay <= 0 {
			currentDelay = 21
		}
		extended := int(float64(currentDelay) * 1.3)
		uplift.Actions = append(uplift.Actions, Action{
			Type:                   ActionDelayExtension,
			CurrentValue:           float64(currentDelay),
			RecommendedValue:       float64(extended),
			Delta:                  float64(extended - currentDelay),
			ExpectedLOCImprovement: improvementCoefficients["delay_extension"]["medium"],
			Confidence:             0.75,
			Reason:                 "a more flexible deadline attracts more applications",
		})
	}

	if std.BriefQualityScore < 0.8 || len(std.MissingInfo) > 0 {
		uplift.Actions = append(uplift.Actions, Action{
			Type:                   ActionBriefEnhancement,
			CurrentValue:           std.BriefQualityScore,
			RecommendedValue:       0.85,
			Delta:                  float64(len(std.MissingInfo)),
			ExpectedLOCImprovement: improvementCoefficients["brief_enhancement"]["details"],
			Confidence:             0.80,
			Reason:                 "a detailed brief reduces risk and attracts experts",
		})
	}

	var totalImprovement float64
	for _, a := range uplift.Actions {
		totalImprovement += a.ExpectedLOCImprovement
	}
	uplift.PotentialFinalLOC = math.Min(0.95, base+totalImprovement)

	return uplift
}

// budgetUplift bands the expected score gain by relative budget increase.
func budgetUplift(current, recommended float64) float64 {
	coeffs := improvementCoefficients["budget_increase"]
	if current == 0 {
		return coeffs["high"]
	}
	increaseRatio := (recommended - current) / current
	switch {
	case increaseRatio >= 0.5:
		return coeffs["high"]
	case increaseRatio >= 0.2:
		return coeffs["medium"]
	default:
		return coeffs["low"]
	}
}

func (c *Calculator) recommendations(base float64, uplift Uplift, potential float64) []string {
	recs := make([]string, 0, len(uplift.Actions)+2)

	switch {
	case base < 0.5:
		recs = append(recs, "low probability of closing - improvements strongly recommended")
	case base < 0.7:
		recs = append(recs, "medium probability of closing - optimizations available")
	default:
		recs = append(recs, "good probability of closing - fine-tuning recommended")
	}

	for _, action := range uplift.Actions {
		pct := int(action.ExpectedLOCImprovement * 100)
		switch action.Type {
		case ActionBudgetIncrease:
			recs = append(recs, fmt.Sprintf("increase the budget to %.0f€ (+%d%% closing probability)", action.RecommendedValue, pct))
		case ActionDelayExtension:
			recs = append(recs, fmt.Sprintf("extend the deadline to %.0f days (+%d%% closing probability)", action.RecommendedValue, pct))
		case ActionBriefEnhancement:
			recs = append(recs, fmt.Sprintf("enrich the brief with the missing details (+%d%% closing probability)", pct))
		}
	}

	if potential > 0.1 {
		recs = append(recs, fmt.Sprintf("total improvement potential: +%d%% closing probability", int(potential*100)))
	}

	return recs
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
