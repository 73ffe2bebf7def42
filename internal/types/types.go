// Package types defines the wire-level request shapes shared by the HTTP
// handlers. Responses come straight from the estimator packages.
package types

// SuggestRequest is the body for POST /v1/price-time.
type SuggestRequest struct {
	Category          string   `json:"category" binding:"required"`
	SubCategory       string   `json:"sub_category"`
	EstimatedHours    int      `json:"estimated_hours"`
	Complexity        string   `json:"complexity"`
	Urgency           string   `json:"urgency"`
	QualityLevel      string   `json:"quality_level"`
	Constraints       []string `json:"constraints"`
	BriefQualityScore *float64 `json:"brief_quality_score"`
	MarketHeat        float64  `json:"market_heat"`
}

// LOCRequest is the body for POST /v1/loc.
type LOCRequest struct {
	ProjectData         LOCProjectData     `json:"project_data" binding:"required"`
	StandardizationData LOCStandardization `json:"standardization_data"`
	MarketContext       LOCMarketContext   `json:"market_context"`
}

// LOCProjectData carries the client-stated project fields.
type LOCProjectData struct {
	Budget      float64 `json:"budget"`
	Category    string  `json:"category"`
	ClientID    string  `json:"client_id"`
	Description string  `json:"description"`
}

// LOCStandardization carries the normalized-brief signals, including the
// price/time suggestion the LOC score compares against.
type LOCStandardization struct {
	BriefQualityScore  *float64 `json:"brief_quality_score"`
	PriceSuggestedMin  float64  `json:"price_suggested_min"`
	PriceSuggestedMed  float64  `json:"price_suggested_med"`
	PriceSuggestedMax  float64  `json:"price_suggested_max"`
	DelaySuggestedDays int      `json:"delay_suggested_days"`
	MissingInfo        []string `json:"missing_info"`
}

// LOCMarketContext carries current market signals.
type LOCMarketContext struct {
	HeatScore         float64 `json:"heat_score"`
	PriceSuggestedMed float64 `json:"price_suggested_med"`
}

// QuestionsRequest is the body for POST /v1/questions.
type QuestionsRequest struct {
	Brief        QuestionsBrief    `json:"brief" binding:"required"`
	Answers      map[string]string `json:"answers"`
	MaxQuestions int               `json:"max_questions"`
}

// QuestionsBrief carries the signals the questioner's contextual
// adjustments read.
type QuestionsBrief struct {
	Description string              `json:"description"`
	Structured  QuestionsStructured `json:"structured"`
}

// QuestionsStructured holds extracted brief attributes.
type QuestionsStructured struct {
	EstimatedComplexity float64 `json:"estimated_complexity"`
}

// BriefQualityOrDefault resolves an optional brief-quality score, defaulting
// to the neutral 0.5 when the field was omitted.
func BriefQualityOrDefault(score *float64) float64 {
	if score == nil {
		return 0.5
	}
	return *score
}
