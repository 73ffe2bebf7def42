package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appelspro/brief-engine/internal/cache"
	"github.com/appelspro/brief-engine/internal/config"
	"github.com/appelspro/brief-engine/internal/database"
	"github.com/appelspro/brief-engine/internal/errors"
	"github.com/appelspro/brief-engine/internal/loc"
	"github.com/appelspro/brief-engine/internal/middleware"
	"github.com/appelspro/brief-engine/internal/monitoring"
	"github.com/appelspro/brief-engine/internal/pricing"
	"github.com/appelspro/brief-engine/internal/questioner"
	"github.com/appelspro/brief-engine/internal/ratelimit"
	"github.com/appelspro/brief-engine/internal/security"
	"github.com/appelspro/brief-engine/internal/types"
)

type server struct {
	config      *config.Config
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	cache       *cache.Cache
	limiter     *ratelimit.Limiter
	store       *pricing.Store
	suggester   *pricing.Suggester
	loc         *loc.Calculator
	questions   *questioner.Service
	history     *database.Repository
	security    *security.Middleware
	adminAuth   *security.AdminAuth
	compression *middleware.Compression
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"metrics":   s.metrics.GetStats(),
	})
}

func (s *server) handleStats(c *gin.Context) {
	response := gin.H{
		"metrics":     s.metrics.GetStats(),
		"cache":       s.cache.Stats(),
		"rate_limit":  s.limiter.GetStats(),
		"compression": s.compression.GetStats(),
		"timestamp":   time.Now().Format(time.RFC3339),
	}

	if stats, err := s.history.Stats(c.Request.Context()); err == nil {
		response["history"] = stats
		if recent, err := s.history.CountSince(c.Request.Context(), time.Now().UTC().Add(-24*time.Hour)); err == nil {
			response["history_last_24h"] = recent
		}
	}

	c.JSON(http.StatusOK, response)
}

func (s *server) handlePriceTime(c *gin.Context) {
	start := time.Now()

	var req types.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("invalid price-time request", err))
		return
	}

	result := s.suggester.Suggest(pricing.Input{
		Category:          req.Category,
		SubCategory:       req.SubCategory,
		EstimatedHours:    req.EstimatedHours,
		Complexity:        req.Complexity,
		Urgency:           req.Urgency,
		QualityLevel:      req.QualityLevel,
		Constraints:       req.Constraints,
		BriefQualityScore: types.BriefQualityOrDefault(req.BriefQualityScore),
		MarketHeat:        req.MarketHeat,
	})

	s.metrics.IncrementPriceSuggestion()
	s.logger.EstimateLogger("price_time", req.Category, result.Confidence, time.Since(start), false)

	rec := database.NewEstimateRecord(database.EstimatorPriceTime, req.Category)
	rec.SubCategory = req.SubCategory
	rec.PriceMin, rec.PriceMed, rec.PriceMax = result.PriceMin, result.PriceMed, result.PriceMax
	rec.DelayDays = result.DelayDays
	rec.Score = result.Confidence
	s.recordEstimate(c, rec)

	c.JSON(http.StatusOK, result)
}

func (s *server) handleLOC(c *gin.Context) {
	start := time.Now()

	var req types.LOCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("invalid loc request", err))
		return
	}

	description := s.security.SanitizeDescription(req.ProjectData.Description)
	if err := s.security.ValidateDescription(description); err != nil {
		c.Error(errors.NewValidationError("invalid project description", err))
		return
	}

	result := s.loc.Calculate(
		loc.ProjectData{
			Budget:      req.ProjectData.Budget,
			Category:    req.ProjectData.Category,
			ClientID:    req.ProjectData.ClientID,
			Description: description,
		},
		loc.StandardizationData{
			BriefQualityScore:  types.BriefQualityOrDefault(req.StandardizationData.BriefQualityScore),
			PriceSuggestedMin:  req.StandardizationData.PriceSuggestedMin,
			PriceSuggestedMed:  req.StandardizationData.PriceSuggestedMed,
			PriceSuggestedMax:  req.StandardizationData.PriceSuggestedMax,
			DelaySuggestedDays: req.StandardizationData.DelaySuggestedDays,
			MissingInfo:        req.StandardizationData.MissingInfo,
		},
		loc.MarketContext{
			HeatScore:         req.MarketContext.HeatScore,
			PriceSuggestedMed: req.MarketContext.PriceSuggestedMed,
		},
	)

	s.metrics.IncrementLOCAnalysis()
	s.logger.EstimateLogger("loc", req.ProjectData.Category, result.LOCBase, time.Since(start), false)

	rec := database.NewEstimateRecord(database.EstimatorLOC, req.ProjectData.Category)
	rec.Score = result.LOCBase
	s.recordEstimate(c, rec)

	c.JSON(http.StatusOK, result)
}

func (s *server) handleQuestions(c *gin.Context) {
	start := time.Now()

	var req types.QuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("invalid questions request", err))
		return
	}

	description := s.security.SanitizeDescription(req.Brief.Description)
	if err := s.security.ValidateDescription(description); err != nil {
		c.Error(errors.NewValidationError("invalid brief description", err))
		return
	}

	selection := s.questions.Select(questioner.Brief{
		Description:         description,
		EstimatedComplexity: req.Brief.Structured.EstimatedComplexity,
	}, req.Answers, req.MaxQuestions)

	s.metrics.IncrementQuestionRound()
	potential := float64(selection.CompletionGain.PotentialScore) / 100
	s.logger.EstimateLogger("questions", "", potential, time.Since(start), false)

	rec := database.NewEstimateRecord(database.EstimatorQuestions, "brief")
	rec.Score = potential
	s.recordEstimate(c, rec)

	c.JSON(http.StatusOK, selection)
}

func (s *server) handleMarketInsights(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.Error(errors.NewValidationError("category query parameter is required", nil))
		return
	}

	insights := s.suggester.Insights(category, c.Query("sub_category"))
	c.JSON(http.StatusOK, insights)
}

func (s *server) handleHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			c.Error(errors.NewValidationError("limit must be between 1 and 200", err))
			return
		}
		limit = parsed
	}

	records, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.Error(errors.NewStorageError("failed to read estimate history", err))
		return
	}
	if records == nil {
		records = []database.EstimateRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"estimates": records,
		"count":     len(records),
	})
}

func (s *server) handlePricingReload(c *gin.Context) {
	if err := s.store.Reload(); err != nil {
		c.Error(errors.NewDataError("pricing data reload failed", err))
		return
	}

	s.metrics.IncrementGridReload()
	s.cache.Clear()
	s.logger.SystemLogger("pricing_reload", "pricing grid reloaded, response cache cleared")

	c.JSON(http.StatusOK, gin.H{
		"status":   "reloaded",
		"profiles": s.store.Grid().Len(),
	})
}

// recordEstimate persists history best-effort: a storage failure never
// fails the request that produced the estimate.
func (s *server) recordEstimate(c *gin.Context, rec database.EstimateRecord) {
	if err := s.history.RecordEstimate(c.Request.Context(), rec); err != nil {
		s.metrics.IncrementHistoryFailure()
		s.logger.Warn("Failed to record estimate", "estimator", rec.Estimator, "error", err)
		return
	}
	s.metrics.IncrementHistoryWrite()
}
