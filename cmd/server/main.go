// Command server runs the brief-engine HTTP service: price/time
// suggestion, likelihood-of-closing scoring, and adaptive questioning for
// freelance project briefs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

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
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Getenv("BRIEF_ENGINE_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(parseLogLevel(cfg.LogLevel))
	slog.SetDefault(appLogger.Logger)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to open estimate history database", "error", err)
		os.Exit(1)
	}
	defer errors.SafeClose(db, "history database")

	appMetrics := monitoring.NewMetrics()

	redisClient := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer errors.SafeClose(redisClient, "redis client")

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:   cfg.RateLimitPerMin,
		BurstMultiplier: 2,
	}, appMetrics)

	appCache := cache.NewCache(cfg.CacheTTL)
	defer errors.SafeClose(appCache, "response cache")

	store := pricing.NewStore(cfg.PricingDataPath)

	srv := &server{
		config:      cfg,
		logger:      appLogger,
		metrics:     appMetrics,
		cache:       appCache,
		limiter:     limiter,
		store:       store,
		suggester:   pricing.NewSuggester(store),
		loc:         loc.NewCalculator(),
		questions:   questioner.NewService(),
		history:     database.NewRepository(db),
		security:    security.NewMiddleware(securityConfig(cfg)),
		adminAuth:   security.NewAdminAuth(cfg.AdminJWTSecret),
		compression: middleware.NewCompression(middleware.DefaultCompressionConfig()),
	}

	router := srv.setupRouter()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.SystemLogger("startup", fmt.Sprintf("listening on :%d", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.SystemLogger("shutdown", "signal received, draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}

func securityConfig(cfg *config.Config) security.Config {
	sec := security.DefaultConfig()
	sec.MaxDescriptionLength = cfg.MaxDescriptionLength
	sec.MaxRequestsPerMin = cfg.RateLimitPerMin
	sec.AllowedOrigins = cfg.AllowedOrigins
	sec.RequestTimeout = cfg.RequestTimeout
	return sec
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(monitoring.RequestIDMiddleware())
	router.Use(monitoring.Middleware(s.metrics, s.logger))
	router.Use(errors.RecoveryHandler())
	router.Use(errors.ErrorHandler())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(s.compression.Handler())
	router.Use(s.security.SecurityHeaders)
	router.Use(s.security.RequestTimeout)
	router.Use(s.security.ValidateContentType)
	router.Use(s.limiter.IPMiddleware())

	router.Use(s.cache.Middleware(s.metrics, "/v1/price-time", "/v1/loc", "/v1/questions"))

	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)

	v1 := router.Group("/v1")
	{
		v1.POST("/price-time", s.handlePriceTime)
		v1.POST("/loc", s.handleLOC)
		v1.POST("/questions", s.handleQuestions)
		v1.GET("/market-insights", s.handleMarketInsights)
		v1.GET("/history", s.handleHistory)
		v1.POST("/pricing/reload",
			s.adminAuth.Middleware(),
			s.limiter.EndpointMiddleware("pricing_reload", s.config.ReloadLimitPerMin),
			s.handlePricingReload,
		)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
