package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appelspro/brief-engine/internal/cache"
	"github.com/appelspro/brief-engine/internal/config"
	"github.com/appelspro/brief-engine/internal/database"
	"github.com/appelspro/brief-engine/internal/loc"
	"github.com/appelspro/brief-engine/internal/middleware"
	"github.com/appelspro/brief-engine/internal/monitoring"
	"github.com/appelspro/brief-engine/internal/pricing"
	"github.com/appelspro/brief-engine/internal/questioner"
	"github.com/appelspro/brief-engine/internal/ratelimit"
	"github.com/appelspro/brief-engine/internal/security"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type serverOption func(*server)

func withStore(store *pricing.Store) serverOption {
	return func(s *server) {
		s.store = store
		s.suggester = pricing.NewSuggester(store)
	}
}

func withCompressionMinSize(minSize int) serverOption {
	return func(s *server) {
		s.compression = middleware.NewCompression(middleware.CompressionConfig{MinSize: minSize, Level: 6})
	}
}

func withAdminSecret(secret string) serverOption {
	return func(s *server) {
		s.adminAuth = security.NewAdminAuth(secret)
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *server {
	t.Helper()

	cfg := &config.Config{
		Port:                 8080,
		LogLevel:             "error",
		CacheTTL:             time.Minute,
		RateLimitPerMin:      10000,
		ReloadLimitPerMin:    100,
		AllowedOrigins:       []string{"http://localhost:3000"},
		RequestTimeout:       5 * time.Second,
		MaxDescriptionLength: 5000,
	}

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := monitoring.NewMetrics()
	redisClient := ratelimit.NewRedisClient("", "", 0)
	appCache := cache.NewCache(cfg.CacheTTL)
	t.Cleanup(func() { appCache.Close() })

	store := pricing.NewStoreWithGrid(pricing.DefaultGrid())

	srv := &server{
		config:      cfg,
		logger:      monitoring.NewLogger(parseLogLevel(cfg.LogLevel)),
		metrics:     metrics,
		cache:       appCache,
		limiter:     ratelimit.NewLimiter(redisClient, ratelimit.Config{IPLimitPerMin: cfg.RateLimitPerMin, BurstMultiplier: 2}, metrics),
		store:       store,
		suggester:   pricing.NewSuggester(store),
		loc:         loc.NewCalculator(),
		questions:   questioner.NewService(),
		history:     database.NewRepository(db),
		security:    security.NewMiddleware(securityConfig(cfg)),
		adminAuth:   security.NewAdminAuth(""),
		compression: middleware.NewCompression(middleware.DefaultCompressionConfig()),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := getPath(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])
	assert.Contains(t, body, "metrics")
}

func TestPriceTimeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.setupRouter()

	w := postJSON(router, "/v1/price-time", map[string]interface{}{
		"category":     "développement",
		"sub_category": "web",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1000, body["price_suggested_min"])
	assert.EqualValues(t, 1600, body["price_suggested_med"])
	assert.EqualValues(t, 3000, body["price_suggested_max"])
	assert.EqualValues(t, 8, body["delay_suggested_days"])
	assert.InDelta(t, 0.7, body["confidence"], 1e-9)

	// The run is persisted to history.
	h := getPath(router, "/v1/history")
	require.Equal(t, http.StatusOK, h.Code)
	var history map[string]interface{}
	require.NoError(t, json.Unmarshal(h.Body.Bytes(), &history))
	assert.EqualValues(t, 1, history["count"])
}

func TestPriceTimeRequiresCategory(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := postJSON(router, "/v1/price-time", map[string]interface{}{
		"estimated_hours": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceTimeRejectsNonJSONBody(t *testing.T) {
	router := newTestServer(t).setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/price-time", bytes.NewReader([]byte("category=web")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestLOCEndpoint(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := postJSON(router, "/v1/loc", map[string]interface{}{
		"project_data": map[string]interface{}{
			"budget":      2500,
			"category":    "développement",
			"client_id":   "abc",
			"description": "refonte complète du site vitrine",
		},
		"standardization_data": map[string]interface{}{
			"brief_quality_score": 0.8,
			"price_suggested_min": 1500,
			"price_suggested_med": 2000,
			"price_suggested_max": 3200,
		},
		"market_context": map[string]interface{}{
			"heat_score": 0.7,
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	score, ok := body["loc_base"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, score, 0.15)
	assert.LessOrEqual(t, score, 0.95)
	assert.Contains(t, body, "loc_uplift_reco")
	assert.Contains(t, body, "recommendations")
}

func TestLOCRejectsSuspiciousDescription(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := postJSON(router, "/v1/loc", map[string]interface{}{
		"project_data": map[string]interface{}{
			"budget":      1000,
			"category":    "web",
			"description": "nettoyage de base; drop table users",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionsEndpoint(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := postJSON(router, "/v1/questions", map[string]interface{}{
		"brief": map[string]interface{}{
			"description": "création d'une application de gestion",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Questions []struct {
			Text     string `json:"text"`
			Category string `json:"category"`
		} `json:"questions"`
		CompletionGain struct {
			CurrentScore   int `json:"current_score"`
			PotentialScore int `json:"potential_score"`
		} `json:"completion_gain"`
		TotalQuestions int `json:"total_questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Questions, 5)
	assert.Equal(t, "budget", body.Questions[0].Category)
	assert.Equal(t, 5, body.TotalQuestions)
	assert.Equal(t, 60, body.CompletionGain.CurrentScore)
	assert.Greater(t, body.CompletionGain.PotentialScore, 60)
}

func TestQuestionsResponseIsCached(t *testing.T) {
	srv := newTestServer(t)
	router := srv.setupRouter()

	payload := map[string]interface{}{
		"brief": map[string]interface{}{"description": "site e-commerce"},
	}

	first := postJSON(router, "/v1/questions", payload)
	require.Equal(t, http.StatusOK, first.Code)
	second := postJSON(router, "/v1/questions", payload)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, srv.metrics.CacheHits)
	assert.EqualValues(t, 1, srv.metrics.QuestionRounds)
}

func TestMarketInsightsEndpoint(t *testing.T) {
	router := newTestServer(t).setupRouter()

	missing := getPath(router, "/v1/market-insights")
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	w := getPath(router, "/v1/market-insights?category=design&sub_category=ui_ux")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "design", body["category"])
	assert.Equal(t, "25-80€/h", body["hourly_range"])
}

func TestHistoryLimitValidation(t *testing.T) {
	router := newTestServer(t).setupRouter()

	assert.Equal(t, http.StatusBadRequest, getPath(router, "/v1/history?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, getPath(router, "/v1/history?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, getPath(router, "/v1/history?limit=500").Code)
	assert.Equal(t, http.StatusOK, getPath(router, "/v1/history?limit=50").Code)
}

func TestPricingReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price_terms.csv")
	csv := "category,sub_category,hourly_min,hourly_med,hourly_max\n" +
		"développement,web,30,50,90\n" +
		"design,logo,20,35,60\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	srv := newTestServer(t, withStore(pricing.NewStore(path)))
	router := srv.setupRouter()

	w := postJSON(router, "/v1/pricing/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "reloaded", body["status"])
	assert.EqualValues(t, 2, body["profiles"])
	assert.EqualValues(t, 1, srv.metrics.GridReloads)
}

func TestPricingReloadKeepsGridOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price_terms.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"category,sub_category,hourly_min\ndesign,logo,20\n"), 0644))

	srv := newTestServer(t, withStore(pricing.NewStore(path)))
	router := srv.setupRouter()

	// Corrupt the file, then attempt a reload.
	require.NoError(t, os.WriteFile(path, []byte(
		"category,sub_category,hourly_min\ndesign,logo,not-a-number\n"), 0644))

	w := postJSON(router, "/v1/pricing/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// The previously loaded grid stays active.
	assert.Equal(t, 1, srv.store.Grid().Len())
	assert.EqualValues(t, 0, srv.metrics.GridReloads)
}

func TestPricingReloadRequiresAdminToken(t *testing.T) {
	auth := security.NewAdminAuth("test-secret")
	srv := newTestServer(t, withAdminSecret("test-secret"))
	router := srv.setupRouter()

	w := postJSON(router, "/v1/pricing/reload", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/reload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authorized := httptest.NewRecorder()
	router.ServeHTTP(authorized, req)

	// Token accepted; the reload itself fails because no pricing file is
	// configured in the test fixture.
	assert.Equal(t, http.StatusUnprocessableEntity, authorized.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestServer(t).setupRouter()

	postJSON(router, "/v1/price-time", map[string]interface{}{"category": "design"})

	w := getPath(router, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "cache")
	assert.Contains(t, body, "rate_limit")
	assert.Contains(t, body, "history")

	metrics := body["metrics"].(map[string]interface{})
	assert.EqualValues(t, 1, metrics["price_suggestions"])
}

func TestRequestIDPropagation(t *testing.T) {
	router := newTestServer(t).setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "test-id-123", w.Header().Get("X-Request-ID"))
}

func TestLargeResponsesAreCompressed(t *testing.T) {
	router := newTestServer(t, withCompressionMinSize(1)).setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	// Clients that do not accept gzip get plain JSON.
	plain := getPath(router, "/stats")
	require.Equal(t, http.StatusOK, plain.Code)
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
}

func TestSecurityHeaders(t *testing.T) {
	router := newTestServer(t).setupRouter()

	w := getPath(router, "/health")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}
