package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrade/internal/handlers"
	"papertrade/internal/logger"
	"papertrade/internal/router"
	"papertrade/internal/services"
	"papertrade/internal/testutil"
	"papertrade/internal/validator"
)

const testPipelineKey = "test-pipeline-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Source    *testutil.FakeSource
	Generator *testutil.FakeGenerator
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates the production router over an isolated in-memory SQLite
// database, a fake price source and a fake text generator.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	source := testutil.NewFakeSource(map[string]string{
		"AAPL": "150",
		"MSFT": "300",
		"NVDA": "800",
	})
	generator := &testutil.FakeGenerator{Reply: "A plain explanation."}

	userService := services.NewUserService(db, decimal.NewFromInt(100000))
	stockService := services.NewStockService(db, source)
	tradeService := services.NewTradeService(db, stockService)
	portfolioService := services.NewPortfolioService(db, stockService)
	snapshotService := services.NewPortfolioSnapshotService(db)
	marketService := services.NewMarketService(db)
	explanationService := services.NewExplanationService(db, generator)
	auditService := services.NewAuditService(db)

	engine := router.New(router.Options{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		PipelineAPIKey:     testPipelineKey,
	}, router.Handlers{
		Auth:      handlers.NewAuthHandler(userService, auditService),
		Trade:     handlers.NewTradeHandler(tradeService, auditService),
		Portfolio: handlers.NewPortfolioHandler(portfolioService),
		Snapshot:  handlers.NewPortfolioSnapshotHandler(snapshotService, auditService),
		Stock:     handlers.NewStockHandler(stockService, auditService),
		Market:    handlers.NewMarketHandler(marketService),
		Explain:   handlers.NewExplanationHandler(explanationService),
	})

	return &testApp{DB: db, Router: engine, Source: source, Generator: generator}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipelineRequest makes a request authenticated with the pipeline key.
func (app *testApp) pipelineRequest(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testPipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// parseJSONArray parses the response body into a slice.
func parseJSONArray(t *testing.T, rec *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var result []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, username, email, password string) (accessToken, refreshToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// trade places a market order and returns the recorder.
func (app *testApp) trade(token, symbol, side string, quantity int) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"symbol":%q,"type":%q,"quantity":%d}`, symbol, side, quantity)
	return app.request("POST", "/api/v1/trades", body, token)
}

// mustTrade places a market order and fails the test unless it fills.
func (app *testApp) mustTrade(t *testing.T, token, symbol, side string, quantity int) map[string]interface{} {
	t.Helper()
	rec := app.trade(token, symbol, side, quantity)
	if rec.Code != http.StatusCreated {
		t.Fatalf("%s %d %s failed: %d %s", side, quantity, symbol, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}
