package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "papertrade/internal/errors"
	"papertrade/internal/middleware"
	"papertrade/internal/models"
	"papertrade/internal/services"
	"papertrade/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	createUserFn            func(username, email, password string) (*models.User, error)
	getUserByEmailFn        func(email string) (*models.User, error)
	getUserByIDFn           func(id uint) (*models.User, error)
	attemptLoginFn          func(email, password string) (*models.User, error)
	updateProfileFn         func(userID uint, update services.ProfileUpdate) (*models.User, error)
	storeRefreshTokenHashFn func(userID uint, tokenHash string) error
	getRefreshTokenHashFn   func(userID uint) (string, error)
}

var _ services.UserServicer = (*mockUserService)(nil)

func (m *mockUserService) CreateUser(username, email, password string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(username, email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{Base: models.Base{ID: id}}, nil
}

func (m *mockUserService) VerifyPassword(_ *models.User, _ string) bool {
	return true
}

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) UpdateProfile(userID uint, update services.ProfileUpdate) (*models.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(userID, update)
	}
	return &models.User{Base: models.Base{ID: userID}}, nil
}

func (m *mockUserService) StoreRefreshTokenHash(userID uint, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(userID uint) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

type auditEntry struct {
	UserID  uint
	Action  string
	Changes map[string]any
}

type mockAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
}

var _ services.AuditServicer = (*mockAuditService)(nil)

func (m *mockAuditService) Log(userID uint, action, _ string, _ uint, _ string, changes map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{UserID: userID, Action: action, Changes: changes})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/refresh", handler.Refresh)
	me := r.Group("/users/me", injectUserID(1))
	me.GET("", handler.GetProfile)
	me.PUT("", handler.UpdateProfile)
	return r
}

func injectUserID(uid uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func parseJSONArray(t *testing.T, rec *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var result []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func testUser(id uint) *models.User {
	return &models.User{
		Base:     models.Base{ID: id},
		Username: "trader",
		Email:    "trader@example.com",
		Balance:  decimal.NewFromInt(100000),
	}
}

// --- tests ---

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns_201_on_success", func(t *testing.T) {
		audit := &mockAuditService{}
		userSvc := &mockUserService{
			createUserFn: func(username, email, _ string) (*models.User, error) {
				u := testUser(1)
				u.Username = username
				u.Email = email
				return u, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, audit))

		rec := doRequest(r, "POST", "/auth/register",
			`{"username":"alice","email":"alice@example.com","password":"password123"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
		if result["refresh_token"] == nil || result["refresh_token"] == "" {
			t.Error("expected non-empty refresh_token")
		}
		user := result["user"].(map[string]interface{})
		if user["username"] != "alice" {
			t.Errorf("expected username alice, got %v", user["username"])
		}
		if user["balance"].(float64) != 100000 {
			t.Errorf("expected balance 100000, got %v", user["balance"])
		}
		if _, leaked := user["password"]; leaked {
			t.Error("password must not be serialized")
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditRegister {
			t.Errorf("expected one REGISTER audit entry, got %v", got)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing_username", `{"email":"a@example.com","password":"password123"}`},
		{"invalid_username", `{"username":"a b","email":"a@example.com","password":"password123"}`},
		{"missing_email", `{"username":"alice","password":"password123"}`},
		{"invalid_email", `{"username":"alice","email":"not-an-email","password":"password123"}`},
		{"short_password", `{"username":"alice","email":"a@example.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run("returns_400_on_"+tt.name, func(t *testing.T) {
			r := setupAuthRouter(NewAuthHandler(&mockUserService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/auth/register", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns_409_on_duplicate_email", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(_, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/register",
			`{"username":"alice","email":"dup@example.com","password":"password123"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})

	t.Run("stores_refresh_token_hash", func(t *testing.T) {
		var storedHash string
		userSvc := &mockUserService{
			createUserFn: func(_, _, _ string) (*models.User, error) {
				return testUser(42), nil
			},
			storeRefreshTokenHashFn: func(_ uint, hash string) error {
				storedHash = hash
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/register",
			`{"username":"alice","email":"alice@example.com","password":"password123"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		refresh := parseJSON(t, rec)["refresh_token"].(string)
		if storedHash != middleware.HashToken(refresh) {
			t.Error("expected stored hash to match the issued refresh token")
		}
	})

	t.Run("returns_500_when_hash_storage_fails", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(_, _, _ string) (*models.User, error) {
				return testUser(1), nil
			},
			storeRefreshTokenHashFn: func(_ uint, _ string) error {
				return apperrors.ErrInternalServer
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/register",
			`{"username":"alice","email":"alice@example.com","password":"password123"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns_200_on_success", func(t *testing.T) {
		audit := &mockAuditService{}
		userSvc := &mockUserService{
			attemptLoginFn: func(_, _ string) (*models.User, error) {
				return testUser(1), nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, audit))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"trader@example.com","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["access_token"] == "" {
			t.Error("expected access_token")
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditLogin {
			t.Errorf("expected LOGIN audit entry, got %v", got)
		}
	})

	t.Run("returns_401_on_invalid_credentials", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(_, _ string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"trader@example.com","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})

	t.Run("returns_423_when_locked", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(_, _ string) (*models.User, error) {
				return nil, apperrors.ErrAccountLocked
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"trader@example.com","password":"password123"}`)

		if rec.Code != http.StatusLocked {
			t.Fatalf("expected 423, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_LOCKED")
	})

	t.Run("returns_400_on_missing_password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"trader@example.com"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	// Simulates the stored hash column for user 1.
	newStore := func() *mockUserService {
		var mu sync.Mutex
		stored := ""
		return &mockUserService{
			storeRefreshTokenHashFn: func(_ uint, hash string) error {
				mu.Lock()
				defer mu.Unlock()
				stored = hash
				return nil
			},
			getRefreshTokenHashFn: func(_ uint) (string, error) {
				mu.Lock()
				defer mu.Unlock()
				return stored, nil
			},
			getUserByIDFn: func(id uint) (*models.User, error) {
				return testUser(id), nil
			},
		}
	}

	issue := func(t *testing.T, svc *mockUserService) string {
		t.Helper()
		token, err := middleware.GenerateRefreshToken(testUser(1))
		if err != nil {
			t.Fatalf("failed to sign refresh token: %v", err)
		}
		if err := svc.StoreRefreshTokenHash(1, middleware.HashToken(token)); err != nil {
			t.Fatalf("failed to store hash: %v", err)
		}
		return token
	}

	t.Run("rotates_tokens", func(t *testing.T) {
		svc := newStore()
		r := setupAuthRouter(NewAuthHandler(svc, &mockAuditService{}))
		token := issue(t, svc)

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+token+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		next := parseJSON(t, rec)["refresh_token"].(string)
		if next == token {
			t.Error("expected a new refresh token")
		}

		// The old token is now revoked.
		rec = doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+token+`"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected reused token to be rejected, got %d", rec.Code)
		}

		rec = doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+next+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected rotated token to work, got %d", rec.Code)
		}
	})

	t.Run("rejects_access_token", func(t *testing.T) {
		svc := newStore()
		r := setupAuthRouter(NewAuthHandler(svc, &mockAuditService{}))
		access, _ := middleware.GenerateAccessToken(testUser(1))
		_ = svc.StoreRefreshTokenHash(1, middleware.HashToken(access))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+access+`"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects_garbage", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newStore(), &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"not-a-jwt"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})

	t.Run("rejects_when_nothing_stored", func(t *testing.T) {
		svc := newStore()
		r := setupAuthRouter(NewAuthHandler(svc, &mockAuditService{}))
		token, _ := middleware.GenerateRefreshToken(testUser(1))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+token+`"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns_400_on_missing_token", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newStore(), &mockAuditService{}))

		rec := doRequest(r, "POST", "/auth/refresh", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("get_returns_profile", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return testUser(id), nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/users/me", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["id"].(float64) != 1 || result["username"] != "trader" {
			t.Errorf("unexpected profile %v", result)
		}
	})

	t.Run("get_returns_404_for_missing_user", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(_ uint) (*models.User, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/users/me", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("get_returns_401_without_auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{})
		r := gin.New()
		r.GET("/users/me", handler.GetProfile)

		rec := doRequest(r, "GET", "/users/me", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("update_passes_only_given_fields", func(t *testing.T) {
		var captured services.ProfileUpdate
		audit := &mockAuditService{}
		userSvc := &mockUserService{
			updateProfileFn: func(id uint, u services.ProfileUpdate) (*models.User, error) {
				captured = u
				user := testUser(id)
				user.Username = *u.Username
				return user, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, audit))

		rec := doRequest(r, "PUT", "/users/me", `{"username":"renamed"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Username == nil || *captured.Username != "renamed" {
			t.Errorf("expected username update, got %v", captured.Username)
		}
		if captured.Email != nil {
			t.Errorf("expected email untouched, got %v", *captured.Email)
		}
		if parseJSON(t, rec)["username"] != "renamed" {
			t.Error("expected updated username in response")
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditUpdateProfile {
			t.Errorf("expected UPDATE_PROFILE audit entry, got %v", got)
		}
	})

	t.Run("update_rejects_invalid_email", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/users/me", `{"email":"nope"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("update_returns_409_on_taken_username", func(t *testing.T) {
		userSvc := &mockUserService{
			updateProfileFn: func(_ uint, _ services.ProfileUpdate) (*models.User, error) {
				return nil, apperrors.ErrDuplicateUsername
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/users/me", `{"username":"taken"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_USERNAME")
	})
}
