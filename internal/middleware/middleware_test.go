package middleware_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/middleware"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/auth"
	"github.com/yigit/vaxportal/internal/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "vaxportal"})
}

func token(t *testing.T, svc *auth.JWTService, role models.Role) string {
	t.Helper()
	tok, _, err := svc.GenerateToken(&models.User{ID: 7, Username: "nurse", Role: role})
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func authRouter(svc *auth.JWTService) *gin.Engine {
	m := middleware.NewAuthMiddleware(svc)
	r := gin.New()
	r.GET("/me", m.JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.Actor(c))
	})
	r.POST("/admin", m.JWTAuth(), m.RoleRequired(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	svc := newJWT()
	r := authRouter(svc)
	tok := token(t, svc, models.RoleCoordinator)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   dto.ErrorCode
	}{
		{"missing", "", "", http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"bearer", "Bearer " + tok, "", http.StatusOK, ""},
		{"bare token", tok, "", http.StatusOK, ""},
		{"query token", "", tok, http.StatusOK, ""},
		{"garbage", "Bearer not.a.jwt", "", http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"bad format", "Token a b", "", http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				var actor models.Actor
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actor))
				assert.Equal(t, models.Actor{UserID: 7, Username: "nurse", Role: models.RoleCoordinator}, actor)
				return
			}
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestRoleRequired(t *testing.T) {
	svc := newJWT()
	r := authRouter(svc)

	for role, status := range map[models.Role]int{
		models.RoleAdmin:       http.StatusNoContent,
		models.RoleCoordinator: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, svc, role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, role)
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.NewDriveTooSoonError(15), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{apperrors.ErrDriveNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrAlreadyVaccinated, http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.ErrNoDosesAvailable, http.StatusBadRequest, dto.ErrorCodeCapacityExceeded},
		{apperrors.ErrDriveImmutable, http.StatusBadRequest, dto.ErrorCodeImmutableState},
		{apperrors.ErrDriveHasRecords, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.ErrInvalidLoginPair, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{apperrors.NewForbiddenError("no"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, dto.ErrorCodeTooManyRequests},
		{errors.New("connection refused"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			middleware.HandleAPIError(c, fmt.Errorf("wrapped: %w", tt.err))

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandleAPIError_UsesDomainMessageAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", nil)

	middleware.HandleAPIError(c, apperrors.NewValidationError("Available doses cannot be less than used doses (3)").
		WithDetails(map[string]interface{}{"usedDoses": 3}))

	resp := decodeError(t, w)
	assert.Equal(t, "Available doses cannot be less than used doses (3)", resp.Error.Message)
	assert.Equal(t, map[string]interface{}{"usedDoses": float64(3)}, resp.Error.Details)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.HandleAPIError(c, errors.New("pq: secret table name"))
	assert.NotContains(t, w.Body.String(), "secret table")
}

func TestBindJSON(t *testing.T) {
	r := gin.New()
	r.POST("/drives", func(c *gin.Context) {
		var req dto.CreateDriveRequest
		if !middleware.BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusCreated)
	})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"vaccineName":"MMR","driveDate":"2026-11-20","applicableGrades":"5,6","availableDoses":10}`, http.StatusCreated, ""},
		{"unknown field", `{"vaccineName":"MMR","driveDate":"2026-11-20","applicableGrades":"5","availableDoses":10,"usedDoses":3}`, http.StatusBadRequest, ""},
		{"missing doses", `{"vaccineName":"MMR","driveDate":"2026-11-20","applicableGrades":"5"}`, http.StatusBadRequest, "availableDoses"},
		{"bad date", `{"vaccineName":"MMR","driveDate":"20/11/2026","applicableGrades":"5","availableDoses":1}`, http.StatusBadRequest, "driveDate"},
		{"empty body", ``, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/drives", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusBadRequest {
				resp := decodeError(t, w)
				assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
				if tt.field != "" {
					assert.Equal(t, tt.field, resp.Error.Field)
				}
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(1, 2)
	r := gin.New()
	r.POST("/login", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	assert.True(t, limiter.Allow("10.0.0.2"), "limits are per IP")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
