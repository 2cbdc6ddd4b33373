package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/controllers"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/routes"
	"github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/middleware"
	"github.com/yigit/vaxportal/internal/pkg/auth"
	"github.com/yigit/vaxportal/internal/pkg/validation"
	"github.com/yigit/vaxportal/internal/testutil/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
}

var apiNow = time.Date(2026, 6, 10, 9, 30, 0, 0, time.UTC)

type api struct {
	router *gin.Engine
	store  *memstore.Store
	token  string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPI(t *testing.T, loginPerMinute int) *api {
	t.Helper()

	store := memstore.New()
	logger := zerolog.Nop()
	calendar := services.Calendar{Clock: func() time.Time { return apiNow }, Location: time.UTC}
	rules := services.DriveRules{}
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "routes-secret", AccessTokenExp: time.Hour, TokenIssuer: "vaxportal"})

	authService := services.NewAuthService(store, store.Users(), store.Activity(), nil, jwtService, logger)
	ctrl := routes.Controllers{
		Auth: controllers.NewAuthController(authService, logger),
		Student: controllers.NewStudentController(services.NewStudentService(store, store.Students(), store.Records(),
			store.Activity(), nil, calendar, logger)),
		Drive: controllers.NewDriveController(services.NewDriveService(store, store.Drives(), store.Records(),
			store.Activity(), nil, calendar, rules, logger)),
		Record: controllers.NewRecordController(services.NewRecordService(store, store.Students(), store.Drives(),
			store.Records(), store.Activity(), nil, calendar, logger)),
		Dashboard: controllers.NewDashboardController(services.NewDashboardService(store.Reports(), store.Drives(),
			store.Activity(), calendar, rules)),
		Report: controllers.NewReportController(services.NewReportService(store.Reports()), calendar.Now),
	}

	router := gin.New()
	limiter := middleware.NewIPRateLimiter(loginPerMinute, loginPerMinute)
	routes.SetupRouter(router, ctrl, middleware.NewAuthMiddleware(jwtService), limiter.Middleware(), nil)

	_, err := authService.EnsureUser(context.Background(), "admin", "admin-pass", "School Administrator", models.RoleAdmin)
	require.NoError(t, err)
	_, err = authService.EnsureUser(context.Background(), "nurse", "nurse-pass", "School Nurse", models.RoleCoordinator)
	require.NoError(t, err)

	a := &api{router: router, store: store}
	a.token = a.login(t, "admin", "admin-pass")
	return a
}

func (a *api) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (a *api) login(t *testing.T, username, password string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	return data.Token
}

func (a *api) createID(t *testing.T, path string, body any) int64 {
	t.Helper()
	w := a.do(t, http.MethodPost, path, a.token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	return data.ID
}

func dateIn(days int) string {
	return apiNow.AddDate(0, 0, days).Format(time.DateOnly)
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t, 100)

	w := a.do(t, http.MethodGet, "/api/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_008", decode(t, w).Error.Code)

	w = a.do(t, http.MethodGet, "/api/v1/students", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_005", decode(t, w).Error.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", decode(t, w).Error.Code)

	w = a.do(t, http.MethodGet, "/api/v1/auth/me", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"username":"admin"`)
}

func TestRegister_AdminOnly(t *testing.T) {
	a := newAPI(t, 100)
	nurse := a.login(t, "nurse", "nurse-pass")
	body := map[string]string{"username": "clerk", "password": "clerk-pass", "name": "Front Desk"}

	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", nurse, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", a.token, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", a.token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RES_002", decode(t, w).Error.Code)
}

func TestLoginRateLimited(t *testing.T) {
	a := newAPI(t, 1)

	// the single burst token was spent by newAPI's own login
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "admin-pass"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDriveLifecycle(t *testing.T) {
	a := newAPI(t, 100)

	w := a.do(t, http.MethodPost, "/api/v1/vaccination-drives", a.token, map[string]any{
		"vaccineName": "MMR", "driveDate": dateIn(14), "applicableGrades": "5", "availableDoses": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decode(t, w).Error.Code)

	w = a.do(t, http.MethodPost, "/api/v1/vaccination-drives", a.token, map[string]any{
		"vaccineName": "MMR", "driveDate": "20-06-2026", "applicableGrades": "5", "availableDoses": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	driveID := a.createID(t, "/api/v1/vaccination-drives", map[string]any{
		"vaccineName": "MMR", "driveDate": dateIn(15), "applicableGrades": "5,6", "availableDoses": 10,
	})

	w = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/vaccination-drives/%d", driveID), a.token, map[string]any{
		"availableDoses": 20, "notes": "Bring consent forms",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decode(t, w).Data), `"availableDoses":20`)

	w = a.do(t, http.MethodGet, "/api/v1/vaccination-drives/abc", a.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/vaccination-drives/999", a.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RES_001", decode(t, w).Error.Code)

	w = a.do(t, http.MethodGet, "/api/v1/vaccination-drives?status=scheduled", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"total":1`)

	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/vaccination-drives/%d", driveID), a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Vaccination drive deleted successfully")
}

func TestVaccinationRecords(t *testing.T) {
	a := newAPI(t, 100)

	first := a.createID(t, "/api/v1/students", map[string]any{"firstName": "Asha", "lastName": "Rao", "grade": "5"})
	second := a.createID(t, "/api/v1/students", map[string]any{"firstName": "Ravi", "lastName": "Das", "grade": "5"})
	driveID := a.createID(t, "/api/v1/vaccination-drives", map[string]any{
		"vaccineName": "Polio", "driveDate": dateIn(20), "applicableGrades": "5", "availableDoses": 1,
	})

	recordID := a.createID(t, "/api/v1/vaccination-records", map[string]any{"studentId": first, "driveId": driveID})

	w := a.do(t, http.MethodPost, "/api/v1/vaccination-records", a.token, map[string]any{"studentId": first, "driveId": driveID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RES_002", decode(t, w).Error.Code)

	w = a.do(t, http.MethodPost, "/api/v1/vaccination-records", a.token, map[string]any{"studentId": second, "driveId": driveID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RES_005", decode(t, w).Error.Code)

	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/vaccination-drives/%d", driveID), a.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RES_004", decode(t, w).Error.Code)

	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/students/%d", first), a.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/vaccination-records?driveId=%d", driveID), a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), fmt.Sprintf(`"id":%d`, recordID))

	w = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/vaccination-records/%d", recordID), a.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	a.createID(t, "/api/v1/vaccination-records", map[string]any{"studentId": second, "driveId": driveID})

	drive, ok := a.store.Drive(driveID)
	require.True(t, ok)
	assert.Equal(t, 1, drive.UsedDoses)
}

func TestValidationEnvelope(t *testing.T) {
	a := newAPI(t, 100)

	w := a.do(t, http.MethodPost, "/api/v1/students", a.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "VAL_001", env.Error.Code)

	w = a.do(t, http.MethodPost, "/api/v1/students", a.token, map[string]any{"firstName": "", "lastName": "Rao", "grade": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardAndReport(t *testing.T) {
	a := newAPI(t, 100)

	student := a.createID(t, "/api/v1/students", map[string]any{"studentId": "ST-1", "firstName": "Asha", "lastName": "Rao", "grade": "5"})
	a.createID(t, "/api/v1/students", map[string]any{"studentId": "ST-2", "firstName": "Ravi", "lastName": "Das", "grade": "6"})
	driveID := a.createID(t, "/api/v1/vaccination-drives", map[string]any{
		"vaccineName": "MMR", "driveDate": dateIn(20), "applicableGrades": "5,6", "availableDoses": 5,
	})
	a.createID(t, "/api/v1/vaccination-records", map[string]any{"studentId": student, "driveId": driveID})

	w := a.do(t, http.MethodGet, "/api/v1/dashboard/stats", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalStudents  int64 `json:"totalStudents"`
		Vaccinated     int64 `json:"vaccinated"`
		UpcomingDrives int64 `json:"upcomingDrives"`
		Pending        int64 `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.EqualValues(t, 2, stats.TotalStudents)
	assert.EqualValues(t, 1, stats.Vaccinated)
	assert.EqualValues(t, 1, stats.UpcomingDrives)
	assert.EqualValues(t, 1, stats.Pending)

	w = a.do(t, http.MethodGet, "/api/v1/dashboard/activity-logs?limit=2", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "CREATE_VACCINATION_RECORD")

	w = a.do(t, http.MethodGet, "/api/v1/reports/vaccinations?status=vaccinated", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"total":1`)

	w = a.do(t, http.MethodGet, "/api/v1/reports/vaccinations?format=csv&limit=1", a.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="vaccination-report-2026-06-10.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Student ID,Name,Grade,Vaccination Status")
	assert.Contains(t, lines[1], "ST-1,Asha Rao,5,Vaccinated")
}
