package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxisfinder/therapy-platform/internal/intake"
	"github.com/praxisfinder/therapy-platform/internal/matching"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

const testAdminSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	therapistRepo := therapists.NewInMemoryRepository()
	patientRepo := patients.NewInMemoryRepository()
	store := matching.NewInMemoryStore()

	matcher := matching.NewOrchestrator(therapistRepo, therapistRepo, store, logger)
	intakeSvc := intake.NewService(patientRepo, therapistRepo, matcher, logger)

	cfg := &Config{
		Logger:            logger,
		TherapistsHandler: therapists.NewHandler(therapistRepo, logger),
		PatientsHandler:   patients.NewHandler(patientRepo, logger),
		IntakeHandler:     intake.NewHandler(intakeSvc, logger),
		MatchHandler:      matching.NewHandler(store, therapistRepo, patientRepo, logger),
		AdminAuthSecret:   testAdminSecret,
	}
	return New(cfg)
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return token
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterPublicDirectory(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/therapists", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterIntakeEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"name":"Mara","email":"mara@example.com","city":"Berlin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/therapists"},
		{http.MethodPost, "/admin/therapists"},
		{http.MethodGet, "/admin/patients"},
		{http.MethodPatch, "/admin/matches/m1/status"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", p.method, p.path)
	}
}

func TestRouterAdminWithToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/therapists", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterAdminRejectsBadToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/therapists", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterIntakeRateLimit(t *testing.T) {
	logger := logging.Default()
	patientRepo := patients.NewInMemoryRepository()
	intakeSvc := intake.NewService(patientRepo, nil, nil, logger)

	cfg := &Config{
		Logger:          logger,
		IntakeHandler:   intake.NewHandler(intakeSvc, logger),
		IntakeRateLimit: 0.001,
		IntakeRateBurst: 1,
	}
	router := New(cfg)

	body := `{"name":"Mara","email":"mara@example.com"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/intake", strings.NewReader(body))
	first.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	require.Equal(t, http.StatusCreated, rr.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/intake", strings.NewReader(body))
	second.RemoteAddr = "10.0.0.1:1234"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, second)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRouterMatchNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/unknown-token", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
