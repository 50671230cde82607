package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/bharatalert-backend/internal/config"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers"
	"github.com/ignatzorin/bharatalert-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/bharatalert-backend/internal/metrics"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
	"github.com/ignatzorin/bharatalert-backend/internal/storage"
)

type testServer struct {
	engine *gin.Engine
	store  *persistence.MemoryStore
	tokens *service.TokenManager

	adminID, userID, otherID          uuid.UUID
	adminToken, userToken, otherToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:              "development",
		AllowedOrigins:   []string{"http://localhost:3000"},
		MediaStoragePath: t.TempDir(),
		RateLimitLimit:   1000,
		RateLimitPeriod:  time.Minute,
		AuthRateLimit:    1000,
	}

	store := persistence.NewMemoryStore()
	tokens := service.NewTokenManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	photos, err := storage.NewPhotoStorage(cfg.MediaStoragePath, 1)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	opts := service.Options{SightingQuota: 2, Metrics: metrics.New(registry)}
	reports := service.NewReportService(store, opts)
	sightings := service.NewSightingService(store, opts)
	users := service.NewUserService(store, opts)

	h := Handlers{
		Auth:      handlers.NewAuthHandler(service.NewAuthService(store, tokens, time.Second)),
		Reports:   handlers.NewReportHandler(reports, sightings, photos),
		Sightings: handlers.NewSightingHandler(sightings, users),
		Users:     handlers.NewAdminUserHandler(users),
		Media:     handlers.NewMediaHandler(photos),
		Health:    handlers.NewHealthHandler(store, config.StoreDriverMemory),
		Seed:      handlers.NewSeedHandler(service.NewSeedService(store)),
	}

	ts := &testServer{
		engine: SetupRouter(cfg, h, tokens, memory.NewStore(), promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		store:  store,
		tokens: tokens,
	}
	ts.adminID, ts.adminToken = ts.addUser(t, "admin@example.com", valueobject.RoleAdmin, 0)
	ts.userID, ts.userToken = ts.addUser(t, "rajesh@example.com", valueobject.RoleUser, 0)
	ts.otherID, ts.otherToken = ts.addUser(t, "priya@example.com", valueobject.RoleUser, 0)
	return ts
}

func (ts *testServer) addUser(t *testing.T, email string, role valueobject.Role, sightings int) (uuid.UUID, string) {
	t.Helper()
	u := &entity.User{
		ID:             uuid.New(),
		Name:           "Test User",
		Email:          email,
		Role:           role,
		SightingsCount: sightings,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), u))
	pair, _, _, err := ts.tokens.GeneratePair(u)
	require.NoError(t, err)
	return u.ID, pair.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type reportWithSightings struct {
	ID        uuid.UUID         `json:"id"`
	Sightings []entity.Sighting `json:"sightings"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func reportBody() gin.H {
	return gin.H{
		"child_name":   "Arjun Sharma",
		"age":          8,
		"description":  "Синяя футболка, чёрные шорты",
		"contact_info": "+91-9876543210",
		"last_seen_location": gin.H{
			"lat": 28.6139, "lng": 77.2090, "address": "Connaught Place, New Delhi",
		},
		"last_seen_at": time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func sightingBody() gin.H {
	return gin.H{
		"location":    gin.H{"lat": 28.6328, "lng": 77.2197, "address": "Karol Bagh Market"},
		"description": "Видели у продуктового магазина",
		"observed_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReportAndSightingFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/reports", ts.userToken, reportBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode[entity.Report](t, w)
	assert.Equal(t, valueobject.ReportStatusPending, report.Status)

	// Очередь модерации закрыта для всех, кроме модератора.
	w = ts.do(t, http.MethodGet, "/api/admin/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, http.MethodGet, "/api/admin/reports", ts.userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/reports", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Report](t, w), 1)

	w = ts.do(t, http.MethodGet, "/api/reports", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]entity.Report](t, w))

	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "чужая заявка на модерации не видна")
	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String()+"/sightings", ts.otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "и её наблюдения тоже")
	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String()+"/sightings", ts.userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/admin/reports/"+report.ID.String()+"/approve", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, valueobject.ReportStatusActive, decode[entity.Report](t, w).Status)

	w = ts.do(t, http.MethodGet, "/api/reports", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Report](t, w), 1)

	w = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/sightings", ts.otherToken, sightingBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sighting := decode[entity.Sighting](t, w)
	assert.Equal(t, valueobject.SightingStatusPending, sighting.Status)

	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String()+"/sightings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]entity.Sighting](t, w), "неподтверждённые наблюдения не публикуются")

	w = ts.do(t, http.MethodPost, "/api/admin/sightings/"+sighting.ID.String()+"/approve", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode[reportWithSightings](t, w)
	assert.Equal(t, report.ID, full.ID)
	assert.Len(t, full.Sightings, 1)

	w = ts.do(t, http.MethodGet, "/api/sightings/can-submit", ts.otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var can struct {
		CanSubmit      bool `json:"can_submit"`
		SightingsCount int  `json:"sightings_count"`
		Quota          int  `json:"quota"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &can))
	assert.True(t, can.CanSubmit)
	assert.Equal(t, 1, can.SightingsCount)
	assert.Equal(t, 2, can.Quota)

	w = ts.do(t, http.MethodPost, "/api/admin/reports/"+report.ID.String()+"/solve", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/sightings", ts.otherToken, sightingBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorBody](t, w).Code)
}

func TestRouter_QuotaExceeded(t *testing.T) {
	ts := newTestServer(t)
	_, fullToken := ts.addUser(t, "full@example.com", valueobject.RoleUser, 2)

	w := ts.do(t, http.MethodPost, "/api/reports", ts.userToken, reportBody())
	require.Equal(t, http.StatusCreated, w.Code)
	report := decode[entity.Report](t, w)
	w = ts.do(t, http.MethodPost, "/api/admin/reports/"+report.ID.String()+"/approve", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/sightings", fullToken, sightingBody())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", decode[errorBody](t, w).Code)
}

func TestRouter_RejectReport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/reports", ts.userToken, reportBody())
	require.Equal(t, http.StatusCreated, w.Code)
	report := decode[entity.Report](t, w)

	w = ts.do(t, http.MethodPost, "/api/admin/reports/"+report.ID.String()+"/reject", ts.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/reports/my", ts.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]entity.Report](t, w))

	w = ts.do(t, http.MethodPost, "/api/admin/reports/"+report.ID.String()+"/reject", ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BanBlocksSubmissions(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/admin/users/"+ts.userID.String()+"/ban", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/users/banned", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var banned struct {
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &banned))
	assert.Equal(t, []uuid.UUID{ts.userID}, banned.UserIDs)

	w = ts.do(t, http.MethodPost, "/api/reports", ts.userToken, reportBody())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/admin/users/"+ts.userID.String()+"/ban", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reports", ts.userToken, reportBody())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_BadInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/admin/reports/not-a-uuid/approve", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := reportBody()
	body["age"] = 19
	w = ts.do(t, http.MethodPost, "/api/reports", ts.userToken, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)

	body = reportBody()
	body["photos"] = []string{ts.otherID.String() + "/photo.jpg"}
	w = ts.do(t, http.MethodPost, "/api/reports", ts.userToken, body)
	assert.Equal(t, http.StatusBadRequest, w.Code, "чужие фотографии прикладывать нельзя")

	w = ts.do(t, http.MethodPost, "/api/reports", "", reportBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/reports?status=rejected", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AuthFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Kavya Singh", "email": "kavya@example.com", "password": "Password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "kavya@example.com", "password": "Password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = ts.do(t, http.MethodGet, "/api/me", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kavya@example.com", decode[entity.User](t, w).Email)

	w = ts.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": login.Tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "kavya@example.com", "password": "Wrong12345",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SeedAndPhotoUpload(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/seed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "child.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.userToken)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var upload struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))

	body := reportBody()
	body["photos"] = []string{upload.Path}
	w = ts.do(t, http.MethodPost, "/api/reports", ts.userToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{upload.Path}, decode[entity.Report](t, w).Photos)

	w = ts.do(t, http.MethodDelete, "/api/media/photos/"+upload.Path, ts.otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/media/photos/"+upload.Path, ts.userToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
