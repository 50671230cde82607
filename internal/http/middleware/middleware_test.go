package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/pkg/apperror"
)

type stubParser struct {
	userID uuid.UUID
	role   valueobject.Role
	err    error
}

func (p stubParser) ParseAccess(string) (uuid.UUID, valueobject.Role, error) {
	return p.userID, p.role, p.err
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	r := gin.New()
	r.GET("/me", AuthMiddleware(stubParser{userID: userID, role: valueobject.RoleUser}), func(c *gin.Context) {
		got, _ := c.Get(ContextUserIDKey)
		c.String(http.StatusOK, got.(uuid.UUID).String())
	})
	r.GET("/bad", AuthMiddleware(stubParser{err: errors.New("expired")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/bad", "token").Code)

	w := serve(r, "GET", "/me", "token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/reports", OptionalAuthMiddleware(stubParser{err: errors.New("bad")}), func(c *gin.Context) {
		_, exists := c.Get(ContextUserIDKey)
		if exists {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/reports", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/reports", "broken").Code)
}

func TestRequireModerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	r := gin.New()
	r.GET("/user", AuthMiddleware(stubParser{userID: uuid.New(), role: valueobject.RoleUser}), RequireModerator(), ok)
	r.GET("/admin", AuthMiddleware(stubParser{userID: uuid.New(), role: valueobject.RoleAdmin}), RequireModerator(), ok)

	assert.Equal(t, http.StatusForbidden, serve(r, "GET", "/user", "t").Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/admin", "t").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(memory.NewStore(), "test", 2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "").Code)

	w := serve(r, "GET", "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestNewLimiterStore_MemoryWithoutRedis(t *testing.T) {
	store, err := NewLimiterStore(nil)
	assert.NoError(t, err)
	assert.NotNil(t, store)
}

func TestUUIDValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/reports/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusBadRequest, serve(r, "GET", "/reports/123", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/reports/"+uuid.NewString(), "").Code)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/quota", func(c *gin.Context) { _ = c.Error(apperror.ErrQuotaExceeded) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection reset")) })

	w := serve(r, "GET", "/quota", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "QUOTA_EXCEEDED")

	w = serve(r, "GET", "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:", "внутренние ошибки не раскрываются клиенту")
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
