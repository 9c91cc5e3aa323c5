package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jm *utils.JWTManager) *gin.Engine {
	m := NewJWTMiddleware(jm)
	r := gin.New()
	r.GET("/me", m.Handle(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": UserID(c), "email": UserEmail(c)})
	})
	r.GET("/admin", m.Handle(), m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	jm := utils.NewJWTManager("secret", time.Hour)
	r := newAuthRouter(jm)

	customer, err := jm.Generate(3, "ana@example.com", "customer")
	require.NoError(t, err)
	admin, err := jm.Generate(1, "ops@example.com", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "garbage").Code)

	rec := doGet(r, "/me", customer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":3,"email":"ana@example.com"}`, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, doGet(r, "/admin", customer).Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/admin", admin).Code)
}

func TestLoginRateLimiterBlocksAfterFiveFailures(t *testing.T) {
	rl := &LoginRateLimiter{attempts: map[string]*attemptInfo{}, now: time.Now}
	r := gin.New()
	status := http.StatusUnauthorized
	r.POST("/login", rl.Handle(), func(c *gin.Context) { c.Status(status) })

	post := func() int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		return rec.Code
	}
	for i := 0; i < loginMaxFailures; i++ {
		assert.Equal(t, http.StatusUnauthorized, post())
	}
	assert.Equal(t, http.StatusTooManyRequests, post())

	// Window expiry unblocks.
	base := time.Now()
	rl.now = func() time.Time { return base.Add(2 * time.Minute) }
	status = http.StatusOK
	assert.Equal(t, http.StatusOK, post())
	assert.False(t, rl.Blocked("192.0.2.1"))
}

func TestLoginRateLimiterSweep(t *testing.T) {
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	rl := &LoginRateLimiter{attempts: map[string]*attemptInfo{
		"192.0.2.1": {count: 5, firstAt: base.Add(-2 * time.Minute)},
		"192.0.2.2": {count: 1, firstAt: base.Add(-10 * time.Second)},
	}, now: func() time.Time { return base }}

	rl.sweep()
	assert.NotContains(t, rl.attempts, "192.0.2.1")
	assert.Contains(t, rl.attempts, "192.0.2.2")
}

func TestLoginRateLimiterCleanupStopsWithContext(t *testing.T) {
	rl := &LoginRateLimiter{attempts: map[string]*attemptInfo{}, now: time.Now}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.cleanup(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestCORSAllowsStorefrontOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://www.filtrotek.mx")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://www.filtrotek.mx", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(false))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doGet(r, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
