package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/authz"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeIdentifier map[string]uint

func (f fakeIdentifier) Identify(_ context.Context, token string) (authz.Identity, error) {
	id, ok := f[token]
	if !ok {
		return authz.Anonymous(), errors.New("bad token")
	}
	return authz.Authenticated(id), nil
}

func whoami(c *gin.Context) {
	id, _ := Identity(c).UserID()
	c.JSON(http.StatusOK, gin.H{"id": id, "request_id": c.GetString(KeyRequestID)})
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(Auth(fakeIdentifier{"good": 7}))
	r.GET("/", whoami)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"none", "", `{"id":0,"request_id":""}`},
		{"valid", "Bearer good", `{"id":7,"request_id":""}`},
		{"lowercase scheme", "bearer good", `{"id":7,"request_id":""}`},
		{"invalid token", "Bearer bad", `{"id":0,"request_id":""}`},
		{"wrong scheme", "Basic good", `{"id":0,"request_id":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

func TestIdentityWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, Identity(c).IsAnonymous())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", whoami)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
	assert.Contains(t, w.Body.String(), `"request_id":"abc"`)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"), "separate bucket per ip")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"))

	now = now.Add(2 * time.Minute)
	l.Allow("3.3.3.3")
	l.mu.Lock()
	assert.Len(t, l.limiters, 1)
	l.mu.Unlock()
}

func TestIPRateLimiterSweepsAtMostOncePerTTL(t *testing.T) {
	l := NewIPRateLimiter(1, 1, time.Minute)
	start := time.Now()
	at := func(d time.Duration, ip string) {
		l.now = func() time.Time { return start.Add(d) }
		l.Allow(ip)
	}
	has := func(ip string) bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.limiters[ip]
		return ok
	}

	at(0, "a")
	at(5*time.Second, "b")
	at(61*time.Second, "c") // sweep: a idle 61s
	assert.False(t, has("a"))
	assert.True(t, has("b"))

	// b is idle past ttl, but the next sweep is not due yet
	at(70*time.Second, "c")
	assert.True(t, has("b"))

	at(122*time.Second, "c")
	assert.False(t, has("b"))
	assert.True(t, has("c"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rejected := 0
	r := gin.New()
	r.Use(RateLimit(NewIPRateLimiter(0.001, 1, time.Minute), func(*gin.Context) { rejected++ }))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, rejected)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewIPRateLimiter(0, 1, time.Minute), nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
