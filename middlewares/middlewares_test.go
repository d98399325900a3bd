package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authUtils "civicsync/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(UserIDKey), "role": c.GetString(RoleKey)})
	})
	r.GET("/", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	token, err := authUtils.GenerateToken("secret", authUtils.Claims{UserID: "user-1", Role: "municipality"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		cookie     string
		secret     string
		wantStatus int
	}{
		{"bearer header", "Bearer " + token, "", "secret", http.StatusOK},
		{"raw header", token, "", "secret", http.StatusOK},
		{"cookie", "", token, "secret", http.StatusOK},
		{"missing token", "", "", "secret", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", "secret", http.StatusUnauthorized},
		{"no secret configured", "Bearer " + token, "", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(AuthMiddleware(tt.secret))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user":"user-1","role":"municipality"}`, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) { c.Set(RoleKey, role) }
	}

	tests := []struct {
		role string
		want int
	}{
		{"thinktank", http.StatusOK},
		{"citizen", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := newRouter(withRole(tt.role), RequireRole("thinktank"))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(f.expires[key], nil)
}

func TestIssueRateLimiter(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
	asUser := func(c *gin.Context) { c.Set(UserIDKey, "user-1") }
	r := newRouter(asUser, IssueRateLimiter(counter, "issue_limit", 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, LimitWindow, counter.expires["issue_limit:user-1"])
}

func TestIssueRateLimiterRedisFailure(t *testing.T) {
	counter := &fakeCounter{incrErr: errors.New("connection refused")}
	asUser := func(c *gin.Context) { c.Set(UserIDKey, "user-1") }
	r := newRouter(asUser, IssueRateLimiter(counter, "issue_limit", 2))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
