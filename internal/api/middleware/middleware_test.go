package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	remaining int
	err       error
	lastKey   string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.lastKey = key
	if f.err != nil {
		return false, f.err
	}
	if f.remaining <= 0 {
		return false, nil
	}
	f.remaining--
	return true, nil
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	access, _ := mgr.GenerateAccessToken("u1", "parent")
	refresh, _ := mgr.GenerateRefreshToken("u1", "parent")
	claims, _ := mgr.ParseToken(access)

	tests := []struct {
		name       string
		header     string
		blacklist  Blacklist
		wantStatus int
	}{
		{"缺少认证头", "", nil, http.StatusUnauthorized},
		{"格式错误", "Token " + access, nil, http.StatusUnauthorized},
		{"伪造 Token", "Bearer not-a-jwt", nil, http.StatusUnauthorized},
		{"refresh token 不能访问", "Bearer " + refresh, nil, http.StatusUnauthorized},
		{"已注销", "Bearer " + access, &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}, http.StatusUnauthorized},
		{"黑名单故障时放行", "Bearer " + access, &fakeBlacklist{err: errors.New("redis down")}, http.StatusOK},
		{"无黑名单", "Bearer " + access, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			var gotUser, gotJTI string
			r.GET("/me", JWTAuth(mgr, tt.blacklist), func(c *gin.Context) {
				gotUser = c.GetString(CtxUserID)
				gotJTI = c.GetString(CtxTokenJTI)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := do(r, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("期望 %d，实际 %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && (gotUser != "u1" || gotJTI != claims.ID) {
				t.Errorf("上下文注入错误: user=%s jti=%s", gotUser, gotJTI)
			}
		})
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		role       string
		wantStatus int
	}{
		{"", http.StatusUnauthorized},
		{"parent", http.StatusForbidden},
		{"staff", http.StatusOK},
		{"admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run("role="+tt.role, func(t *testing.T) {
			r := gin.New()
			r.GET("/reports", func(c *gin.Context) {
				if tt.role != "" {
					c.Set(CtxRole, tt.role)
				}
			}, RoleAuth("staff", "admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := do(r, httptest.NewRequest("GET", "/reports", nil))
			if w.Code != tt.wantStatus {
				t.Errorf("期望 %d，实际 %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{remaining: 2}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		if w := do(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际 %d", i+1, w.Code)
		}
	}
	if w := do(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusTooManyRequests {
		t.Errorf("超限应返回 429，实际 %d", w.Code)
	}
	if !strings.HasSuffix(limiter.lastKey, ":/login") {
		t.Errorf("限流键应包含路由: %s", limiter.lastKey)
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	cases := map[string]gin.HandlerFunc{
		"nil limiter": RateLimit(nil, 1, time.Minute, zap.NewNop()),
		"limit=0":     RateLimit(&fakeLimiter{}, 0, time.Minute, zap.NewNop()),
		"redis error": RateLimit(&fakeLimiter{err: errors.New("down")}, 1, time.Minute, zap.NewNop()),
	}
	for name, mw := range cases {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.POST("/login", mw, func(c *gin.Context) { c.Status(http.StatusOK) })
			if w := do(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
				t.Errorf("应降级放行，实际 %d", w.Code)
			}
		})
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	if got := do(r, req).Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("应沿用传入的 Request-ID，实际 %q", got)
	}

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", requestIDMaxLen+1))
	if got := do(r, req).Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("过长的 Request-ID 应替换为 UUID，实际 %q", got)
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/orders", BodyLimit(8), func(c *gin.Context) {
		var v map[string]interface{}
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/orders", bytes.NewBufferString(`{"items":[1,2,3,4,5]}`))
	if w := do(r, req); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限请求体应返回 413，实际 %d", w.Code)
	}
}

// ── Logger ──

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	do(r, httptest.NewRequest("GET", "/health", nil))
	do(r, httptest.NewRequest("GET", "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条日志，实际 %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel {
		t.Errorf("探活请求应为 Debug，实际 %s", entries[0].Level)
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Errorf("5xx 应为 Error，实际 %s", entries[1].Level)
	}
	if entries[1].ContextMap()["request_id"] == "" {
		t.Error("日志应包含 request_id")
	}
}
