package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/tenant"
	"schedulix/backend/pkg/jwt"
)

const testTenant = "5b0e8a4e-7f36-4a57-9a55-0a9f0c3f4b11"

func init() {
	gin.SetMode(gin.TestMode)
}

// ── fakes ──

type fakeTokens struct{ revoked map[string]bool }

func (f fakeTokens) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

type fakeTenants struct{ err error }

func (f fakeTenants) EnsureActive(_ context.Context, tid tenant.ID) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	return f.err
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func testJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-for-unit-testing-2030",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := testJWT()
	access, _ := mgr.GenerateAccessToken("u1", "Doctor", testTenant)
	refresh, _ := mgr.GenerateRefreshToken("u1", "Doctor", testTenant, false)
	revoked, _ := mgr.GenerateAccessToken("u1", "Doctor", testTenant)
	revokedClaims, _ := mgr.ParseToken(revoked)

	var seen *jwt.Claims
	r := gin.New()
	r.Use(JWTAuth(mgr, fakeTokens{revoked: map[string]bool{revokedClaims.ID: true}}, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		v, _ := c.Get(ctxClaims)
		seen = v.(*jwt.Claims)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage", "abc", http.StatusUnauthorized},
		{"refresh token", refresh, http.StatusUnauthorized},
		{"revoked", revoked, http.StatusUnauthorized},
		{"valid", access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.token); w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
	if seen == nil || seen.TenantID != testTenant || seen.Role != "Doctor" {
		t.Errorf("claims not stored: %+v", seen)
	}
}

// ── TenantContext ──

func TestTenantContext(t *testing.T) {
	mgr := testJWT()
	token, _ := mgr.GenerateAccessToken("u1", "Admin", testTenant)

	build := func(checker TenantChecker) (*gin.Engine, *tenant.ID) {
		var got tenant.ID
		r := gin.New()
		r.Use(JWTAuth(mgr, nil, zap.NewNop()), TenantContext(checker, zap.NewNop()))
		r.GET("/x", func(c *gin.Context) {
			got, _ = tenant.FromContext(c.Request.Context())
			c.Status(http.StatusOK)
		})
		return r, &got
	}

	r, got := build(fakeTenants{})
	if w := do(r, token); w.Code != http.StatusOK {
		t.Fatalf("active tenant: expected 200, got %d", w.Code)
	}
	if *got != tenant.ID(testTenant) {
		t.Errorf("request context bound to %q", *got)
	}

	r, _ = build(fakeTenants{err: tenant.ErrTenantInactive})
	if w := do(r, token); w.Code != http.StatusForbidden {
		t.Errorf("suspended tenant: expected 403, got %d", w.Code)
	}

	r, _ = build(fakeTenants{err: errors.New("db down")})
	if w := do(r, token); w.Code != http.StatusInternalServerError {
		t.Errorf("lookup failure: expected 500, got %d", w.Code)
	}
}

func TestTenantContext_IgnoresHeaders(t *testing.T) {
	mgr := testJWT()
	token, _ := mgr.GenerateAccessToken("u1", "Admin", testTenant)

	var got tenant.ID
	r := gin.New()
	r.Use(JWTAuth(mgr, nil, zap.NewNop()), TenantContext(fakeTenants{}, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		got, _ = tenant.FromContext(c.Request.Context())
	})

	req := httptest.NewRequest("GET", "/x?tenant_id=7c9e6679-7425-40de-944b-e07fc1f90ae7", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-ID", "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != tenant.ID(testTenant) {
		t.Errorf("tenant taken from the request instead of the token: %q", got)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := testJWT()
	patient, _ := mgr.GenerateAccessToken("u1", "Patient", testTenant)
	admin, _ := mgr.GenerateAccessToken("u2", "Admin", testTenant)

	r := gin.New()
	r.Use(JWTAuth(mgr, nil, zap.NewNop()), RoleAuth("Admin", "Doctor"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(r, patient); w.Code != http.StatusForbidden {
		t.Errorf("patient: expected 403, got %d", w.Code)
	}
	if w := do(r, admin); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	deny := &fakeLimiter{allow: false}
	r := gin.New()
	r.Use(RateLimit(deny, 1, time.Minute, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}
	if len(deny.keys) != 1 || deny.keys[0] != "rate_limit:192.0.2.1:/x" {
		t.Errorf("unexpected keys %v", deny.keys)
	}

	broken := &fakeLimiter{err: errors.New("redis down")}
	r = gin.New()
	r.Use(RateLimit(broken, 1, time.Minute, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := do(r, ""); w.Code != http.StatusOK {
		t.Errorf("limiter failure must fail open, got %d", w.Code)
	}

	r = gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := do(r, ""); w.Code != http.StatusOK {
		t.Errorf("nil limiter: expected 200, got %d", w.Code)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("request id not propagated: %q", w.Header().Get("X-Request-ID"))
	}

	w = do(r, "")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("expected a generated uuid, got %q", w.Header().Get("X-Request-ID"))
	}

	for _, bad := range []string{"abc\nlevel=error", "a b", strings.Repeat("x", 65)} {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("X-Request-ID", bad)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("%q: expected a generated id, got %q", bad, got)
		}
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	reached := false
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/x", func(c *gin.Context) {
		reached = true
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(body string, chunked bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/x", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if chunked {
			req.ContentLength = -1
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := post(`{"a":"b"}`, false); w.Code != http.StatusOK {
		t.Errorf("small body: expected 200, got %d", w.Code)
	}

	reached = false
	if w := post(`{"a":"`+strings.Repeat("x", 32)+`"}`, false); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("declared length: expected 413, got %d", w.Code)
	}
	if reached {
		t.Error("handler ran for an oversized declared body")
	}

	if w := post(`{"a":"`+strings.Repeat("x", 32)+`"}`, true); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("chunked body: expected 413, got %d", w.Code)
	}
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	serve := func(hsts time.Duration) http.Header {
		r := gin.New()
		r.Use(SecurityHeaders(hsts))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return do(r, "").Header()
	}

	h := serve(0)
	if h.Get("Cache-Control") != "no-store" || h.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing headers: %v", h)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent with a zero max age")
	}

	h = serve(24 * time.Hour)
	if got := h.Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains" {
		t.Errorf("unexpected HSTS header %q", got)
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowOrigins: []string{"https://app.example.com/"}, MaxAge: time.Hour}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set("Origin", origin)
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", "POST")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodOptions, "https://app.example.com")
	if w.Code != http.StatusNoContent {
		t.Fatalf("allowed preflight: expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" || w.Header().Get("Access-Control-Max-Age") != "3600" {
		t.Errorf("unexpected preflight headers: %v", w.Header())
	}

	if w := send(http.MethodOptions, "https://evil.example.com"); w.Code != http.StatusForbidden {
		t.Errorf("foreign preflight: expected 403, got %d", w.Code)
	}

	w = send(http.MethodGet, "https://evil.example.com")
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("foreign origin granted access: %d %v", w.Code, w.Header())
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", w.Header().Get("Vary"))
	}
}
