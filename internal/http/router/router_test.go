package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apphttp "quote_assistant_backend/internal/http"
	"quote_assistant_backend/platform/logger"
)

const testSecret = "test-secret"

type stubConfig struct{}

func (stubConfig) GetHTTPAddr() string        { return ":0" }
func (stubConfig) GetCORSAllowAll() bool      { return false }
func (stubConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (stubConfig) GetCORSAllowCreds() bool    { return false }
func (stubConfig) GetJWTAccessSecret() string { return testSecret }

type stubHealth struct{ err error }

func (s stubHealth) Ping(ctx context.Context) error { return s.err }

type stubModule struct{}

func (stubModule) Name() string { return "stub" }

func (stubModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	ctx.Admin.GET("/secret", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
}

func newTestEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  stubConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{stubModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "operator-1",
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(engine *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	engine := newTestEngine(stubHealth{})
	if w := serve(engine, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}
	if w := serve(engine, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", w.Code)
	}

	down := newTestEngine(stubHealth{err: errors.New("connection refused")})
	if w := serve(down, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", w.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	w := serve(newTestEngine(nil), http.MethodGet, "/api/v1/ping", "")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	engine := newTestEngine(nil)

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "garbage token", bearer: "abc", want: http.StatusUnauthorized},
		{name: "wrong role", bearer: token(t, "viewer"), want: http.StatusForbidden},
		{name: "admin", bearer: token(t, RoleAdmin), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(engine, http.MethodGet, "/api/v1/admin/secret", tt.bearer); w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestEngine(nil)
	serve(engine, http.MethodGet, "/api/v1/ping", "")

	w := serve(engine, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "quote_assistant_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}
