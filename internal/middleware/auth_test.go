package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/models"
	"elda-admin/internal/querycache"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newAuth(t *testing.T, secret string, upstream http.Handler) *AuthMiddleware {
	t.Helper()
	base := "http://127.0.0.1:0"
	if upstream != nil {
		srv := httptest.NewServer(upstream)
		t.Cleanup(srv.Close)
		base = srv.URL
	}
	api := apiclient.New(base, apiclient.WithRetry(1, time.Millisecond, time.Millisecond))
	cache := querycache.New(querycache.Options{StaleTime: time.Minute, GCTime: time.Minute}, nil)
	return NewAuthMiddleware(api, cache, secret, "en", []string{"en", "am"})
}

func pageEngine(am *AuthMiddleware) *gin.Engine {
	r := gin.New()
	pages := r.Group("/:locale", am.SessionGuard(), am.RequirePage())
	pages.GET("/:page", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("role")) })
	return r
}

func signed(t *testing.T, secret, role string) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: "u1", Email: "a@elda.et", Role: role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestSessionGuardRedirectsWithoutCookie(t *testing.T) {
	r := pageEngine(newAuth(t, "s3cret", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/am/employees", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/am/login?redirect=%2Fam%2Femployees", w.Header().Get("Location"))
}

func TestSessionGuardFallsBackToLocaleCookie(t *testing.T) {
	r := pageEngine(newAuth(t, "s3cret", nil))

	req := httptest.NewRequest(http.MethodGet, "/xx/employees", nil)
	req.AddCookie(&http.Cookie{Name: LocaleCookie, Value: "am"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "/am/login?redirect=%2Fxx%2Femployees", w.Header().Get("Location"))
}

func TestPageGuardByRole(t *testing.T) {
	am := newAuth(t, "s3cret", nil)
	r := pageEngine(am)

	req := httptest.NewRequest(http.MethodGet, "/en/employees", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: signed(t, "s3cret", models.RoleHRManager)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleHRManager, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/en/users", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: signed(t, "s3cret", models.RoleLawyer)})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/en/dashboard", w.Header().Get("Location"))
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	am := newAuth(t, "s3cret", nil)
	r := gin.New()
	r.GET("/api/me", am.Authenticate(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "other", models.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateResolvesThroughUpstreamOnce(t *testing.T) {
	var calls atomic.Int32
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"7","email":"h@elda.et","role":"hr_manager"}}`))
	})
	am := newAuth(t, "", upstream)
	r := gin.New()
	r.GET("/api/me", am.Authenticate(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("role")) })

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hr_manager", w.Body.String())
	}
	assert.Equal(t, int32(1), calls.Load())

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "expired"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	am := newAuth(t, "x", nil)
	r.GET("/audit", func(c *gin.Context) { c.Set("role", models.RoleLawyer) }, am.RequireRole(models.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestIDKeepsValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	id := "3b241101-e2bb-4255-8caf-4136c566a962"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, id, w.Header().Get(RequestIDHeader))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestPagePath(t *testing.T) {
	am := newAuth(t, "", nil)
	assert.Equal(t, "/employees", am.PagePath("/en/employees"))
	assert.Equal(t, "/", am.PagePath("/am"))
	assert.Equal(t, "/fr/employees", am.PagePath("/fr/employees"))
}
