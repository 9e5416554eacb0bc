package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/querycache"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookieTTL = 24 * time.Hour
	localeCookieTTL  = 365 * 24 * time.Hour
)

// AuthHandler proxies credentials to the API and owns the session cookies.
// Passwords never touch the console beyond the forwarded request.
type AuthHandler struct {
	deps          Deps
	auth          *middleware.AuthMiddleware
	secureCookies bool
}

func NewAuthHandler(deps Deps, auth *middleware.AuthMiddleware, secureCookies bool) *AuthHandler {
	return &AuthHandler{deps: deps, auth: auth, secureCookies: secureCookies}
}

// safeRedirect only follows local paths so the login form cannot be used as
// an open redirect.
func safeRedirect(target, locale string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, `\`) {
		return target
	}
	return "/" + locale + "/dashboard"
}

// Login authenticates against the API and sets the session cookies
// POST /auth/login?redirect=
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	res, err := h.deps.API.Login(c.Request.Context(), strings.TrimSpace(strings.ToLower(input.Email)), input.Password)
	if err != nil {
		status := apiclient.StatusCode(err)
		switch {
		case status == http.StatusUnauthorized || status == http.StatusBadRequest:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "details": apiclient.Message(err)})
		case status == 0:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Login service unavailable", "details": apiclient.Message(err)})
		default:
			c.JSON(status, gin.H{"error": "Login failed", "details": apiclient.Message(err)})
		}
		return
	}
	if res.Token == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Login failed", "details": "no token in response"})
		return
	}
	locale := input.Locale
	if !h.auth.SupportsLocale(locale) {
		locale = h.auth.Locale(c)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, res.Token, int(sessionCookieTTL.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(middleware.LocaleCookie, locale, int(localeCookieTTL.Seconds()), "/", "", h.secureCookies, false)

	log.Printf("login user_id=%s role=%s", res.User.ID, res.User.Role)
	c.JSON(http.StatusOK, gin.H{
		"user":     res.User,
		"redirect": safeRedirect(c.Query("redirect"), locale),
	})
}

// Register forwards account creation to the API
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	if input.Role != "" && !models.IsValidRole(input.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role", "details": input.Role})
		return
	}
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	user, err := h.deps.API.Register(c.Request.Context(), input)
	if err != nil {
		status := apiclient.StatusCode(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": "Failed to register", "details": apiclient.Message(err)})
		return
	}
	h.deps.Cache.Invalidate(querycache.Key{"users"})
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "data": user})
}

// Logout ends the session upstream and drops everything kept for it
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString("token")
	session := middleware.SessionID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := h.deps.API.Logout(ctx, token); err != nil {
		log.Printf("upstream logout failed user_id=%s err=%v", c.GetString("user_id"), err)
	}

	h.auth.ForgetToken(token)
	h.deps.Cache.Remove(querycache.Key{"me", session})
	h.deps.Cache.Remove(querycache.Key{"notifications", session})
	h.deps.Sessions.Forget(session)
	h.deps.Gates.Forget(session + ":")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the current user's profile
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	token := c.GetString("token")
	res := querycache.Query(c.Request.Context(), h.deps.Cache, querycache.Key{"me", middleware.SessionID(c)},
		querycache.Options{StaleTime: 5 * time.Minute},
		func(ctx context.Context) (models.User, error) {
			return h.deps.API.Me(ctx, token)
		})
	switch {
	case apiclient.IsUnauthorized(res.Err):
		h.deps.Cache.Remove(querycache.Key{"me", middleware.SessionID(c)})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
	case res.HasData():
		c.JSON(http.StatusOK, gin.H{"data": res.Data, "stale": res.Stale})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load profile", "details": apiclient.Message(res.Err)})
	}
}
