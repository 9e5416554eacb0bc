package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/models"
	"elda-admin/internal/navigation"
	"elda-admin/internal/querycache"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenCookie  = "access_token"
	LocaleCookie = "NEXT_LOCALE"

	identityStaleTime = 5 * time.Minute
	identityGCTime    = 15 * time.Minute
)

var errNoToken = errors.New("no session token")

// Identity is what the console knows about the caller after authentication.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Token  string
}

type AuthMiddleware struct {
	api           *apiclient.Client
	cache         *querycache.Cache
	jwtSecret     []byte
	defaultLocale string
	locales       []string
}

// NewAuthMiddleware verifies tokens locally when jwtSecret is set. Without a
// secret the upstream /auth/me answer is the source of truth, cached per token.
func NewAuthMiddleware(api *apiclient.Client, cache *querycache.Cache, jwtSecret, defaultLocale string, locales []string) *AuthMiddleware {
	return &AuthMiddleware{
		api:           api,
		cache:         cache,
		jwtSecret:     []byte(jwtSecret),
		defaultLocale: defaultLocale,
		locales:       locales,
	}
}

func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Locale picks the UI locale: a supported first path segment, then the
// NEXT_LOCALE cookie, then the default.
func (am *AuthMiddleware) Locale(c *gin.Context) string {
	if seg := firstSegment(c.Request.URL.Path); slices.Contains(am.locales, seg) {
		return seg
	}
	if v, err := c.Cookie(LocaleCookie); err == nil && slices.Contains(am.locales, v) {
		return v
	}
	return am.defaultLocale
}

func (am *AuthMiddleware) SupportsLocale(l string) bool {
	return slices.Contains(am.locales, l)
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// PagePath strips the locale segment, leaving the path the navigation model knows.
func (am *AuthMiddleware) PagePath(p string) string {
	if seg := firstSegment(p); slices.Contains(am.locales, seg) {
		p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), seg)
	}
	if p == "" {
		return "/"
	}
	return p
}

// LoginURL is the locale-prefixed login route with the requested path kept
// for post-login return.
func LoginURL(locale, redirect string) string {
	u := "/" + locale + "/login"
	if redirect != "" {
		u += "?redirect=" + url.QueryEscape(redirect)
	}
	return u
}

func (am *AuthMiddleware) resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errNoToken
	}
	if len(am.jwtSecret) > 0 {
		return am.verify(token)
	}

	key := querycache.Key{"session", SessionKey(token)}
	res := querycache.Query(ctx, am.cache, key,
		querycache.Options{StaleTime: identityStaleTime, GCTime: identityGCTime},
		func(ctx context.Context) (models.User, error) {
			return am.api.Me(ctx, token)
		})
	if res.Status != querycache.StatusSuccess {
		if apiclient.IsUnauthorized(res.Err) {
			am.cache.Remove(key)
		}
		return Identity{}, res.Err
	}
	u := res.Data
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role, Token: token}, nil
}

func (am *AuthMiddleware) verify(token string) (Identity, error) {
	claims := &models.JWTClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return am.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid token: " + err.Error()}
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role, Token: token}, nil
}

// SessionKey derives the per-session cache scope from a bearer token.
func SessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// ForgetToken drops the cached identity for token, used on logout.
func (am *AuthMiddleware) ForgetToken(token string) {
	if token != "" {
		am.cache.Remove(querycache.Key{"session", SessionKey(token)})
	}
}

func setIdentity(c *gin.Context, id Identity) {
	c.Set("user_id", id.UserID)
	c.Set("email", id.Email)
	c.Set("role", id.Role)
	c.Set("token", id.Token)
}

// Authenticate guards the JSON API. A missing or rejected token answers 401;
// an unreachable identity provider answers 502 so the caller does not log out.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := am.resolve(c.Request.Context(), tokenFrom(c))
		switch {
		case errors.Is(err, errNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		case apiclient.IsUnauthorized(err):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "details": apiclient.Message(err)})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Could not verify session", "details": apiclient.Message(err)})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// SessionGuard is the edge guard for HTML pages. Without a valid session it
// redirects to the localized login page carrying the requested path.
func (am *AuthMiddleware) SessionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := am.Locale(c)
		token := tokenFrom(c)
		if token == "" {
			c.Redirect(http.StatusFound, LoginURL(locale, c.Request.URL.Path))
			c.Abort()
			return
		}
		id, err := am.resolve(c.Request.Context(), token)
		if err != nil {
			if apiclient.IsUnauthorized(err) {
				c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
				c.Redirect(http.StatusFound, LoginURL(locale, c.Request.URL.Path))
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Could not verify session", "details": apiclient.Message(err)})
			return
		}
		setIdentity(c, id)
		c.Set("locale", locale)
		c.Next()
	}
}

// RequirePage is the page-level role guard. A role that may not see the page
// is sent to its dashboard.
func (am *AuthMiddleware) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if !navigation.Allowed(role, am.PagePath(c.Request.URL.Path)) {
			c.Redirect(http.StatusFound, "/"+am.Locale(c)+"/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole middleware checks if user has the required role
func (am *AuthMiddleware) RequireRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		if !slices.Contains(requiredRoles, role.(string)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// SessionID keys per-session state (visibility trackers, refresh gates,
// resource cache entries) without keeping the raw token around.
func SessionID(c *gin.Context) string {
	return SessionKey(c.GetString("token"))
}
