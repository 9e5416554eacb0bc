package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/navigation"
	"elda-admin/internal/querycache"

	"github.com/gin-gonic/gin"
)

// PageHandler renders the server-side screens. Every page behind the
// session guard gets the role-filtered sidebar.
type PageHandler struct {
	deps      Deps
	auth      *middleware.AuthMiddleware
	resources map[string]ResourceRoutes
	prefs     *PreferenceHandler
}

func NewPageHandler(deps Deps, auth *middleware.AuthMiddleware, resources []ResourceRoutes, prefs *PreferenceHandler) *PageHandler {
	byName := make(map[string]ResourceRoutes, len(resources))
	for _, r := range resources {
		byName[r.Name()] = r
	}
	return &PageHandler{deps: deps, auth: auth, resources: byName, prefs: prefs}
}

func (h *PageHandler) shell(c *gin.Context, title, active string) gin.H {
	role := c.GetString("role")
	return gin.H{
		"Title":     title,
		"Locale":    c.GetString("locale"),
		"Role":      role,
		"Active":    active,
		"Sections":  navigation.ForRole(role),
		"Collapsed": c.Query("sidebar") == "collapsed",
	}
}

// Login renders the sign-in form
// GET /:locale/login?redirect=
func (h *PageHandler) Login(c *gin.Context) {
	locale := c.Param("locale")
	if !h.auth.SupportsLocale(locale) {
		c.Redirect(http.StatusFound, middleware.LoginURL(h.auth.Locale(c), c.Query("redirect")))
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Locale":   locale,
		"Redirect": safeRedirect(c.Query("redirect"), locale),
	})
}

// Dashboard renders the landing page
// GET /:locale/dashboard
func (h *PageHandler) Dashboard(c *gin.Context) {
	data := h.shell(c, "Dashboard", "dashboard")

	token := c.GetString("token")
	key := querycache.Key{"notifications", middleware.SessionID(c), "1", "20"}
	res := querycache.Query(c.Request.Context(), h.deps.Cache, key, querycache.Options{StaleTime: time.Minute},
		func(ctx context.Context) (apiclient.Page[models.Notification], error) {
			return h.deps.API.Notifications(ctx, token, apiclient.ListParams{Page: 1, Limit: 20})
		})
	if apiclient.IsUnauthorized(res.Err) {
		h.toLogin(c)
		return
	}
	unread := 0
	for _, n := range res.Data.Items {
		if !n.Read {
			unread++
		}
	}
	data["Unread"] = unread
	c.HTML(http.StatusOK, "dashboard.html", data)
}

// Resource renders a list screen for the resource named in the route.
// GET /:locale/{resource}
func (h *PageHandler) Resource(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := h.resources[name]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
			return
		}
		item, _ := navigation.Lookup("/" + name)
		view, err := r.View(c.Request.Context(), c.GetString("token"), c.Request.URL.Query(), true)
		if err != nil {
			h.toLogin(c)
			return
		}
		data := h.shell(c, item.Label, item.Key)
		data["List"] = view
		c.HTML(http.StatusOK, "resource.html", data)
	}
}

// Settings renders the display preferences form
// GET /:locale/settings
func (h *PageHandler) Settings(c *gin.Context) {
	p, err := h.prefs.current(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		log.Printf("load preferences user_id=%s err=%v", c.GetString("user_id"), err)
		c.String(http.StatusInternalServerError, "Failed to load preferences")
		return
	}
	data := h.shell(c, "Settings", "settings")
	data["Prefs"] = p
	data["FontSizes"] = fontSizes
	data["Themes"] = themes
	data["Languages"] = h.prefs.languages
	c.HTML(http.StatusOK, "settings.html", data)
}

// toLogin handles a session the API no longer accepts.
func (h *PageHandler) toLogin(c *gin.Context) {
	h.auth.ForgetToken(c.GetString("token"))
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, middleware.LoginURL(c.GetString("locale"), c.Request.URL.Path))
}
