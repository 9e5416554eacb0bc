package router

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"elda-admin/internal/config"
	"elda-admin/internal/db"
	"elda-admin/internal/handlers"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/views"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HealthFunc reports whether a backing service is reachable.
type HealthFunc func(ctx context.Context) error

// Resources builds the handler for every entity screen. The ticket handler
// is returned separately for its status route.
func Resources(deps handlers.Deps) ([]handlers.ResourceRoutes, *handlers.TicketHandler) {
	tickets := handlers.NewTicketHandler(deps)
	return []handlers.ResourceRoutes{
		handlers.NewResourceHandler(handlers.EmployeeResource(), deps),
		handlers.NewResourceHandler(handlers.UserResource(), deps),
		handlers.NewResourceHandler(handlers.RequestResource(), deps),
		tickets,
		handlers.NewResourceHandler(handlers.DocumentResource(), deps),
		handlers.NewResourceHandler(handlers.CategoryResource(), deps),
	}, tickets
}

func Setup(r *gin.Engine, cfg config.AppConfig, deps handlers.Deps, am *middleware.AuthMiddleware, store db.Store, health HealthFunc) {
	r.Use(middleware.RequestID())
	r.Use(gin.LoggerWithFormatter(middleware.LogFormatter))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.SetHTMLTemplate(views.Templates())
	r.StaticFS("/static", http.FS(views.Static()))

	resources, tickets := Resources(deps)
	ah := handlers.NewAuthHandler(deps, am, cfg.SecureCookies)
	sh := handlers.NewSessionHandler(deps)
	ph := handlers.NewPreferenceHandler(store, cfg.SupportedLocales)
	audh := handlers.NewAuditHandler(store)
	pages := handlers.NewPageHandler(deps, am, resources, ph)

	// health
	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": deps.Cache.Stats(), "sessions": deps.Sessions.Len()})
	})

	// auth proxy
	auth := r.Group("/auth")
	{
		auth.POST("/login", ah.Login)
		auth.POST("/register", ah.Register)
		auth.POST("/logout", am.Authenticate(), ah.Logout)
	}

	// pages
	r.GET("/:locale/login", pages.Login)
	page := r.Group("/:locale", am.SessionGuard(), am.RequirePage())
	{
		page.GET("/dashboard", pages.Dashboard)
		page.GET("/settings", pages.Settings)
		for _, res := range resources {
			page.GET("/"+res.Name(), pages.Resource(res.Name()))
		}
	}

	// json api
	api := r.Group("/api", am.Authenticate())
	{
		api.GET("/me", ah.Me)
		api.GET("/navigation", sh.Navigation)
		api.GET("/notifications", sh.Notifications)
		api.POST("/session/visibility", sh.Visibility)
		api.GET("/preferences", ph.Get)
		api.PUT("/preferences", ph.Put)
		api.GET("/audit-logs", am.RequireRole(models.RoleAdmin), audh.GetAuditLogs)

		for _, res := range resources {
			g := api.Group("/" + res.Name())
			if roles := res.Roles(); len(roles) > 0 {
				g.Use(am.RequireRole(roles...))
			}
			g.GET("", res.List)
			g.POST("", res.Create)
			g.POST("/refresh", res.Refresh)
			g.GET("/:id", res.Get)
			g.PATCH("/:id", res.Update)
			g.DELETE("/:id", res.Delete)
		}
		api.PATCH("/tickets/:id/status", tickets.UpdateStatus)
	}

	r.GET("/debug/vars", am.Authenticate(), am.RequireRole(models.RoleAdmin), gin.WrapH(expvar.Handler()))
}
