package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"elda-admin/internal/activity"
	"elda-admin/internal/apiclient"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/navigation"
	"elda-admin/internal/querycache"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves the per-session shell state: tab visibility, the
// role-filtered sidebar and the notification bell.
type SessionHandler struct {
	deps Deps
}

func NewSessionHandler(deps Deps) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// Visibility records a browser visibility event
// POST /api/session/visibility
func (h *SessionHandler) Visibility(c *gin.Context) {
	var in struct {
		Event  string `json:"event" binding:"required"`
		Hidden bool   `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	state, err := h.deps.Sessions.Apply(middleware.SessionID(c), in.Event, in.Hidden)
	if errors.Is(err, activity.ErrUnknownEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event", "details": in.Event})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Navigation returns the sidebar for the current role
// GET /api/navigation?sidebar=collapsed
func (h *SessionHandler) Navigation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"role":      c.GetString("role"),
		"sections":  navigation.ForRole(c.GetString("role")),
		"collapsed": c.Query("sidebar") == "collapsed",
	})
}

// Notifications lists the current user's notifications
// GET /api/notifications?page=&limit=
func (h *SessionHandler) Notifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	token := c.GetString("token")
	session := middleware.SessionID(c)
	key := querycache.Key{"notifications", session, strconv.Itoa(page), strconv.Itoa(limit)}
	visible := h.deps.Sessions.Get(session).State().Visible

	res := querycache.Query(c.Request.Context(), h.deps.Cache, key,
		querycache.Options{StaleTime: time.Minute, Disabled: !visible},
		func(ctx context.Context) (apiclient.Page[models.Notification], error) {
			return h.deps.API.Notifications(ctx, token, apiclient.ListParams{Page: page, Limit: limit})
		})
	switch {
	case apiclient.IsUnauthorized(res.Err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
	case res.HasData():
		unread := 0
		for _, n := range res.Data.Items {
			if !n.Read {
				unread++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": res.Status,
			"data":   res.Data.Items,
			"paging": res.Data.Paging,
			"unread": unread,
			"stale":  res.Stale,
		})
	case res.Status == querycache.StatusPending:
		c.JSON(http.StatusOK, gin.H{"status": res.Status, "data": []any{}})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"status": res.Status, "error": "Failed to load notifications", "details": apiclient.Message(res.Err)})
	}
}
