package handlers

import (
	"net/http"
	"strconv"
	"time"

	"elda-admin/internal/db"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	store db.AuditStore
}

func NewAuditHandler(store db.AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// GET /api/audit-logs?resource=&record_id=&action=&user_id=&from=&to=&limit=
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	f := db.AuditFilter{
		UserID:   c.Query("user_id"),
		Resource: c.Query("resource"),
		RecordID: c.Query("record_id"),
		Action:   c.Query("action"),
	}
	// time range filters (ISO8601 expected)
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	logs, err := h.store.ListAudit(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch audit logs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs, "count": len(logs)})
}
