package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"elda-admin/internal/db"
	"elda-admin/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	fontSizes = []string{"small", "medium", "large"}
	themes    = []string{"light", "dark", "system"}
)

type PreferenceHandler struct {
	store     db.PreferenceStore
	languages []string
}

func NewPreferenceHandler(store db.PreferenceStore, languages []string) *PreferenceHandler {
	return &PreferenceHandler{store: store, languages: languages}
}

// current returns the saved preferences, or the defaults for a user who
// never saved any.
func (h *PreferenceHandler) current(ctx context.Context, userID string) (models.Preferences, error) {
	p, err := h.store.GetPreferences(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return db.DefaultPreferences(userID), nil
	}
	return p, err
}

// GET /api/preferences
func (h *PreferenceHandler) Get(c *gin.Context) {
	p, err := h.current(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load preferences", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

// PUT /api/preferences
// Omitted fields keep their current value.
func (h *PreferenceHandler) Put(c *gin.Context) {
	var in struct {
		FontSize string `json:"font_size"`
		Theme    string `json:"theme"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	if in.FontSize != "" && !slices.Contains(fontSizes, in.FontSize) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid font_size", "details": in.FontSize})
		return
	}
	if in.Theme != "" && !slices.Contains(themes, in.Theme) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid theme", "details": in.Theme})
		return
	}
	if in.Language != "" && !slices.Contains(h.languages, in.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid language", "details": in.Language})
		return
	}

	p, err := h.current(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load preferences", "details": err.Error()})
		return
	}
	if in.FontSize != "" {
		p.FontSize = in.FontSize
	}
	if in.Theme != "" {
		p.Theme = in.Theme
	}
	if in.Language != "" {
		p.Language = in.Language
	}

	saved, err := h.store.SavePreferences(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save preferences", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": saved})
}
