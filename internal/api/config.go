package api

import (
	"net/http"

	"whatsapp-bulk-sender/internal/models"
	"whatsapp-bulk-sender/internal/store"

	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	Store        store.SettingsStore
	DefaultDelay int
}

func NewConfigHandler(s store.SettingsStore, defaultDelay int) *ConfigHandler {
	if defaultDelay <= 0 {
		defaultDelay = models.DefaultMessageDelay
	}
	return &ConfigHandler{Store: s, DefaultDelay: defaultDelay}
}

func (h *ConfigHandler) GetConfig(c *gin.Context) {
	settings, err := h.Store.LoadSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error cargando configuración")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveConfig stores messageDelay; values that are not a positive integer
// fall back to the default delay.
func (h *ConfigHandler) SaveConfig(c *gin.Context) {
	var value any
	if isJSON(c) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err == nil {
			value = body["messageDelay"]
		}
	} else if v, ok := c.GetPostForm("messageDelay"); ok {
		value = v
	}

	settings := models.Settings{MessageDelay: models.ParseMessageDelay(value, h.DefaultDelay)}
	if err := h.Store.SaveSettings(c.Request.Context(), settings); err != nil {
		respondError(c, err, "Error guardando configuración")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": settings})
}
