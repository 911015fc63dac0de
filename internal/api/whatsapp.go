package api

import (
	"errors"
	"net/http"

	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WhatsAppHandler exposes the paired account's address book.
type WhatsAppHandler struct {
	Client Messenger
}

func NewWhatsAppHandler(client Messenger) *WhatsAppHandler {
	return &WhatsAppHandler{Client: client}
}

// GetContacts lists address book contacts grouped by label name.
func (h *WhatsAppHandler) GetContacts(c *gin.Context) {
	ctx := c.Request.Context()
	contacts, err := h.Client.ListContacts(ctx)
	if err != nil {
		respondError(c, err, "Error obteniendo contactos")
		return
	}
	labels, err := h.Client.ListLabels(ctx)
	if err != nil {
		if errors.Is(err, whatsapp.ErrNotReady) {
			respondError(c, err, "")
			return
		}
		logrus.WithError(err).Warn("Could not load labels")
		labels = []whatsapp.Label{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"contactsByLabel": whatsapp.GroupByLabel(contacts, labels),
		"labels":          labels,
		"totalContacts":   len(contacts),
		"totalLabels":     len(labels),
	})
}

func (h *WhatsAppHandler) GetContactsByLabel(c *gin.Context) {
	name := c.Param("labelName")
	ctx := c.Request.Context()

	label, err := h.Client.LabelByName(ctx, name)
	if err != nil {
		respondError(c, err, "Error obteniendo contactos por etiqueta")
		return
	}
	contacts, err := h.Client.ListChatsByLabel(ctx, label.ID)
	if err != nil {
		respondError(c, err, "Error obteniendo contactos por etiqueta")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"labelName": name,
		"contacts":  contacts,
		"total":     len(contacts),
	})
}
