package api

import (
	"net/http"

	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ConnectionHandler struct {
	Client Messenger
}

func NewConnectionHandler(client Messenger) *ConnectionHandler {
	return &ConnectionHandler{Client: client}
}

func (h *ConnectionHandler) GetStatus(c *gin.Context) {
	snap := h.Client.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":  snap.Status,
		"isReady": snap.Ready,
		"hasQR":   snap.HasQR(),
	})
}

// GetQR returns the current pairing code as a PNG data URL, or null.
func (h *ConnectionHandler) GetQR(c *gin.Context) {
	snap := h.Client.Status()
	if !snap.HasQR() {
		c.JSON(http.StatusOK, gin.H{"qr": nil})
		return
	}
	url, err := whatsapp.QRDataURL(snap.QR)
	if err != nil {
		logrus.WithError(err).Error("Error generating QR image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generando QR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr": url})
}

// Initialize starts the client unless it is already running.
func (h *ConnectionHandler) Initialize(c *gin.Context) {
	if h.Client.Start() {
		c.JSON(http.StatusOK, gin.H{"message": "Inicializando cliente de WhatsApp..."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cliente ya inicializado"})
}
