package api

import (
	"net/http"
	"os"

	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MessageHandler struct {
	Client  Messenger
	Uploads Uploads
}

func NewMessageHandler(client Messenger, uploads Uploads) *MessageHandler {
	return &MessageHandler{Client: client, Uploads: uploads}
}

type SendMessageRequest struct {
	Phone   flexString `json:"phone"`
	Message string     `json:"message"`
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Phone.String() == "" || req.Message == "" {
		respondError(c, invalid("Teléfono y mensaje son requeridos"), "")
		return
	}

	address, err := whatsapp.NormalizeAddress(req.Phone.String())
	if err != nil {
		respondError(c, err, "")
		return
	}
	if err := h.Client.Send(c.Request.Context(), address, req.Message, nil); err != nil {
		respondError(c, err, "Error enviando mensaje")
		return
	}
	logrus.WithField("phone", req.Phone.String()).Info("Message sent")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mensaje enviado correctamente"})
}

// SendImage sends one uploaded image with an optional caption.
func (h *MessageHandler) SendImage(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	header, err := h.Uploads.formFile(c, "image")
	if err != nil {
		respondError(c, err, "Error enviando imagen")
		return
	}
	if header == nil {
		respondError(c, invalid("No se encontró imagen"), "")
		return
	}
	phone := c.PostForm("phone")
	if phone == "" {
		respondError(c, invalid("Número de teléfono requerido"), "")
		return
	}
	address, err := whatsapp.NormalizeAddress(phone)
	if err != nil {
		respondError(c, err, "")
		return
	}

	path, err := h.Uploads.save(c, header, "image")
	if err != nil {
		respondError(c, err, "Error enviando imagen")
		return
	}
	defer os.Remove(path)

	ctx := c.Request.Context()
	media, err := h.Client.UploadImage(ctx, path)
	if err != nil {
		respondError(c, err, "Error enviando imagen")
		return
	}
	if err := h.Client.Send(ctx, address, c.PostForm("message"), media); err != nil {
		respondError(c, err, "Error enviando imagen")
		return
	}
	logrus.WithField("phone", phone).Info("Image sent")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Imagen enviada correctamente"})
}
