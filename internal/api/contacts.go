package api

import (
	"fmt"
	"net/http"

	"whatsapp-bulk-sender/internal/spreadsheet"
	"whatsapp-bulk-sender/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ContactHandler struct {
	Store   store.ContactStore
	Uploads Uploads
}

func NewContactHandler(s store.ContactStore, uploads Uploads) *ContactHandler {
	return &ContactHandler{Store: s, Uploads: uploads}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Store.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error cargando contactos")
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "total": len(contacts)})
}

// AddContactRequest is accepted as JSON or as an urlencoded form.
type AddContactRequest struct {
	Name  string     `json:"name" form:"name"`
	Phone flexString `json:"phone" form:"phone"`
}

func (h *ContactHandler) AddContact(c *gin.Context) {
	var req AddContactRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" || req.Phone.String() == "" {
		respondError(c, invalid("Nombre y teléfono son requeridos"), "")
		return
	}

	ctx := c.Request.Context()
	contact, err := h.Store.Add(ctx, req.Name, req.Phone.String())
	if err != nil {
		respondError(c, err, "Error agregando contacto")
		return
	}
	contacts, err := h.Store.List(ctx)
	if err != nil {
		respondError(c, err, "Error agregando contacto")
		return
	}
	logrus.WithFields(logrus.Fields{"id": contact.ID, "phone": contact.Phone}).Info("Contact added")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Contacto agregado correctamente",
		"contact": contact,
		"total":   len(contacts),
	})
}

type DeleteContactsRequest struct {
	ContactIDs []string `json:"contactIds"`
}

func (h *ContactHandler) DeleteContacts(c *gin.Context) {
	var req DeleteContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ContactIDs) == 0 {
		respondError(c, invalid("IDs de contactos requeridos"), "")
		return
	}

	res, err := h.Store.Delete(c.Request.Context(), req.ContactIDs)
	if err != nil {
		respondError(c, err, "Error eliminando contactos")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        fmt.Sprintf("%d contacto(s) eliminado(s) correctamente", res.Deleted),
		"deletedCount":   res.Deleted,
		"remainingCount": res.Remaining,
	})
}

// ImportContacts reads a CSV or Excel upload and merges its rows into the
// contact list.
func (h *ContactHandler) ImportContacts(c *gin.Context) {
	header, err := h.Uploads.formFile(c, "file")
	if err != nil {
		respondError(c, err, "Error procesando archivo")
		return
	}
	if header == nil {
		respondError(c, invalid("No se encontró archivo"), "")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err, "Error procesando archivo")
		return
	}
	defer file.Close()

	sheet, err := spreadsheet.Read(header.Filename, file)
	if err != nil {
		respondError(c, err, "Error procesando archivo")
		return
	}

	res, err := h.Store.Import(c.Request.Context(), sheet.Maps())
	if err != nil {
		respondError(c, err, "Error procesando archivo")
		return
	}
	logrus.WithFields(logrus.Fields{
		"file":       header.Filename,
		"imported":   len(res.Imported),
		"duplicates": res.Duplicates,
	}).Info("Contacts imported")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Importación completada: %d contactos nuevos agregados", len(res.Imported)),
		"imported":   len(res.Imported),
		"duplicates": res.Duplicates,
		"total":      res.Total,
		"contacts":   res.Imported,
	})
}
