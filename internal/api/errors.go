package api

import (
	"errors"
	"net/http"

	"whatsapp-bulk-sender/internal/dispatch"
	"whatsapp-bulk-sender/internal/spreadsheet"
	"whatsapp-bulk-sender/internal/store"
	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// ValidationError is a request that is missing or has malformed fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

const msgNotReady = "Cliente de WhatsApp no está listo"

// respondError writes the {error} body for err. Errors without a specific
// mapping are reported as 500 with fallback as prefix.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, whatsapp.ErrNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNotReady})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Este número ya existe en los contactos"})
	case errors.Is(err, store.ErrInvalidContact):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nombre y teléfono son requeridos"})
	case errors.Is(err, dispatch.ErrNoTargets):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Debe seleccionar al menos un contacto"})
	case errors.Is(err, dispatch.ErrNoMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensaje es requerido"})
	case errors.Is(err, whatsapp.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Número de teléfono inválido"})
	case errors.Is(err, whatsapp.ErrNotImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo enviado no es una imagen"})
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato de archivo no soportado, usa CSV o Excel (.xlsx)"})
	case errors.Is(err, spreadsheet.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo no tiene encabezados"})
	case errors.Is(err, errUploadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "El archivo supera el tamaño máximo permitido"})
	case errors.Is(err, whatsapp.ErrLabelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Etiqueta no encontrada"})
	case errors.Is(err, dispatch.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Ya hay un envío masivo en curso"})
	case errors.Is(err, store.ErrCorrupted):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "El archivo de contactos está dañado y no se modificó; revísalo antes de continuar"})
	case errors.Is(err, store.ErrIO):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error de almacenamiento: " + err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback + ": " + err.Error()})
	}
}
