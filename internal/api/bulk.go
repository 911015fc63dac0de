package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"whatsapp-bulk-sender/internal/dispatch"
	"whatsapp-bulk-sender/internal/models"
	"whatsapp-bulk-sender/internal/spreadsheet"
	"whatsapp-bulk-sender/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// spreadsheetDelay is the pause used by /api/send-bulk when the request does
// not set one.
const spreadsheetDelay = 2

type BulkHandler struct {
	Client       Messenger
	Store        store.Store
	Dispatcher   *dispatch.Dispatcher
	Uploads      Uploads
	DefaultDelay int
}

func NewBulkHandler(client Messenger, s store.Store, d *dispatch.Dispatcher, uploads Uploads, defaultDelay int) *BulkHandler {
	if defaultDelay <= 0 {
		defaultDelay = models.DefaultMessageDelay
	}
	return &BulkHandler{Client: client, Store: s, Dispatcher: d, Uploads: uploads, DefaultDelay: defaultDelay}
}

// bulkRequest is accepted as JSON or as multipart fields next to an image.
// In multipart form selectedContacts is either repeated or a JSON array.
type bulkRequest struct {
	Message          string          `json:"message"`
	MessageDelay     any             `json:"messageDelay"`
	SelectedContacts json.RawMessage `json:"selectedContacts"`
}

type whatsappTarget struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Phone flexString `json:"phone"`
}

func bindBulkRequest(c *gin.Context) (bulkRequest, error) {
	var req bulkRequest
	if isJSON(c) {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, invalid("Solicitud inválida: " + err.Error())
		}
		return req, nil
	}

	req.Message = c.PostForm("message")
	if v, ok := c.GetPostForm("messageDelay"); ok {
		req.MessageDelay = v
	}
	selected := c.PostFormArray("selectedContacts")
	switch {
	case len(selected) == 1 && strings.HasPrefix(strings.TrimSpace(selected[0]), "["):
		req.SelectedContacts = json.RawMessage(selected[0])
	case len(selected) > 0:
		raw, err := json.Marshal(selected)
		if err != nil {
			return req, err
		}
		req.SelectedContacts = raw
	}
	return req, nil
}

func (r bulkRequest) contactIDs() ([]string, error) {
	if len(r.SelectedContacts) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(r.SelectedContacts, &ids); err != nil {
		return nil, invalid("selectedContacts debe ser una lista de IDs")
	}
	return ids, nil
}

func (r bulkRequest) whatsappTargets() ([]whatsappTarget, error) {
	if len(r.SelectedContacts) == 0 {
		return nil, nil
	}
	var targets []whatsappTarget
	if err := json.Unmarshal(r.SelectedContacts, &targets); err != nil {
		return nil, invalid("selectedContacts debe ser una lista de contactos")
	}
	return targets, nil
}

// delay resolves messageDelay against the saved settings.
func (h *BulkHandler) delay(ctx context.Context, value any) time.Duration {
	fallback := h.DefaultDelay
	if settings, err := h.Store.LoadSettings(ctx); err == nil {
		fallback = settings.MessageDelay
	} else {
		logrus.WithError(err).Warn("Using default message delay")
	}
	return time.Duration(models.ParseMessageDelay(value, fallback)) * time.Second
}

// optionalImage saves the "image" part, if any, for the dispatcher to consume.
func (h *BulkHandler) optionalImage(c *gin.Context, prefix string) (string, error) {
	header, err := h.Uploads.formFile(c, "image")
	if err != nil || header == nil {
		return "", err
	}
	return h.Uploads.save(c, header, prefix)
}

// run executes the batch detached from the request context so a closed
// browser tab does not cut it short.
func (h *BulkHandler) run(c *gin.Context, batch dispatch.Batch) {
	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := h.Dispatcher.Run(ctx, batch)
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Envío completado: %d exitosos, %d errores", summary.SuccessCount, summary.ErrorCount),
		"results":      summary.Results,
		"successCount": summary.SuccessCount,
		"errorCount":   summary.ErrorCount,
		"total":        summary.Total,
	})
}

func contactTargets(contacts []models.Contact) []dispatch.Target {
	targets := make([]dispatch.Target, 0, len(contacts))
	for _, contact := range contacts {
		targets = append(targets, dispatch.Target{Phone: contact.Phone, Name: contact.Name})
	}
	return targets
}

// SendBulkSelected sends to the stored contacts listed in selectedContacts.
func (h *BulkHandler) SendBulkSelected(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	req, err := bindBulkRequest(c)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, dispatch.ErrNoMessage, "")
		return
	}
	ids, err := req.contactIDs()
	if err != nil {
		respondError(c, err, "")
		return
	}
	if len(ids) == 0 {
		respondError(c, dispatch.ErrNoTargets, "")
		return
	}

	ctx := c.Request.Context()
	all, err := h.Store.List(ctx)
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	selected := store.FilterByIDs(all, ids)
	if len(selected) == 0 {
		respondError(c, invalid("No se encontraron contactos válidos"), "")
		return
	}

	image, err := h.optionalImage(c, "bulk")
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	h.run(c, dispatch.Batch{
		Targets:   contactTargets(selected),
		Template:  req.Message,
		ImagePath: image,
		Delay:     h.delay(ctx, req.MessageDelay),
	})
}

// SendBulkAdvanced sends to every stored contact.
func (h *BulkHandler) SendBulkAdvanced(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	req, err := bindBulkRequest(c)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, dispatch.ErrNoMessage, "")
		return
	}

	ctx := c.Request.Context()
	contacts, err := h.Store.List(ctx)
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	if len(contacts) == 0 {
		respondError(c, invalid("No hay contactos guardados"), "")
		return
	}

	image, err := h.optionalImage(c, "bulk")
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	h.run(c, dispatch.Batch{
		Targets:   contactTargets(contacts),
		Template:  req.Message,
		ImagePath: image,
		Delay:     h.delay(ctx, req.MessageDelay),
	})
}

// SendBulkWhatsApp sends to address book contacts picked in the UI; their
// ids are already addresses.
func (h *BulkHandler) SendBulkWhatsApp(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	req, err := bindBulkRequest(c)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, dispatch.ErrNoMessage, "")
		return
	}
	picked, err := req.whatsappTargets()
	if err != nil {
		respondError(c, err, "")
		return
	}
	if len(picked) == 0 {
		respondError(c, dispatch.ErrNoTargets, "")
		return
	}

	targets := make([]dispatch.Target, 0, len(picked))
	for _, p := range picked {
		targets = append(targets, dispatch.Target{Phone: p.Phone.String(), Name: p.Name, Address: p.ID})
	}

	image, err := h.optionalImage(c, "whatsapp_bulk")
	if err != nil {
		respondError(c, err, "Error en envío masivo")
		return
	}
	h.run(c, dispatch.Batch{
		Targets:   targets,
		Template:  req.Message,
		ImagePath: image,
		Delay:     h.delay(c.Request.Context(), req.MessageDelay),
	})
}

// SendBulk sends the per-row messages of an uploaded spreadsheet. The rows
// are not added to the contact list.
func (h *BulkHandler) SendBulk(c *gin.Context) {
	if err := requireReady(h.Client); err != nil {
		respondError(c, err, "")
		return
	}
	header, err := h.Uploads.formFile(c, "excel")
	if err != nil {
		respondError(c, err, "Error procesando archivo")
		return
	}
	if header == nil {
		respondError(c, invalid("No se encontró archivo Excel"), "")
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
	rows := sheet.MessageRows()
	if len(rows) == 0 {
		respondError(c, invalid("El archivo no contiene filas con teléfono"), "")
		return
	}

	targets := make([]dispatch.Target, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, dispatch.Target{Phone: row.Phone, Name: row.Name, Message: row.Message})
	}

	delay := spreadsheetDelay
	if v, ok := c.GetPostForm("messageDelay"); ok {
		delay = models.ParseMessageDelay(v, spreadsheetDelay)
	}
	h.run(c, dispatch.Batch{
		Targets:   targets,
		Delay:     time.Duration(delay) * time.Second,
		PerTarget: true,
	})
}
