package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/dispatch"
	"whatsapp-bulk-sender/internal/logging"
	"whatsapp-bulk-sender/internal/store"
	"whatsapp-bulk-sender/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators wired into the router.
type Deps struct {
	Config     *config.Config
	Store      store.Store
	Client     Messenger
	Dispatcher *dispatch.Dispatcher
	Hub        *ws.Hub
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	r.MaxMultipartMemory = d.Config.MaxUploadBytes()

	uploads := Uploads{Dir: d.Config.UploadDir, MaxBytes: d.Config.MaxUploadBytes()}
	connectionHandler := NewConnectionHandler(d.Client)
	contactHandler := NewContactHandler(d.Store, uploads)
	configHandler := NewConfigHandler(d.Store, d.Config.DefaultDelay)
	messageHandler := NewMessageHandler(d.Client, uploads)
	bulkHandler := NewBulkHandler(d.Client, d.Store, d.Dispatcher, uploads, d.Config.DefaultDelay)
	whatsappHandler := NewWhatsAppHandler(d.Client)

	r.GET("/", serveIndex(d.Config.PublicDir))
	if d.Hub != nil {
		r.GET("/ws", gin.WrapF(d.Hub.ServeWs))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", connectionHandler.GetStatus)
		apiGroup.GET("/qr", connectionHandler.GetQR)
		apiGroup.POST("/initialize", connectionHandler.Initialize)

		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts/add", contactHandler.AddContact)
		apiGroup.DELETE("/contacts/delete", contactHandler.DeleteContacts)
		apiGroup.POST("/contacts/import", contactHandler.ImportContacts)

		apiGroup.GET("/config", configHandler.GetConfig)
		apiGroup.POST("/config", configHandler.SaveConfig)

		apiGroup.POST("/send-message", messageHandler.SendMessage)
		apiGroup.POST("/send-image", messageHandler.SendImage)

		apiGroup.POST("/send-bulk-selected", bulkHandler.SendBulkSelected)
		apiGroup.POST("/send-bulk-advanced", bulkHandler.SendBulkAdvanced)
		apiGroup.POST("/send-bulk-whatsapp", bulkHandler.SendBulkWhatsApp)
		apiGroup.POST("/send-bulk", bulkHandler.SendBulk)

		apiGroup.GET("/whatsapp-contacts", whatsappHandler.GetContacts)
		apiGroup.GET("/whatsapp-contacts/label/:labelName", whatsappHandler.GetContactsByLabel)
	}

	r.NoRoute(serveStatic(d.Config.PublicDir))
	return r
}

func serveIndex(publicDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		index := filepath.Join(publicDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusNotFound, "index.html not found in %s", publicDir)
			return
		}
		c.File(index)
	}
}

// serveStatic serves files from publicDir for paths outside /api.
func serveStatic(publicDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			name := filepath.Join(publicDir, filepath.FromSlash(filepath.Clean("/"+c.Request.URL.Path)))
			if info, err := os.Stat(name); err == nil && !info.IsDir() {
				c.File(name)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Ruta no encontrada"})
	}
}
