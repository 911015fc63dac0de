package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-bulk-sender/internal/api"
	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/dispatch"
	"whatsapp-bulk-sender/internal/logging"
	"whatsapp-bulk-sender/internal/store"
	"whatsapp-bulk-sender/internal/whatsapp"
	"whatsapp-bulk-sender/internal/ws"

	"github.com/sirupsen/logrus"
)

const (
	autoConnectDelay = time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	cfg := config.LoadConfig()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	client := whatsapp.NewClient(whatsapp.Options{
		SessionDir:  cfg.SessionDir,
		InitTimeout: cfg.InitTimeout,
		MaxBackoff:  cfg.MaxBackoff,
		PrintQR:     cfg.QRTerminal,
	})
	client.Subscribe(func(snap whatsapp.Snapshot) {
		hub.NotifyStatus(map[string]interface{}{
			"status":  snap.Status,
			"isReady": snap.Ready,
			"hasQR":   snap.HasQR(),
		})
	})

	dispatcher := dispatch.New(client)
	dispatcher.OnProgress(func(p dispatch.Progress) { hub.NotifyProgress(p) })

	router := api.NewRouter(api.Deps{
		Config:     cfg,
		Store:      st,
		Client:     client,
		Dispatcher: dispatcher,
		Hub:        hub,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to run server")
		}
	}()

	if cfg.AutoConnect {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(autoConnectDelay):
				if client.Start() {
					logrus.Info("WhatsApp client starting")
				}
			}
		}()
	}

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	client.Close()
	if err := st.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close store")
	}
	logrus.Info("Bye")
}
