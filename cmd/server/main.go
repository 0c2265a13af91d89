package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AJ-AI23/verjson-sub008/internal/config"
	"github.com/AJ-AI23/verjson-sub008/internal/handler"
	"github.com/AJ-AI23/verjson-sub008/internal/logger"
	"github.com/AJ-AI23/verjson-sub008/internal/merge"
	"github.com/AJ-AI23/verjson-sub008/internal/middleware"
	"github.com/AJ-AI23/verjson-sub008/internal/registry"
	"github.com/AJ-AI23/verjson-sub008/internal/repository"
	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/internal/session"
	"github.com/AJ-AI23/verjson-sub008/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	if cfg.Server.Env == "development" {
		log = logger.NewConsole(cfg.Logging.Level)
	}

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to CouchDB")
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to check database existence")
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			log.Fatal().Err(err).Msg("failed to create database")
		}
		log.Info().Str("database", cfg.Database.Name).Msg("created database")
	}

	versionRepo := repository.NewVersionRepository(client, cfg.Database.Name)
	documentRepo := repository.NewDocumentRepository(client, cfg.Database.Name)

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load conflict registry")
	}
	resolver := merge.NewResolver(reg)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxSubsPerConn,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		log,
	)
	go wsManager.Run()

	versionService := service.NewVersionService(versionRepo, documentRepo, wsManager, log)
	importService := service.NewImportService(documentRepo, versionService, resolver, log)

	sessionCache, err := session.NewCache(cfg.Session.Capacity, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session cache")
	}
	reconciler := session.NewReconciler(versionService, sessionCache)
	sessionService := service.NewSessionService(sessionCache, reconciler, documentRepo, versionService, log)

	wsMessageHandler := handler.NewWebSocketMessageHandler(wsManager, sessionService, log)
	wsManager.SetMessageHandler(wsMessageHandler)

	versionHandler := handler.NewVersionHandler(versionService)
	importHandler := handler.NewImportHandler(importService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, log)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/documents/{documentId}/versions", versionHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/versions", versionHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/versions/latest", versionHandler.Latest).Methods("GET", "OPTIONS")
	api.HandleFunc("/versions/{id}", versionHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/versions/{id}", versionHandler.UpdateFlags).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/versions/{id}", versionHandler.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/documents/{documentId}/import/preview", importHandler.Preview).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/import/confirm", importHandler.Confirm).Methods("POST", "OPTIONS")

	api.HandleFunc("/documents/{documentId}/session", sessionHandler.Open).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/session", sessionHandler.Discard).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/session/edits", sessionHandler.Edit).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/session/commit", sessionHandler.Commit).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/session/stale", sessionHandler.CheckStale).Methods("GET", "OPTIONS")
	api.HandleFunc("/documents/{documentId}/session/stale", sessionHandler.ResolveStale).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"verjson"}`))
}
