package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Asjal001/saferoute/internal/config"
	"github.com/Asjal001/saferoute/internal/handler"
	"github.com/Asjal001/saferoute/internal/services/geolocate"
	"github.com/Asjal001/saferoute/internal/services/predict"
	"github.com/Asjal001/saferoute/internal/session"
	"github.com/Asjal001/saferoute/web"
)

const sessionIdleTimeout = 30 * time.Minute

func Run() error {
	cfg := config.Load()

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	predictService := predict.NewService(cfg.PredictURL)
	geoService := geolocate.NewService(cfg.GeoURL)

	store := session.NewStore(predictService, geoService, session.Options{
		NoticeTTL: cfg.NoticeTTL,
	})
	store.StartSweeper(context.Background(), sessionIdleTimeout)

	assessmentHandler := handler.NewAssessmentHandler(store)

	// Initialize router
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	// API v1 subrouter
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/weather-options", handler.GetWeatherOptions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", assessmentHandler.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", assessmentHandler.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/fields", assessmentHandler.EditField).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/locate", assessmentHandler.Locate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/time-mode", assessmentHandler.SetTimeMode).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/assess", assessmentHandler.Assess).Methods(http.MethodPost)

	// Embedded page shell, registered last so API routes win
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("failed to load embedded assets: %w", err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	var h http.Handler = r

	// Recovery (catches panics)
	h = handlers.RecoveryHandler()(h)

	// CORS
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)

	// Logging
	h = handlers.LoggingHandler(os.Stdout, h)

	slog.Info("starting saferoute client", "predict_url", cfg.PredictURL)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: h,
	}

	return startServer(server)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func startServer(server *http.Server) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverError := make(chan error, 1)

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case err := <-serverError:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			_ = server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		slog.Info("server stopped gracefully")
	}

	return nil
}
