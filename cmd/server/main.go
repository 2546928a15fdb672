package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/api"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/config"
)

// AppConfig holds process-level settings read with cleanenv. Service-level
// settings come from config.WithEnv.
type AppConfig struct {
	LogLevel        string `env:"LOG_LEVEL" env-default:"info"`
	LogJSON         bool   `env:"LOG_JSON" env-default:"true"`
	EnableCORS      bool   `env:"ENABLE_CORS" env-default:"false"`
	ShutdownSeconds int    `env:"SHUTDOWN_SECONDS" env-default:"10"`
}

func main() {
	var appCfg AppConfig
	if err := cleanenv.ReadEnv(&appCfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(appCfg)
	slog.SetDefault(logger)

	serverCfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		logger.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}
	if serverCfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	if serverCfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(serverCfg.DatabaseURL); err != nil {
			logger.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
	}

	svc, err := serverCfg.BuildService(logger)
	if err != nil {
		logger.Error("Failed to build media service", "err", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverCfg.Port),
		Handler: routes(svc, serverCfg, appCfg, logger),
	}

	go func() {
		logger.Info("Detection media server starting",
			"port", serverCfg.Port,
			"environment", serverCfg.Environment,
			"upload_dir", serverCfg.UploadDir,
			"database", serverCfg.DatabaseType)

		toolchain := svc.CheckToolchain()
		if !toolchain.FFmpegAvailable {
			logger.Warn("ffmpeg unavailable, video clips degrade to verbatim copies",
				"probe_error", toolchain.FFmpegProbeError)
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(appCfg.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}

func newLogger(cfg AppConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func routes(svc mediastore.Service, serverCfg *config.ServerConfig, appCfg AppConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	if appCfg.EnableCORS {
		r.Use(corsMiddleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Stored artifacts are served as static files under the URL prefix.
	prefix := strings.TrimSuffix(serverCfg.URLPrefix, "/")
	r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(serverCfg.UploadDir))))

	tokenAuth := jwtauth.New("HS256", []byte(serverCfg.JWTSecret), nil)
	mediaHandler := api.NewMediaHandler(svc, logger)

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Use(api.ActorFromToken)
		r.Mount("/", mediaHandler.Routes())
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
