// Package main runs the SkillMap development server: accounts, résumé
// analysis with a template analyzer, and goal progress storage, serving
// the same HTTP API as the production backend.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/config"
	"github.com/atinyakov/SkillMap/internal/db"
	"github.com/atinyakov/SkillMap/internal/logger"
	"github.com/atinyakov/SkillMap/internal/repository"
	"github.com/atinyakov/SkillMap/internal/server/handler/http"
	"github.com/atinyakov/SkillMap/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.DefaultServer()
	options.Bind(pflag.CommandLine)
	pflag.Parse()
	if err := config.LoadServer(options, pflag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the database.
	conn, err := db.Open(ctx, options.DBBackend, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()
	if err := repository.Migrate(ctx, conn); err != nil {
		zapLogger.Fatal("cannot migrate database", zap.Error(err))
	}

	secret := options.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		zapLogger.Warn("no jwt secret configured, tokens will not survive a restart")
	}

	// Initialize repositories and business-logic services.
	authService := service.NewAuthService(repository.NewSQLAuthRepository(conn), []byte(secret), options.TokenTTL)
	progressService := service.NewProgressService(repository.NewSQLProgressRepository(conn))

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService},
		&http.ResumeHandler{Analyzer: service.TemplateAnalyzer{}, MaxBytes: options.MaxUploadBytes},
		&http.ProgressHandler{ProgressService: progressService},
		authService,
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Addr),
		zap.String("db", options.DBBackend),
		zap.Bool("tls", options.TLSCert != ""),
	)
	if options.TLSCert != "" {
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
