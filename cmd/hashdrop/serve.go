package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/auth"
	"github.com/sagarc03/hashdrop/config"
	"github.com/sagarc03/hashdrop/database"
	"github.com/sagarc03/hashdrop/filesystem"
	hashdrophttp "github.com/sagarc03/hashdrop/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the hashdrop HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 5709)")
	serveCmd.Flags().String("issuer", "", "identity provider base URL for bearer token verification")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	if cfg.Auth.Issuer == "" {
		return errors.New("auth.issuer is required to verify bearer tokens")
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	defer func() { _ = root.Close() }()

	store := filesystem.NewPayloadStore(root)

	service, err := hashdrop.NewService(repo, store, hashdrop.ServiceConfig{
		TTL: hashdrop.TTLPolicy{
			AnonFile: cfg.TTL.AnonFile,
			AnonURL:  cfg.TTL.AnonURL,
			AuthFile: cfg.TTL.AuthFile,
			AuthURL:  cfg.TTL.AuthURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	keys := auth.NewKeySetCache(auth.KeySetCacheConfig{
		IssuerURL:    cfg.Auth.Issuer,
		TTL:          cfg.Auth.KeySetTTL,
		FetchTimeout: cfg.Auth.FetchTimeout,
	})

	verifier := auth.NewVerifier(keys, auth.VerifierConfig{
		Issuer: cfg.Auth.Issuer,
		Leeway: cfg.Auth.Leeway,
	})

	resolver := auth.NewResolver(verifier)

	// Warm the key set so the first request doesn't pay the fetch.
	if _, err := keys.Keys(ctx); err != nil {
		slog.Warn("initial key set fetch failed, will retry on demand", "err", err)
	}

	handlerConfig := hashdrophttp.HandlerConfig{
		Resolver:       resolver,
		CORS:           cfg.CORS,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}

	handler := hashdrophttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "issuer", cfg.Auth.Issuer)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
