package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/config"
	"github.com/sagarc03/hashdrop/database"
	"github.com/sagarc03/hashdrop/filesystem"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Remove expired resources",
	Long: `Permanently remove expired resources.

This command removes every mapping row whose expiration time has passed
and releases the file payloads those rows reference. Shortened URLs carry
no payload, so only their rows are removed.

Run this periodically to keep the mapping table and payload storage from
growing without bound.`,
	RunE: runReap,
}

var reapBatchSize int

func init() {
	reapCmd.Flags().IntVar(&reapBatchSize, "batch-size", 100, "number of expired resources to process per batch")
	rootCmd.AddCommand(reapCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	if _, err := os.Stat(cfg.Storage.Path); os.IsNotExist(err) {
		return fmt.Errorf("storage directory does not exist: %s", cfg.Storage.Path)
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

	slog.Info("starting reap", "batch_size", reapBatchSize)

	reaped, err := service.Reap(ctx, reapBatchSize)
	if err != nil {
		return fmt.Errorf("reap: %w", err)
	}

	slog.Info("reap complete", "resources_removed", reaped)
	return nil
}
