package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hashdrop/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "hashdrop",
	Short:   "Hash-addressed file and URL sharing server",
	Long: `Hashdrop is a sharing server that registers files and URLs under
short content hashes with per-owner expiration windows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if cf, _ := cmd.Flags().GetString("config"); cf != "" {
			configFiles = []string{cf}
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: HASHDROP_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: hashdrop.db, env: HASHDROP_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-path", "", "payload storage directory (default: ./data, env: HASHDROP_STORAGE_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
