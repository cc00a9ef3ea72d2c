package main

import (
	"os"

	"github.com/sagarc03/hashdrop/clientcli"
	"github.com/spf13/cobra"
)

var shortenDescription string

var shortenCmd = &cobra.Command{
	Use:   "shorten <url>",
	Short: "Shorten a URL",
	Long: `Shorten a URL and get back a share link.

The server returns a short hash; anyone with the share link is redirected
to the original URL until it expires.

Examples:
  hashdrop-cli shorten https://example.com/very/long/path
  hashdrop-cli shorten https://example.com -d "team wiki"
  hashdrop-cli shorten https://example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShorten,
}

func init() {
	shortenCmd.Flags().StringVarP(&shortenDescription, "description", "d", "", "description for the shortened URL")
}

func runShorten(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	result, err := client.Shorten(cmd.Context(), clientcli.ShortenOptions{
		URL:         args[0],
		Description: shortenDescription,
	})
	if err != nil {
		return handleError(err)
	}

	formatter := getFormatter()
	return formatter.FormatShorten(os.Stdout, result)
}
