package main

import (
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Resolve a shortened URL",
	Long: `Resolve a shortened URL hash to its original URL without following it.

Examples:
  hashdrop-cli get ab12cd34
  hashdrop-cli get ab12cd34 --quiet    # print only the URL
  hashdrop-cli get ab12cd34 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	result, err := client.Resolve(cmd.Context(), args[0])
	if err != nil {
		return handleError(err)
	}

	formatter := getFormatter()
	return formatter.FormatResolve(os.Stdout, result)
}
