package main

import (
	"os"

	"github.com/sagarc03/hashdrop/clientcli"
	"github.com/spf13/cobra"
)

var (
	listPage     int
	listPageSize int
	listAll      bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your resources",
	Long: `List resources you created, newest first.

Requires a bearer token: configure one with 'hashdrop-cli configure add',
set HASHDROP_TOKEN, or pass --token.

Examples:
  hashdrop-cli list
  hashdrop-cli list --page 2 --page-size 50
  hashdrop-cli list --all --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 20, "results per page")
	listCmd.Flags().BoolVar(&listAll, "all", false, "fetch all pages")
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{
		Page:     listPage,
		PageSize: listPageSize,
		All:      listAll,
	})
	if err != nil {
		return handleError(err)
	}

	formatter := getFormatter()
	return formatter.FormatList(os.Stdout, result)
}
