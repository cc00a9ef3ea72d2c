package main

import (
	"os"

	"github.com/sagarc03/hashdrop/clientcli"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <hash> [hash...]",
	Aliases: []string{"rm"},
	Short:   "Delete resources",
	Long: `Delete one or more resources by hash.

You can delete resources you created. Anonymous resources can be deleted
by anyone who knows the hash.

Deletion continues on error; failed hashes are reported at the end and
the command exits non-zero if any deletion failed.

Examples:
  hashdrop-cli delete ab12cd34
  hashdrop-cli delete ab12cd34 ef56ab78 cd90ef12`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{Hashes: args})
	if err != nil {
		return handleError(err)
	}

	formatter := getFormatter()
	if err := formatter.FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
