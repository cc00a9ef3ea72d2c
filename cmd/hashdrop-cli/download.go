package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sagarc03/hashdrop/clientcli"
	"github.com/spf13/cobra"
)

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <hash> [local-path]",
	Short: "Download a file",
	Long: `Download a file by hash.

Without a local path, the filename suggested by the server is used.
With --stdout (or a local path of "-"), the content is written to stdout
and any metadata goes to stderr.

Examples:
  hashdrop-cli download ab12cd34
  hashdrop-cli download ab12cd34 ./report.pdf
  hashdrop-cli download ab12cd34 -o ./downloads/report.pdf
  hashdrop-cli download ab12cd34 --stdout | gzip > report.gz`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "local path to write to")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write content to stdout")
}

func runDownload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	localPath := downloadOutput
	if localPath == "" && len(args) > 1 {
		localPath = args[1]
	}
	if downloadStdout {
		localPath = "-"
	}

	result, body, err := client.Download(cmd.Context(), clientcli.DownloadOptions{
		Hash:      args[0],
		LocalPath: localPath,
	})
	if err != nil {
		return handleError(err)
	}

	// Stream to stdout, metadata to stderr so pipes stay clean
	if body != nil {
		written, copyErr := io.Copy(os.Stdout, body)
		_ = body.Close()
		if copyErr != nil {
			return handleError(fmt.Errorf("write to stdout: %w", copyErr))
		}
		result.Size = written

		formatter := getFormatter()
		return formatter.FormatDownload(os.Stderr, result)
	}

	formatter := getFormatter()
	return formatter.FormatDownload(os.Stdout, result)
}
