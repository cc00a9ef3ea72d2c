package main

import (
	"os"

	"github.com/sagarc03/hashdrop/clientcli"
	"github.com/spf13/cobra"
)

var (
	uploadDescription string
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file",
	Long: `Upload a file and get back a share link.

The content type is detected from the file extension unless --content-type
is given.

Examples:
  hashdrop-cli upload ./report.pdf
  hashdrop-cli upload ./notes.txt -d "meeting notes"
  hashdrop-cli upload ./dump.bin --content-type application/octet-stream`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadDescription, "description", "d", "", "description for the uploaded file")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "content type (default: detect from extension)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleError(err)
	}

	result, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		ContentType: uploadContentType,
		Description: uploadDescription,
	})
	if err != nil {
		return handleError(err)
	}

	formatter := getFormatter()
	return formatter.FormatUpload(os.Stdout, result)
}
