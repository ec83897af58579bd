package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/spf13/cobra"
)

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt <image>",
		Short: "Extract vendor, total and items from a receipt photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mimeType, _ := cmd.Flags().GetString("mime")
			asJSON, _ := cmd.Flags().GetBool("json")

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if mimeType == "" {
				mimeType = detectImageType(args[0], raw)
			}

			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			receipt, err := app.gateway.ScanReceipt(cmd.Context(), base64.StdEncoding.EncodeToString(raw), mimeType)
			if err != nil {
				return common.NewUserError("could not scan that receipt", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), receipt)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReceipt(receipt))
			return err
		},
	}

	cmd.Flags().String("mime", "", "image type (default: detected from the file)")
	cmd.Flags().Bool("json", false, "print the receipt as JSON")
	return cmd
}

// detectImageType prefers the file extension and falls back to content sniffing.
func detectImageType(path string, raw []byte) string {
	if t, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return http.DetectContentType(raw)
}
