package main

import (
	"fmt"
	"sort"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/Veraticus/spice-gateway/internal/storage"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent gateway invocations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			counts, _ := cmd.Flags().GetBool("counts")

			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			out := cmd.OutOrStdout()
			if counts {
				byStatus, err := app.db.AuditCounts(cmd.Context())
				if err != nil {
					return err
				}
				statuses := make([]string, 0, len(byStatus))
				for status := range byStatus {
					statuses = append(statuses, string(status))
				}
				sort.Strings(statuses)
				for _, status := range statuses {
					if _, err := fmt.Fprintf(out, "%-10s %d\n", status, byStatus[model.AuditStatus(status)]); err != nil {
						return err
					}
				}
				return nil
			}

			records, err := app.db.ListAudit(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, cli.RenderAudit(records))
			return err
		},
	}

	cmd.Flags().Int("limit", storage.DefaultAuditLimit, "number of records to show")
	cmd.Flags().Bool("counts", false, "show totals per status instead of records")
	return cmd
}
