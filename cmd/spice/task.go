package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/spf13/cobra"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task <text>",
		Short: "Extract a to-do item from a message",
		Long: `Extract a task with its due date, priority and recurrence, for example:

  spice task "remind me to pay rent every month, urgent"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			task, err := app.gateway.ParseTaskText(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return common.NewUserError("could not parse that task", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), task)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTask(task))
			return err
		},
	}

	cmd.Flags().Bool("json", false, "print the task as JSON")
	return cmd
}
