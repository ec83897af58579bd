package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rate limit usage and circuit breaker state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			stats, err := app.gateway.UsageStats(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			healthy := app.gateway.HealthCheck(cmd.Context())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStats(stats, healthy))
			return err
		},
	}

	cmd.Flags().Bool("json", false, "print stats as JSON")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether remote extraction is available",
		Long: `Check whether remote extraction is available without calling the model.
Exits non-zero when the gateway would answer with fallback rules only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if !app.gateway.HealthCheck(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError("remote extraction unavailable ("+app.gateway.Provider()+")"))
				return errors.New("unhealthy")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("remote extraction available ("+app.gateway.Provider()+" "+app.gateway.ModelName()+")"))
			return err
		},
	}
}
