package main

import (
	"fmt"

	"github.com/Veraticus/spice-gateway/internal/cli"
	"github.com/spf13/cobra"
)

func breakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect or reset the provider circuit breaker",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the circuit breaker state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			state, err := app.gateway.BreakerState(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", state.Provider, cli.RenderBreaker(state))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Close the circuit breaker immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.gateway.ResetCircuitBreaker(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset circuit breaker: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Circuit breaker closed"))
			return err
		},
	})

	return cmd
}
