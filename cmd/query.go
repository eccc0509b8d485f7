package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecitizenpay/internal/config"
	"ecitizenpay/internal/payment"
)

func queryCmd(logger *zap.Logger) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query [checkout-request-id]",
		Short: "Ask M-Pesa for the status of an STK push",
		Long: `Ask the Daraja STK query endpoint for the current status of a push.

Examples:
  ecitizenpay query ws_CO_05032024100809123456
  ecitizenpay query ws_CO_05032024100809123456 --timeout 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := payment.NewClient(cfg.Mpesa, logger)
			res, err := client.QueryStatus(ctx, args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 45*time.Second, "overall deadline for token and query calls")
	return cmd
}
