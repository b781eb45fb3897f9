package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/battlerelay/internal/api/response"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Status

			if err := client.Get(cmd.Context(), "/", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newAntiCheatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "anticheat",
		Short: "Show anti-cheat counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.AntiCheat

			if err := client.Get(cmd.Context(), "/api/anti-cheat/status", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
