package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/battlerelay/internal/api/response"
)

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players [id]",
		Short: "List joined players, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if len(args) == 1 {
				var result response.PlayerDetail
				if err := client.Get(cmd.Context(), "/api/players/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result response.Players
			if err := client.Get(cmd.Context(), "/api/players", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}
}

func newWeaponsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weapons [id]",
		Short: "List the weapon table, or show one weapon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if len(args) == 1 {
				var result response.Weapon
				if err := client.Get(cmd.Context(), "/api/shooting/weapons/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result response.Weapons
			if err := client.Get(cmd.Context(), "/api/shooting/weapons", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}
}
