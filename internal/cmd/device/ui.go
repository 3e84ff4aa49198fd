package device

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
)

// KillCommand returns the kill command.
func KillCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "kill",
		Short:        "Kill all running apps.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.Device(cmd.Context())
			if err != nil {
				return err
			}
			killed, err := d.KillAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, origin := range killed {
				log.Debug().Str("origin", origin).Msg("Killed")
			}
			log.Info().Msg("Killed all apps")
			return nil
		},
	}
}

// RecssCommand returns the recss command.
func RecssCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "recss",
		Short:        "Reload all stylesheets.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.Device(cmd.Context())
			if err != nil {
				return err
			}
			if err := d.ReloadCSS(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("Reset CSS")
			return nil
		},
	}
}
