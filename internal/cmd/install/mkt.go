package install

import (
	"context"

	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/msg"
)

// MarketplaceDevAppURL is the marketplace page of Marketplace Dev.
const MarketplaceDevAppURL = "https://marketplace-dev.allizom.org/app/marketplace"

// MarketplaceOptions are the options of the install_mkt command.
type MarketplaceOptions struct {
	Dev bool `mapstructure:"dev"`
}

// MarketplaceCommand returns the install_mkt command.
func MarketplaceCommand(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "install_mkt",
		Short:        "Install marketplace app.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts MarketplaceOptions
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			var selected []cmds.Env
			if opts.Dev {
				selected = append(selected, cmds.EnvDev)
			}

			handlers := cmds.EnvHandlers{
				cmds.EnvDev: func(ctx context.Context) error {
					d, err := app.Device(ctx)
					if err != nil {
						return err
					}
					return Install(ctx, app, d, Options{AppURL: MarketplaceDevAppURL})
				},
			}
			return handlers.Run(cmd.Context(), selected, msg.MissingMarketplaceEnv)
		},
	}
	cmd.Flags().Bool("dev", false, "Install marketplace dev.")

	return cmd
}
