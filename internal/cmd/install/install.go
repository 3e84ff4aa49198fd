// Package install implements the app installation commands.
package install

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/poll"
)

// Options are the options of the install command.
type Options struct {
	App      string `mapstructure:"app"`
	Browser  bool   `mapstructure:"browser"`
	Prod     bool   `mapstructure:"prod"`
	Manifest string `mapstructure:"manifest"`
	AppURL   string `mapstructure:"app_url"`
}

// Command returns the install command.
func Command(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "install",
		Short:        "Install an app on device using manifest file or marketplace.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts Options
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			if opts.App == "" && opts.Manifest == "" && opts.AppURL == "" {
				return app.Errorf("%s", msg.MissingInstallSource)
			}

			d, err := app.Device(cmd.Context())
			if err != nil {
				return err
			}
			return Install(cmd.Context(), app, d, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("app", "", "Name of the app you want to install from the marketplace.")
	flags.Bool("browser", false, "If you want to use marketplace in the browser.")
	flags.Bool("prod", false, "Install from Marketplace (production) instead of Marketplace Dev.")
	flags.String("manifest", "", "URL of the app's manifest file.")
	flags.String("app_url", "", "URL of the app on marketplace.")

	return cmd
}

// Install unlocks the device, closes all apps and installs the app described by opts. A manifest wins over
// a marketplace install.
func Install(ctx context.Context, app *cmds.App, d *gaia.Device, opts Options) error {
	if err := d.Unlock(ctx); err != nil {
		return err
	}
	if _, err := d.KillAll(ctx); err != nil {
		return err
	}

	if opts.Manifest != "" {
		log.Info().Str("manifest", opts.Manifest).Msg("Installing app")
		return installError(app, d.InstallManifest(ctx, opts.Manifest))
	}

	return installError(app, d.InstallFromMarketplace(ctx, gaia.MarketplaceInstall{
		App:     opts.App,
		URL:     opts.AppURL,
		Browser: opts.Browser,
		Prod:    opts.Prod,
	}))
}

// installError turns the failures an operator can act on into usage errors.
func installError(app *cmds.App, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gaia.ErrMarketplaceNotInstalled):
		return app.Errorf("%s", msg.MarketplaceMissing)
	case errors.Is(err, gaia.ErrAppNotFound):
		return app.Errorf("%s", msg.AppNotFound)
	case errors.Is(err, poll.ErrTimeout):
		log.Warn().Err(err).Msg("Installation timed out")
		return app.Errorf("%s", msg.NoInternet)
	}
	return err
}
