// Package setup implements the commands that prepare a freshly flashed device.
package setup

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/cmd/install"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/msg"
)

// UserPrefsPath is where B2G reads custom preferences from.
const UserPrefsPath = "/data/local/user.js"

// Options are the options of the setup command.
type Options struct {
	WifiSSID    string   `mapstructure:"wifi_ssid"`
	WifiKey     string   `mapstructure:"wifi_key"`
	WifiPass    string   `mapstructure:"wifi_pass"`
	Apps        []string `mapstructure:"apps"`
	CustomPrefs string   `mapstructure:"custom_prefs"`
}

// network returns the Wi-Fi network to join, or nil when none is configured.
func (o Options) network() (*gaia.Network, error) {
	if o.WifiSSID == "" {
		return nil, nil
	}
	if o.WifiKey == "" || o.WifiPass == "" {
		return nil, errors.New(msg.MissingWifiOptions)
	}
	n, err := gaia.NewNetwork(o.WifiSSID, o.WifiKey, o.WifiPass)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Command returns the setup command.
func Command(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "setup",
		Short:        "Set up a flashed device for usage",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts Options
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			return setup(cmd.Context(), app, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("wifi_ssid", "", "WiFi SSID to connect to")
	flags.String("wifi_key", "", "WiFi key management. Options: WPA-PSK, WEP.")
	flags.String("wifi_pass", "", "WiFi password")
	flags.StringSlice("apps", nil, "App manifest URLs to install on the device at boot.")
	flags.String("custom_prefs", "ezboot/custom-prefs.js",
		"Custom JS prefs file to copy into "+UserPrefsPath+". Existing user.js is not preserved.")

	return cmd
}

func setup(ctx context.Context, app *cmds.App, opts Options) error {
	network, err := opts.network()
	if err != nil {
		return app.Errorf("%v", err)
	}

	// Prefs alone do not need a running UI.
	if len(opts.Apps) > 0 || network != nil {
		if err := prepare(ctx, app, network, opts.Apps); err != nil {
			return err
		}
	}

	return pushPrefs(ctx, app, opts.CustomPrefs)
}

// prepare restarts B2G into a clean, unlocked state, joins network if given and installs apps.
func prepare(ctx context.Context, app *cmds.App, network *gaia.Network, apps []string) error {
	d, err := app.Restart(ctx)
	if err != nil {
		log.Warn().Msg(msg.DesktopB2GRunning)
		return err
	}
	log.Info().Msg("B2G restarted")

	if _, err := d.KillAll(ctx); err != nil {
		return err
	}
	if err := d.Unlock(ctx); err != nil {
		return err
	}

	if network != nil {
		log.Info().Str("ssid", network.SSID).Msg("Configuring WiFi")
		if err := d.EnableWifi(ctx); err != nil {
			return err
		}
		if err := d.ConnectToWifi(ctx, *network); err != nil {
			return err
		}
	}

	installApps(ctx, app, d, apps)
	return nil
}

// installApps installs every manifest. Failures are logged and skipped.
func installApps(ctx context.Context, app *cmds.App, d *gaia.Device, manifests []string) {
	for _, m := range manifests {
		if err := install.Install(ctx, app, d, install.Options{Manifest: m}); err != nil {
			log.Warn().Err(err).Str("manifest", m).Msg("Failed to install app")
		}
	}
}

// pushPrefs replaces the device's user.js with path while B2G is stopped. B2G is started again even if
// the push fails. A missing file is skipped.
func pushPrefs(ctx context.Context, app *cmds.App, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Debug().Str("path", path).Msg("No custom prefs to push")
		return nil
	}

	log.Info().Msgf("Pushing custom prefs from %s", path)
	_ = app.Close()
	if err := app.ADB.StopB2G(ctx); err != nil {
		return err
	}
	pushErr := app.ADB.Push(ctx, path, UserPrefsPath)
	startErr := app.ADB.StartB2G(ctx)
	if err := errors.Join(pushErr, startErr); err != nil {
		return err
	}
	log.Info().Msg("Your device is rebooting.")
	return nil
}
