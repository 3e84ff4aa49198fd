package setup

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kumar303/ezboot/internal/certs"
	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/msg"
)

// CertsOptions are the options of the mkt_certs command.
type CertsOptions struct {
	CertsPath string `mapstructure:"certs_path"`
	Dev       bool   `mapstructure:"dev"`
}

// CertsCommand returns the mkt_certs command.
func CertsCommand(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mkt_certs",
		Short:        "Setup certs for packaged marketplace for testing.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts CertsOptions
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			return installCerts(cmd.Context(), app, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("certs_path", "", "Path to the directory that has dev certs.")
	flags.Bool("dev", false, "Setup certs for marketplace dev.")

	return cmd
}

func installCerts(ctx context.Context, app *cmds.App, opts CertsOptions) error {
	if opts.CertsPath == "" {
		return app.Errorf("%s", msg.MissingCertsPath)
	}
	connected, err := app.ADB.Devices(ctx)
	if err != nil {
		return err
	}
	deviceID, err := certs.DeviceID(app.Global.FlashDevice, app.Global.FlashDeviceID, connected)
	if errors.Is(err, certs.ErrUnknownDevice) {
		return app.Errorf("%v", err)
	}
	if err != nil {
		return err
	}

	var selected []cmds.Env
	if opts.Dev {
		selected = append(selected, cmds.EnvDev)
	}

	repo := certs.NewRepo(app.Global.WorkDir)
	repo.Progress = app.Stdout
	handlers := cmds.EnvHandlers{
		cmds.EnvDev: func(ctx context.Context) error {
			log.Info().Msg("Installing marketplace dev certs...")
			if err := repo.Sync(ctx); err != nil {
				return err
			}
			if err := repo.Install(ctx, deviceID, opts.CertsPath, app.Stdout, app.Stderr); err != nil {
				return err
			}
			return app.ADB.Reboot(ctx)
		},
	}
	return handlers.Run(ctx, selected, msg.MissingCertsEnv)
}
