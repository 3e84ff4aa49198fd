package device

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/credentials"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/msg"
)

// LoginCommand returns the login command.
func LoginCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "login",
		Short:        "Enter Persona login username/password. You must have a login prompt open on your device.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.Device(cmd.Context())
			if err != nil {
				return err
			}
			return login(cmd.Context(), app, d)
		},
	}
}

func login(ctx context.Context, app *cmds.App, d *gaia.Device) error {
	p, err := d.Persona(ctx)
	if errors.Is(err, gaia.ErrNoLoginPrompt) {
		log.Info().Msg(msg.NoLoginPrompt)
		return nil
	}
	if err != nil {
		return err
	}

	c, err := app.Prompt.Credentials("Persona", credentials.Credentials{})
	if err != nil {
		return err
	}

	created, err := p.SignIn(ctx, c.Username, c.Password)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("email", c.Username).Msg("Created a new account")
	}
	log.Info().Msg("You should be logged in now")
	return nil
}
