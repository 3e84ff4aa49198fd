// Package flash implements the commands that download and flash device builds.
package flash

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kumar303/ezboot/internal/build"
	"github.com/kumar303/ezboot/internal/buildinfo"
	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/credentials"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/prompt"
)

// DownloadTimeout bounds a single build download.
var DownloadTimeout = time.Hour

// Command returns the flash command.
func Command(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "flash",
		Short:        "Download a build and flash it",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flash(cmd.Context(), app)
		},
	}
}

// ReflashCommand returns the reflash command.
func ReflashCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "reflash",
		Short:        "Re-flash the last build you downloaded",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reflash(cmd.Context(), app)
		},
	}
}

func flash(ctx context.Context, app *cmds.App) error {
	url, err := resolveURL(app)
	if err != nil {
		return err
	}
	distro, err := download(ctx, app, build.Request{
		URL:    url,
		Dest:   filepath.Join(app.Global.WorkDir, build.LastBuildDir),
		Unpack: true,
		Fresh:  true,
	})
	if err != nil {
		return err
	}

	showInfo(distro)
	return build.Flash(ctx, distro, app.Stdout, app.Stderr)
}

func reflash(ctx context.Context, app *cmds.App) error {
	distro, err := build.LastDistro(app.Global.WorkDir)
	if errors.Is(err, build.ErrNoBuild) {
		return app.Errorf("%v", err)
	}
	if err != nil {
		return err
	}

	showInfo(distro)
	return build.Flash(ctx, distro, app.Stdout, app.Stderr)
}

// resolveURL picks the build to download: --flash_url, then the default build of --flash_device and
// finally whatever URL the operator enters for an unknown device.
func resolveURL(app *cmds.App) (string, error) {
	g := app.Global
	if g.FlashURL != "" {
		return g.FlashURL, nil
	}
	if g.FlashDevice == "" {
		return "", app.Errorf("%s", msg.MissingFlashSource)
	}
	if u, ok := build.URLFor(g.FlashDevice); ok {
		return u, nil
	}

	u, err := app.Prompt.Input(fmt.Sprintf(msg.UnknownDeviceURL, g.FlashDevice))
	if errors.Is(err, prompt.ErrNotInteractive) || (err == nil && u == "") {
		return "", app.Errorf("%s", msg.MissingFlashSource)
	}
	return u, err
}

// download fetches req after completing its credentials.
func download(ctx context.Context, app *cmds.App, req build.Request) (string, error) {
	creds, err := resolveCredentials(app)
	if err != nil {
		return "", err
	}
	req.Credentials = creds

	f := build.NewFetcher(DownloadTimeout)
	f.Out = app.Stdout
	return f.Fetch(ctx, req)
}

func resolveCredentials(app *cmds.App) (credentials.Credentials, error) {
	c := credentials.Get(app.Global.FlashUser, app.Global.FlashPass)
	if c.IsValid() {
		log.Debug().Str("source", c.Source).Msg("Using build server credentials")
		return c, nil
	}

	c, err := app.Prompt.Credentials("LDAP", c)
	if errors.Is(err, prompt.ErrNotInteractive) {
		return c, app.Errorf("%s", msg.MissingCredentials)
	}
	return c, err
}

// showInfo logs the revisions of distro. Failures are reported but never fatal.
func showInfo(distro string) {
	sources, err := buildinfo.Load(distro)
	if err != nil {
		log.Warn().Err(err).Msg(msg.NoBuildInfo)
		return
	}
	links, err := sources.Links()
	if err != nil {
		log.Warn().Err(err).Msg(msg.NoBuildInfo)
		return
	}

	log.Info().Msg("Build info:")
	for _, l := range links {
		log.Info().Msgf("  %s", l)
	}
}
