package flash

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kumar303/ezboot/internal/build"
	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/config"
	"github.com/kumar303/ezboot/internal/hashio"
	"github.com/kumar303/ezboot/internal/human"
)

// DownloadOptions are the options of the dl command.
type DownloadOptions struct {
	Location string `mapstructure:"location"`
}

// DownloadCommand returns the dl command.
func DownloadCommand(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dl",
		Short:        "Download a build to a custom location",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts DownloadOptions
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			return dl(cmd.Context(), app, opts)
		},
	}
	cmd.Flags().String("location", "~/Downloads", "Directory to download to")

	return cmd
}

func dl(ctx context.Context, app *cmds.App, opts DownloadOptions) error {
	url, err := resolveURL(app)
	if err != nil {
		return err
	}

	location := config.ExpandHome(opts.Location)
	if _, err := os.Stat(location); os.IsNotExist(err) {
		log.Info().Msgf("Creating download directory: %s", location)
		if err := os.MkdirAll(location, 0755); err != nil {
			return fmt.Errorf("failed to create download directory: %w", err)
		}
	}

	archive, err := download(ctx, app, build.Request{URL: url, Dest: location})
	if err != nil {
		return err
	}

	ev := log.Info()
	if fi, err := os.Stat(archive); err == nil {
		ev = ev.Str("size", human.Bytes(fi.Size()))
	}
	if sum, err := hashio.SHA256(archive); err == nil {
		ev = ev.Str("sha256", sum)
	}
	ev.Msgf("Your build is available at %s", archive)
	return nil
}
