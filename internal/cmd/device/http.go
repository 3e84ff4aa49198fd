package device

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/msg"
)

// HTTPLogPath is where B2G writes the HTTP log on the device.
const HTTPLogPath = "/data/local/ezboot-http.log"

// httpLogScript starts B2G in the foreground with HTTP logging enabled.
var httpLogScript = fmt.Sprintf(`export NSPR_LOG_MODULES=nsHttp:3
export NSPR_LOG_FILE=%s
/system/bin/b2g.sh
`, HTTPLogPath)

// HTTPCommand returns the http command.
func HTTPCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "http",
		Short:        "Restart the device with HTTP logging enabled.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return httpLog(cmd.Context(), app)
		},
	}
}

// httpLog runs B2G with HTTP logging until ctx is canceled, then pulls the log into the work dir and
// reboots the device.
func httpLog(ctx context.Context, app *cmds.App) error {
	if err := app.ADB.StopB2G(ctx); err != nil {
		return err
	}
	if _, err := app.ADB.Shell(ctx, "rm", HTTPLogPath); err != nil {
		log.Debug().Err(err).Msg("No previous log to remove")
	}

	log.Info().Msg("restarting with HTTP logging enabled")
	log.Info().Msg("press control+C to quit")
	log.Info().Msg("Get output with adb logcat")

	err := app.ADB.ShellScript(ctx, httpLogScript, app.Stdout, app.Stderr)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("B2G exited")
	}

	ctx = context.WithoutCancel(ctx)
	local := filepath.Join(app.Global.WorkDir, path.Base(HTTPLogPath))
	if err := app.ADB.Pull(ctx, HTTPLogPath, local); err != nil {
		return err
	}
	msg.LogBanner(fmt.Sprintf("Log file: %s", local))

	return app.ADB.Reboot(ctx)
}
