package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/cmd/completion"
	"github.com/kumar303/ezboot/internal/cmd/device"
	"github.com/kumar303/ezboot/internal/cmd/flash"
	"github.com/kumar303/ezboot/internal/cmd/install"
	"github.com/kumar303/ezboot/internal/cmd/setup"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/version"
)

var (
	cmdUse   = "ezboot [OPTIONS] COMMAND"
	cmdShort = "Automatically configure a Boot2Gecko device"
	cmdLong  = `Automatically configure a Boot2Gecko Device. It's so ez!

You can set defaults for option values by creating an ezboot.ini file in the
working directory. Make a section for each sub command with long option names:

    [setup]
    wifi_ssid = mywifi
    wifi_pass = my secure password with spaces
    apps = https://marketplace-dev.allizom.org/manifest.webapp
        https://example.com/manifest.webapp

Options given on the command line always win over the file.`
)

func main() {
	os.Exit(run(newContext(), os.Args[1:], os.Stderr))
}

// run executes the command line args and returns the process exit status.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	app := cmds.NewApp()
	defer func() {
		if err := app.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close device session")
		}
	}()

	cmd := newRootCommand(app)
	cmd.SetArgs(args)
	return exitCode(stderr, cmd.ExecuteContext(ctx))
}

func newRootCommand(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:               cmdUse,
		Short:             cmdShort,
		Long:              cmdLong,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version.String(),
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	cmd.SetVersionTemplate("ezboot version {{.Version}}\n")
	cmds.AddGlobalFlags(cmd.PersistentFlags())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cmds.UsageError{Message: err.Error()}
	})

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		if err := app.Configure(c); err != nil {
			return err
		}
		setupLogging(app.Global.Verbose, app.Global.NoColor)
		log.Debug().Str("cmd", cmds.FullName(c)).Msg("Starting")
		if c.Annotations[cmds.SkipPreflight] != "" {
			return nil
		}

		return app.Preflight(c)
	}

	cmd.AddCommand(
		flash.Command(app),
		flash.ReflashCommand(app),
		flash.DownloadCommand(app),
		flash.InfoCommand(app),
		setup.Command(app),
		setup.CertsCommand(app),
		install.Command(app),
		install.MarketplaceCommand(app),
		device.BindCommand(app),
		device.LoginCommand(app),
		device.KillCommand(app),
		device.RecssCommand(app),
		device.HTTPCommand(app),
		device.AppsCommand(app),
		completion.Command(),
	)

	return cmd
}

// exitCode reports err and maps it to an exit status: 2 for usage errors, 1 for anything else.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	msg.PrintError(w, err)

	var usage *cmds.UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

func setupLogging(verbose bool, noColor bool) {
	color.NoColor = noColor
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.DurationFieldInteger = true
	timeFormat := "15:04:05"
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		zerolog.TimeFieldFormat = time.RFC3339Nano
		timeFormat = "15:04:05.000"
	}

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(time.Local)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat, NoColor: noColor})
}

// newContext returns a new context that is canceled when a SIGINT is received.
func newContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	go func() {
		for range signals {
			if ctx.Err() != nil {
				os.Exit(1)
			}

			println("\nStopping... (press Ctrl-c again to exit without waiting)\n")
			cancel()
		}
	}()

	return ctx
}
