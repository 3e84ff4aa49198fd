// Package cmd holds what every ezboot subcommand shares: global options, config resolution, the adb
// bridge and the lazily opened device session.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kumar303/ezboot/internal/adb"
	"github.com/kumar303/ezboot/internal/config"
	"github.com/kumar303/ezboot/internal/gaia"
	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/poll"
	"github.com/kumar303/ezboot/internal/progress"
	"github.com/kumar303/ezboot/internal/prompt"
	"github.com/kumar303/ezboot/internal/session"
)

// RootName is the name of the CLI.
const RootName = "ezboot"

// RestartTimeout bounds how long a B2G restart may take.
var RestartTimeout = 60 * time.Second

// SkipPreflight is the annotation of commands that run without a device.
const SkipPreflight = "ezboot/skip-preflight"

// FullName returns the full command name by concatenating the command names of any parents,
// except the name of the CLI itself.
func FullName(cmd *cobra.Command) string {
	name := ""

	for cmd != nil && cmd.Name() != RootName {
		name = fmt.Sprintf("%s %s", cmd.Name(), name)
		cmd = cmd.Parent()
	}

	return strings.TrimSpace(name)
}

// UsageError is an error in how ezboot was invoked or configured. It is reported without a stack of
// wrapped causes and makes the process exit with status 2.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// Global holds the options shared by all subcommands.
type Global struct {
	Config        string `mapstructure:"config"`
	WorkDir       string `mapstructure:"work_dir"`
	AdbPort       int    `mapstructure:"adb_port"`
	FlashURL      string `mapstructure:"flash_url"`
	FlashUser     string `mapstructure:"flash_user"`
	FlashPass     string `mapstructure:"flash_pass"`
	FlashDevice   string `mapstructure:"flash_device"`
	FlashDeviceID string `mapstructure:"flash_device_id"`
	Verbose       bool   `mapstructure:"verbose"`
	NoColor       bool   `mapstructure:"no-color"`
}

// AddGlobalFlags registers the global options on flags.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", config.DefaultFile, "Set option defaults from this INI file")
	flags.String("work_dir", "~/.ezboot", "Working directory to save/delete temp data")
	flags.Int("adb_port", session.DefaultPort, "adb port to forward on the device. Marionette will then connect to this port.")
	flags.String("flash_url", "", "URL of B2G build to download. This overrides the URL to use if --flash_device is also provided.")
	flags.String("flash_user", "", "Username for build URL. It will prompt when empty")
	flags.String("flash_pass", "", "Password for build URL. It will prompt when empty")
	flags.String("flash_device", "", "The device you want to flash. Example: unagi")
	flags.String("flash_device_id", "", "The device identifier as reported by adb devices -l (usb:<blah>)")
	flags.Bool("verbose", false, "turn on verbose logging")
	flags.Bool("no-color", false, "disable colorized output")
}

// App is the configuration and the collaborators a subcommand runs with.
type App struct {
	Global Global
	Config *config.File
	ADB    *adb.Bridge
	Prompt *prompt.Prompter

	// Stdout and Stderr receive the output of the scripts ezboot runs.
	Stdout io.Writer
	Stderr io.Writer

	session *marionette.Client
}

// NewApp returns an App bound to the process' standard streams.
func NewApp() *App {
	return &App{
		Config: &config.File{},
		Prompt: prompt.New(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Errorf returns a UsageError.
func (a *App) Errorf(format string, args ...interface{}) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// Options resolves the options of cmd into out. Values set on the command line win over the config
// file section named after cmd, which wins over other sections and then flag defaults.
func (a *App) Options(cmd *cobra.Command, out interface{}) error {
	if err := a.Config.Unmarshal(cmd.Name(), cmd.Flags(), out); err != nil {
		return a.Errorf("invalid options: %v", err)
	}
	return nil
}

// Configure loads the config file and resolves the global options.
func (a *App) Configure(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return a.Errorf("%v", err)
	}
	a.Config = cfg

	if err := a.Options(cmd, &a.Global); err != nil {
		return err
	}
	a.Global.WorkDir = config.ExpandHome(a.Global.WorkDir)
	return nil
}

// Preflight checks and prepares what every subcommand relies on: the adb executable, the work dir and a
// connected device.
func (a *App) Preflight(cmd *cobra.Command) error {
	if a.Config.Exists() {
		log.Info().Msgf("Using config: %s", a.Config.Path)
	}

	path, err := adb.LookPath()
	if err != nil {
		return a.Errorf("%s", msg.AdbNotFound)
	}
	a.ADB = adb.New(path, "")

	if err := os.MkdirAll(a.Global.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	progress.Show(msg.WaitingForDevice)
	err = a.ADB.WaitForDevice(cmd.Context())
	progress.Stop()
	if err != nil {
		return err
	}
	log.Info().Msg("found it")

	return nil
}

// Session returns the device session, opening it on first use.
func (a *App) Session(ctx context.Context) (*marionette.Client, error) {
	if a.session != nil {
		return a.session, nil
	}

	s, err := session.Open(ctx, session.Config{Host: "localhost", Port: a.Global.AdbPort}, a.ADB)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

// Device returns Gaia flows over the device session.
func (a *App) Device(ctx context.Context) (*gaia.Device, error) {
	s, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}
	return gaia.New(s), nil
}

// Close ends the device session, if one was opened.
func (a *App) Close() error {
	if a.session == nil {
		return nil
	}
	s := a.session
	a.session = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.DeleteSession(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to end marionette session")
	}
	return s.Close()
}

// Restart restarts B2G and waits until the system app is ready again. The session is reopened.
func (a *App) Restart(ctx context.Context) (*gaia.Device, error) {
	_ = a.Close()

	if err := a.ADB.StopB2G(ctx); err != nil {
		return nil, err
	}
	if err := a.ADB.StartB2G(ctx); err != nil {
		return nil, err
	}

	opts := poll.Defaults().
		WithTimeout(RestartTimeout).
		WithInterval(time.Second).
		WithMessage("B2G did not come back after restart").
		Ignoring(session.ErrUnreachable)
	_, err := poll.Until(ctx, opts, func(ctx context.Context) (*marionette.Client, bool, error) {
		s, err := a.Session(ctx)
		return s, err == nil, err
	})
	if err != nil {
		return nil, err
	}

	d, err := a.Device(ctx)
	if err != nil {
		return nil, err
	}
	return d, d.WaitForReady(ctx, RestartTimeout)
}

// Env names a marketplace environment.
type Env string

// Known environments.
const (
	EnvDev Env = "dev"
)

// EnvHandlers maps environments to the action run for them.
type EnvHandlers map[Env]func(ctx context.Context) error

// ErrUnknownEnv is returned for environments without a handler.
var ErrUnknownEnv = errors.New("unknown environment")

// Run runs the handler of every selected environment in order. missing is the message reported when
// none was selected.
func (h EnvHandlers) Run(ctx context.Context, selected []Env, missing string) error {
	if len(selected) == 0 {
		return &UsageError{Message: missing}
	}

	for _, env := range selected {
		fn, ok := h[env]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEnv, env)
		}
		log.Info().Str("env", string(env)).Msg("Running")
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
