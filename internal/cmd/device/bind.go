// Package device implements the commands that act on a running device.
package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/hosts"
	"github.com/kumar303/ezboot/internal/msg"
	"github.com/kumar303/ezboot/internal/prompt"
)

// interfaces lists the local network interfaces.
var interfaces = hosts.SystemInterfaces

// BindOptions are the options of the bind command.
type BindOptions struct {
	Host      string `mapstructure:"bind_host"`
	IP        string `mapstructure:"bind_ip"`
	Interface string `mapstructure:"bind_int"`
	ShowNet   bool   `mapstructure:"show_net"`
}

// BindCommand returns the bind command.
func BindCommand(app *cmds.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bind",
		Short:        "Bind a hostname on your mobile device to your local server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts BindOptions
			if err := app.Options(cmd, &opts); err != nil {
				return err
			}
			return bind(cmd.Context(), app, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("bind_host", "fireplace.local", "hostname")
	flags.String("bind_ip", "", "IP to bind to. If empty, the IP will be discovered.")
	flags.String("bind_int", "", "Network interface to guess an IP from")
	flags.Bool("show_net", false, "Show network info but do not bind anything.")

	return cmd
}

func bind(ctx context.Context, app *cmds.App, opts BindOptions) error {
	if opts.ShowNet {
		addrs, err := addresses(app, "")
		if err != nil {
			return err
		}
		for _, a := range addrs {
			_, _ = fmt.Fprintln(app.Stdout, a.String())
		}
		return nil
	}

	ip := opts.IP
	if ip == "" {
		var err error
		if ip, err = guessIP(app, opts.Interface); err != nil {
			return err
		}
	}

	log.Info().Msgf("About to bind host %q on device to IP %q", opts.Host, ip)

	tmp, err := os.MkdirTemp("", "ezboot-hosts")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := app.ADB.Remount(ctx); err != nil {
		return err
	}
	current := filepath.Join(tmp, "hosts")
	if err := app.ADB.Pull(ctx, hosts.DevicePath, current); err != nil {
		return err
	}
	content, err := os.ReadFile(current)
	if err != nil {
		return err
	}

	lines := hosts.Rewrite(hosts.Split(string(content)), opts.Host, ip)
	log.Debug().Msgf("New hosts file:\n%s", strings.Join(lines, ""))

	updated := filepath.Join(tmp, "hosts.new")
	if err := os.WriteFile(updated, []byte(strings.Join(lines, "")), 0644); err != nil {
		return err
	}
	if err := app.ADB.Push(ctx, updated, hosts.DevicePath); err != nil {
		return err
	}

	msg.LogSuccess("Great success")
	return nil
}

func addresses(app *cmds.App, iface string) ([]hosts.Address, error) {
	ifaces, err := interfaces()
	if err != nil {
		return nil, err
	}

	addrs, err := hosts.Addresses(ifaces, iface)
	var unknown *hosts.UnknownInterfaceError
	if errors.As(err, &unknown) {
		return nil, app.Errorf("%v", err)
	}
	return addrs, err
}

// guessIP picks the only address of iface, or asks which one to use when there are several.
func guessIP(app *cmds.App, iface string) (string, error) {
	addrs, err := addresses(app, iface)
	if err != nil {
		return "", err
	}

	switch len(addrs) {
	case 0:
		return "", app.Errorf("%v", hosts.ErrNoInterfaces)
	case 1:
		return addrs[0].IP, nil
	}

	idx, err := app.Prompt.Select("Which IP should the device use?",
		lo.Map(addrs, func(a hosts.Address, _ int) string { return a.String() }), 0)
	if errors.Is(err, prompt.ErrNotInteractive) {
		return "", app.Errorf("found more than one IP, pick one with --bind_ip or --bind_int")
	}
	if err != nil {
		return "", err
	}
	return addrs[idx].IP, nil
}
