package device

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
	"github.com/kumar303/ezboot/internal/gaia"
)

var appTableStyle = table.Style{
	Name: "ezboot",
	Box: table.BoxStyle{
		MiddleHorizontal: "─",
		PaddingLeft:      " ",
		PaddingRight:     " ",
		PageSeparator:    "\n",
		UnfinishedRow:    " ...",
	},
	Color: table.ColorOptionsDefault,
	Format: table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	},
	HTML: table.DefaultHTMLOptions,
	Options: table.Options{
		SeparateFooter: true,
		SeparateHeader: true,
	},
	Title: table.TitleOptionsDefault,
}

// AppsCommand returns the apps command.
func AppsCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "apps",
		Short:        "List the apps installed on the device.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := app.Device(cmd.Context())
			if err != nil {
				return err
			}
			apps, err := d.Installed(cmd.Context())
			if err != nil {
				return err
			}
			renderApps(app.Stdout, apps)
			return nil
		},
	}
}

func renderApps(w io.Writer, apps []gaia.App) {
	if len(apps) == 0 {
		_, _ = fmt.Fprintln(w, "No apps installed")
		return
	}

	t := table.NewWriter()
	t.SetStyle(appTableStyle)
	t.AppendHeader(table.Row{"Name", "Origin", "Installed", "Manifest"})

	for _, a := range apps {
		installed := ""
		if a.InstallTime > 0 {
			installed = time.UnixMilli(int64(a.InstallTime)).UTC().Format(time.DateTime)
		}
		// the order of values must match the order of the header
		t.AppendRow(table.Row{a.Name(), a.Origin, installed, a.ManifestURL})
	}
	t.SuppressEmptyColumns()
	t.AppendFooter(table.Row{fmt.Sprintf("%d apps in total", len(apps))})

	_, _ = fmt.Fprintln(w, t.Render())
}
