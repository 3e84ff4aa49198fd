package flash

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kumar303/ezboot/internal/build"
	cmds "github.com/kumar303/ezboot/internal/cmd"
)

// InfoCommand returns the info command.
func InfoCommand(app *cmds.App) *cobra.Command {
	return &cobra.Command{
		Use:          "info",
		Short:        "Show info of last ezboot-downloaded build. This may not be exactly what is on your device.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			distro, err := build.LastDistro(app.Global.WorkDir)
			if errors.Is(err, build.ErrNoBuild) {
				return app.Errorf("%v", err)
			}
			if err != nil {
				return err
			}
			showInfo(distro)
			return nil
		},
	}
}
