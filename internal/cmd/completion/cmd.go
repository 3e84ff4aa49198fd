// Package completion prints shell completion scripts for ezboot.
package completion

import (
	"github.com/spf13/cobra"

	cmds "github.com/kumar303/ezboot/internal/cmd"
)

// Command returns the completion command. It needs no device.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(ezboot completion bash)

Zsh:

  $ ezboot completion zsh > "${fpath[1]}/_ezboot"

fish:

  $ ezboot completion fish | source
`,
		Annotations:           map[string]string{cmds.SkipPreflight: "true"},
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.ExactValidArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			}
			return cmd.Root().GenBashCompletion(out)
		},
	}
}
