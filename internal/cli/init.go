package cli

import (
	"fmt"

	"github.com/marmos91/tokenmig/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a sample configuration file",
	Long: `Write a sample configuration file with every setting and its default.

Without a path the file goes to the default location. An existing file is
only replaced with --force.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
		if err := config.InitConfigToPath(path, initForce); err != nil {
			return err
		}
	} else {
		var err error
		if path, err = config.InitConfig(initForce); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit the database settings before running a migration.")
	return nil
}
