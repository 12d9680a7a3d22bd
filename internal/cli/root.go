// Package cli implements the tokenmig command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tokenmig",
	Short: "Reorganize a dCache namespace by space token",
	Long: `tokenmig moves every file reserved in a space token from its flat
location under the source directory into a per-token tree below the
destination directory, recreating the relative path on the way.

The space manager database supplies the tokens and their files; the Chimera
namespace database is updated in place. Run with --reverse to move files
back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/tokenmig/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// resolveConfigPath picks the positional config argument over --config.
func resolveConfigPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return configPath
}
