package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if versionJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"version":    Version,
			"commit":     GitCommit,
			"build_date": BuildDate,
			"go":         runtime.Version(),
		})
	}

	fmt.Fprintf(out, "tokenmig %s\n", Version)
	fmt.Fprintf(out, "  commit: %s\n", GitCommit)
	fmt.Fprintf(out, "  built:  %s\n", BuildDate)
	fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
	return nil
}
