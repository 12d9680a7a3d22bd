package cli

import (
	"fmt"
	"os"

	"github.com/marmos91/tokenmig/pkg/config"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [path]",
	Short: "Write the JSON schema of the configuration file",
	Long: `Write the JSON schema of the configuration file, to stdout or to path.

Point a YAML language server at it for completion and validation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return err
	}

	if err := os.WriteFile(args[0], schema, 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", args[0])
	return nil
}
