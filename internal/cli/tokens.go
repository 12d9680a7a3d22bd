package cli

import (
	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/config"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [config]",
	Short: "List space tokens and whether a run would migrate them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokensList,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

func runTokensList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	cat, err := config.CreateCatalog(ctx, &cfg.Catalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	tokens, err := cat.ListTokens(ctx)
	if err != nil {
		return err
	}

	printTokens(cmd.OutOrStdout(), tokens, cfg.Migration.Selection())
	return nil
}
