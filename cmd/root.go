package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-audit/internal/config"
	"github.com/sells-group/census-audit/internal/rules"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "census-audit",
	Short: "Employee census reconciliation tool",
	Long:  "Matches employee records between a secondary HR export and the authoritative payroll export, compares mapped fields under normalization rules, and writes a comparison report workbook.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadRules reads the configured rule file, or the compiled-in defaults when
// none is configured.
func loadRules() (*rules.Rules, error) {
	if cfg.Audit.RulesPath == "" {
		return rules.Default(), nil
	}
	return rules.Load(cfg.Audit.RulesPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
