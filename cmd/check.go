package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/census-audit/internal/audit"
	"github.com/sells-group/census-audit/internal/ingest"
)

var checkWorkbookPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a census workbook without running the audit",
	Long:  "Runs the same fail-fast validation as 'run': sheets parse, neither dataset is empty, identifier columns resolve (with alias fallback), and every effective mapped column exists. Prints what a run would use.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := loadRules()
		if err != nil {
			return err
		}

		wb, err := ingest.Load(checkWorkbookPath, ingestOptions())
		if err != nil {
			return eris.Wrap(err, "check: load workbook")
		}

		v, err := audit.NewRunner(r).Validate(audit.Input{
			Secondary:         wb.Secondary,
			Truth:             wb.Truth,
			Mappings:          wb.Mappings,
			SecondaryIDColumn: cfg.Audit.SecondaryIDColumn,
			TruthIDColumn:     cfg.Audit.TruthIDColumn,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "workbook:       %s\n", checkWorkbookPath)
		fmt.Fprintf(out, "secondary rows: %d (id column %q)\n", wb.Secondary.Len(), v.SecondaryIDColumn)
		fmt.Fprintf(out, "truth rows:     %d (id column %q)\n", wb.Truth.Len(), v.TruthIDColumn)
		fmt.Fprintf(out, "mappings:       %d\n", len(v.Mappings))
		for _, m := range v.Mappings {
			fmt.Fprintf(out, "  %-30s -> %-30s (%s)\n", m.Secondary, m.Truth, m.Kind)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkWorkbookPath, "workbook", "", "path to the census workbook (required)")
	_ = checkCmd.MarkFlagRequired("workbook")
	rootCmd.AddCommand(checkCmd)
}
