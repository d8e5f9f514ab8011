package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-audit/internal/audit"
	"github.com/sells-group/census-audit/internal/ingest"
	"github.com/sells-group/census-audit/internal/report"
)

var (
	runWorkbookPath string
	runOutputPath   string
	runOverwrite    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a census audit and write the report workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := loadRules()
		if err != nil {
			return err
		}

		wb, err := ingest.Load(runWorkbookPath, ingestOptions())
		if err != nil {
			return eris.Wrap(err, "run: load workbook")
		}

		result, err := audit.NewRunner(r).Run(audit.Input{
			Secondary:         wb.Secondary,
			Truth:             wb.Truth,
			Mappings:          wb.Mappings,
			SecondaryIDColumn: cfg.Audit.SecondaryIDColumn,
			TruthIDColumn:     cfg.Audit.TruthIDColumn,
		})
		if err != nil {
			return eris.Wrap(err, "run: audit")
		}

		if err := report.WriteFile(result, runOutputPath, runOverwrite); err != nil {
			return eris.Wrap(err, "run: write report")
		}

		zap.L().Info("audit report written",
			zap.String("workbook", runWorkbookPath),
			zap.String("report", runOutputPath),
			zap.Int("matched", result.Dataset.Matched),
			zap.Int("secondary_only", result.Dataset.SecondaryOnly),
			zap.Int("truth_only", result.Dataset.TruthOnly),
			zap.Int("detail_rows", len(result.Details)),
		)
		return nil
	},
}

// ingestOptions maps the audit config onto the ingest layer.
func ingestOptions() ingest.Options {
	return ingest.Options{
		SecondarySheet:         cfg.Audit.SecondarySheet,
		TruthSheet:             cfg.Audit.TruthSheet,
		MappingSheet:           cfg.Audit.MappingSheet,
		MappingSecondaryColumn: cfg.Audit.MappingSecondaryColumn,
		MappingTruthColumn:     cfg.Audit.MappingTruthColumn,
	}
}

func init() {
	runCmd.Flags().StringVar(&runWorkbookPath, "workbook", "", "path to the census workbook (required)")
	runCmd.Flags().StringVar(&runOutputPath, "out", "census_audit_report.xlsx", "path for the report workbook")
	runCmd.Flags().BoolVar(&runOverwrite, "overwrite", false, "overwrite the report if it exists")
	_ = runCmd.MarkFlagRequired("workbook")
	rootCmd.AddCommand(runCmd)
}
