// -- cmd/scan.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/internal/config"
	"github.com/halcyonsec/guardian-cli/internal/observability"
	"github.com/halcyonsec/guardian-cli/internal/orchestrator"
	"github.com/halcyonsec/guardian-cli/internal/reporting"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Runs the review pipeline against a file, directory, or git URL",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so CLI values override config file and environment.
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			cfg.Scan.Target = args[0]
			cfg.Scan.Output = viper.GetString("output")
			cfg.Scan.Format = strings.ToLower(viper.GetString("format"))
			cfg.Scan.Explain = viper.GetBool("explain")

			if cfg.Scan.Format != "json" && cfg.Scan.Format != "sarif" {
				return fmt.Errorf("unsupported report format %q (expected 'json' or 'sarif')", cfg.Scan.Format)
			}

			logger.Info("Starting review run",
				zap.String("target", cfg.Scan.Target),
				zap.String("format", cfg.Scan.Format),
				zap.Bool("explain", cfg.Scan.Explain),
			)

			report, err := orchestrator.New(cfg, logger).Run(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted", zap.String("target", cfg.Scan.Target))
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed", zap.Error(err))
				return err
			}

			if err := writeReport(report, cfg.Scan.Output, cfg.Scan.Format); err != nil {
				return err
			}

			printSummary(report)
			return nil
		},
	}

	scanCmd.Flags().StringP("output", "o", "", "Output file path for the report. If unset, the report goes to stdout.")
	scanCmd.Flags().StringP("format", "f", "json", "Format for the output report ('json' or 'sarif').")
	scanCmd.Flags().Bool("explain", false, "Generate model explanations for the highest-risk findings.")

	return scanCmd
}

func writeReport(report *reporting.Report, output, format string) error {
	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "sarif" {
		return report.WriteSARIF(w)
	}
	return report.WriteJSON(w)
}

func printSummary(report *reporting.Report) {
	s := report.Summary
	fmt.Fprintf(os.Stderr, "\nRun %s complete: %d findings across %d files (%d suppressed)\n",
		report.RunID, s.TotalFindings, s.FilesAnalyzed, s.Suppressed)
	for _, level := range []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "MINIMAL"} {
		if n := s.ByRiskLevel[level]; n > 0 {
			fmt.Fprintf(os.Stderr, "  %-8s %d\n", level, n)
		}
	}
	if s.TotalTokens > 0 {
		fmt.Fprintf(os.Stderr, "  tokens: %d  cost: $%.3f\n", s.TotalTokens, s.EstimatedCost)
	}
}
