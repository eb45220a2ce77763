// cmd/run.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/browser"
	"github.com/minhltv/possync/internal/config"
	"github.com/minhltv/possync/internal/ingest"
	"github.com/minhltv/possync/internal/observability"
	"github.com/minhltv/possync/internal/reporting"
	"github.com/minhltv/possync/internal/updater"
)

// newRunCmd creates the `run` command: the full workbook-driven batch.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <workbook.xlsx>",
		Short: "Updates every employee POS code listed in an Excel workbook",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind override flags onto their viper keys so command-line values
			// win over config file and environment.
			if err := viper.BindPFlag("updater.retries", cmd.Flags().Lookup("retries")); err != nil {
				return err
			}
			if err := viper.BindPFlag("updater.retry_backoff", cmd.Flags().Lookup("backoff")); err != nil {
				return err
			}
			if err := viper.BindPFlag("updater.step_delay", cmd.Flags().Lookup("step-delay")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.slowmo", cmd.Flags().Lookup("slowmo")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			offset, _ := cmd.Flags().GetInt("offset")
			limit, _ := cmd.Flags().GetInt("limit")
			invalidPath, _ := cmd.Flags().GetString("invalid-csv")

			result, err := ingest.ReadWorkbook(args[0], logger)
			if err != nil {
				return err
			}
			if len(result.Invalid) > 0 {
				if err := reporting.WriteInvalid(invalidPath, result.Invalid); err != nil {
					return err
				}
				logger.Warn("Workbook rows rejected before processing.",
					zap.Int("count", len(result.Invalid)),
					zap.String("report", invalidPath))
			}

			pairs := ingest.Slice(result.Valid, offset, limit)
			if len(pairs) == 0 {
				logger.Warn("No actionable rows after filtering; nothing to do.")
				return nil
			}

			rows := make([]updater.UpdateRequest, 0, len(pairs))
			for _, p := range pairs {
				rows = append(rows, updater.UpdateRequest{EmployeeID: p.EmployeeID, PosID: p.PosID})
			}

			return executeBatch(cmd, cfg, rows, dryRun)
		},
	}

	runCmd.Flags().Int("offset", 0, "Number of valid workbook rows to skip before processing.")
	runCmd.Flags().Int("limit", 0, "Maximum number of rows to process; 0 means all.")
	runCmd.Flags().Bool("dry-run", false, "Validate and report the rows without touching the console.")
	addBatchFlags(runCmd)

	return runCmd
}

// addBatchFlags registers the flags shared by the run and pairs commands.
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("headful", false, "Run the browser with a visible window.")
	cmd.Flags().Int("retries", 2, "Extra attempts per row after the first failure. (Overrides config/env)")
	cmd.Flags().Duration("backoff", 0, "Pause between a failed attempt and the retry. (Overrides config/env)")
	cmd.Flags().Duration("step-delay", 0, "Fixed pause between workflow steps. (Overrides config/env)")
	cmd.Flags().Duration("slowmo", 0, "Fixed pause after every browser action. (Overrides config/env)")
	cmd.Flags().String("audit-csv", "audit.csv", "Path for the full per-row outcome report.")
	cmd.Flags().String("invalid-csv", "invalid_rows.csv", "Path for the rejected-rows report.")
	cmd.Flags().String("denied-csv", "permission_denied.csv", "Path for the not-found/no-permission report.")
}

// resolveConfig re-unmarshals the config after flag binding and applies the
// flags that have no direct viper key.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if headful, _ := cmd.Flags().GetBool("headful"); headful {
		cfg.Browser.Headless = false
	}
	return cfg, nil
}

// executeBatch runs the rows through one browser session and writes the CSV
// reports. Shared by the run and pairs commands.
func executeBatch(cmd *cobra.Command, cfg *config.Config, rows []updater.UpdateRequest, dryRun bool) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	auditPath, _ := cmd.Flags().GetString("audit-csv")
	deniedPath, _ := cmd.Flags().GetString("denied-csv")

	batchID := uuid.New().String()
	logger.Info("Starting batch.",
		zap.String("batch_id", batchID),
		zap.Int("rows", len(rows)),
		zap.Bool("dry_run", dryRun))

	var creds config.Credentials
	var runner *updater.Runner
	if dryRun {
		runner = updater.NewRunner(nil, cfg, true, logger)
	} else {
		var err error
		creds, err = config.LoadCredentials(viper.GetViper())
		if err != nil {
			return err
		}
		session, err := browser.NewDriver(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer session.Close()
		runner = updater.NewRunner(session, cfg, false, logger)
	}

	outcomes, runErr := runner.Run(ctx, creds, rows)

	// Reports are written even when the batch aborted partway; partial
	// outcomes are still an audit trail.
	if len(outcomes) > 0 || runErr == nil {
		if err := reporting.WriteAudit(auditPath, outcomes); err != nil {
			return errors.Join(runErr, err)
		}
		deniedCount, err := reporting.WriteDenied(deniedPath, outcomes)
		if err != nil {
			return errors.Join(runErr, err)
		}
		if deniedCount > 0 {
			logger.Warn("Rows failed on the not-found/no-permission signal.",
				zap.Int("count", deniedCount),
				zap.String("report", deniedPath))
		}
	}
	if runErr != nil {
		return runErr
	}

	succeeded, failed := updater.Summarize(outcomes)
	logger.Info("Batch finished.",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.String("audit", auditPath))

	fmt.Printf("\nBatch complete: %d succeeded, %d failed. Audit written to %s\n", succeeded, failed, auditPath)
	for _, o := range outcomes {
		if !o.Success {
			fmt.Printf("  FAILED %s -> %s: %s\n", o.EmployeeID, o.PosID, o.Error)
		}
	}
	return nil
}
