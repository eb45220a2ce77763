// internal/updater/runner.go
package updater

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/config"
)

// Runner drives a whole batch: one login, then strictly sequential rows over
// the single shared session, producing one outcome per request in input order.
type Runner struct {
	driver      SessionDriver
	coordinator *Coordinator
	dryRun      bool
	logger      *zap.Logger
}

// NewRunner wires a batch runner over one session driver. In dry-run mode the
// driver is never touched, so it may be nil: rows are validated and reported
// without any login or browser interaction.
func NewRunner(driver SessionDriver, cfg *config.Config, dryRun bool, logger *zap.Logger) *Runner {
	applier := NewRowUpdater(driver, cfg, logger)
	return &Runner{
		driver:      driver,
		coordinator: NewCoordinator(applier, driver, cfg.Updater, dryRun, logger),
		dryRun:      dryRun,
		logger:      logger.Named("runner"),
	}
}

// NewRunnerWithCoordinator exists for tests that need to substitute the
// coordinator's applier.
func NewRunnerWithCoordinator(driver SessionDriver, coordinator *Coordinator, logger *zap.Logger) *Runner {
	return &Runner{driver: driver, coordinator: coordinator, logger: logger.Named("runner")}
}

// Run logs in and processes the rows. A login failure is fatal: no rows are
// processed and the error propagates. Per-row failures never abort the batch;
// they are recorded in the returned outcomes, which preserve input order.
func (r *Runner) Run(ctx context.Context, creds config.Credentials, rows []UpdateRequest) ([]UpdateOutcome, error) {
	if r.dryRun {
		r.logger.Info("Dry run: skipping login, no browser interaction will occur.",
			zap.Int("rows", len(rows)))
	} else {
		if err := r.driver.Login(ctx, creds); err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
		r.logger.Info("Login successful.", zap.Int("rows", len(rows)))
	}

	outcomes := make([]UpdateOutcome, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("batch aborted after %d of %d rows: %w", i, len(rows), err)
		}

		// Reset unconditionally between rows: the previous row's terminal UI
		// state, success or failure, must not bleed into this one.
		if i > 0 && !r.dryRun {
			if err := r.driver.ResetToSearch(ctx); err != nil {
				r.logger.Warn("Session reset between rows failed.",
					zap.String("employee_id", row.EmployeeID), zap.Error(err))
			}
		}

		outcomes = append(outcomes, r.coordinator.Process(ctx, row))
	}

	succeeded, failed := Summarize(outcomes)
	r.logger.Info("Batch complete.", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	return outcomes, nil
}
