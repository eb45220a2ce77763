// internal/updater/coordinator.go
package updater

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/config"
)

// rowState models the per-row lifecycle. Keeping it explicit makes retry
// budget exhaustion and backoff timing independently testable.
type rowState int

const (
	statePending rowState = iota
	stateAttempting
	stateSucceeded
	stateFailed
)

// RowApplier is the single operation the coordinator drives per attempt.
type RowApplier interface {
	Apply(ctx context.Context, employeeID, posID string) (oldValue string, err error)
}

// Coordinator runs the row updater for one row at a time, catching failures,
// resetting session state, and retrying within the configured budget. It owns
// the only retry loop in the system; the row updater itself never retries a
// whole transaction.
type Coordinator struct {
	applier RowApplier
	driver  SessionDriver

	retries int
	backoff time.Duration
	dryRun  bool

	logger *zap.Logger
}

// NewCoordinator builds a retry coordinator over the given applier and driver.
func NewCoordinator(applier RowApplier, driver SessionDriver, cfg config.UpdaterConfig, dryRun bool, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		applier: applier,
		driver:  driver,
		retries: cfg.Retries,
		backoff: cfg.RetryBackoff,
		dryRun:  dryRun,
		logger:  logger.Named("coordinator"),
	}
}

// Process takes one row to a terminal outcome. A row that fails on every
// attempt consumes exactly retries+1 attempts; between attempts the session
// is reset and the backoff pause applied. Dry-run mode synthesizes success
// without touching the row updater.
func (c *Coordinator) Process(ctx context.Context, req UpdateRequest) UpdateOutcome {
	outcome := UpdateOutcome{EmployeeID: req.EmployeeID, PosID: req.PosID}
	log := c.logger.With(zap.String("employee_id", req.EmployeeID), zap.String("pos_id", req.PosID))

	if c.dryRun {
		log.Info("Dry run: row validated, remote state untouched.")
		outcome.Success = true
		outcome.NewPos = req.PosID
		return outcome
	}

	state := statePending
	attempt := 0
	var lastErr error

	for state != stateSucceeded && state != stateFailed {
		state = stateAttempting
		attempt++
		log.Info("Updating employee POS code.", zap.Int("attempt", attempt))

		oldValue, err := c.applier.Apply(ctx, req.EmployeeID, req.PosID)
		if err == nil {
			state = stateSucceeded
			outcome.Success = true
			outcome.OldPos = oldValue
			outcome.NewPos = req.PosID
			continue
		}

		lastErr = err
		if attempt > c.retries {
			state = stateFailed
			continue
		}
		if ctx.Err() != nil {
			state = stateFailed
			continue
		}

		log.Warn("Attempt failed, resetting session before retry.",
			zap.Int("attempt", attempt),
			zap.Int("retries", c.retries),
			zap.Error(err))

		// The failure may have left the session anywhere: mid-search, on a
		// half-open form, or on an error page. Reset before reusing it.
		if rerr := c.driver.ResetToSearch(ctx); rerr != nil {
			log.Warn("Session reset failed; next attempt starts from unknown state.", zap.Error(rerr))
		}
		if serr := c.driver.Sleep(ctx, c.backoff); serr != nil {
			state = stateFailed
			continue
		}
	}

	if state == stateFailed {
		log.Error("Row terminally failed.", zap.Int("attempts", attempt), zap.Error(lastErr))
		outcome.Error = lastErr.Error()
	}
	return outcome
}
