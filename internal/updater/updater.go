// internal/updater/updater.go
package updater

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/config"
)

// RowUpdater performs the search -> select -> verify -> edit -> save sequence
// for a single row against the remote console. The console offers no
// transactional guarantee; the sequence only looks atomic because every call
// starts from a fresh search view and verifies the loaded record before
// touching it.
type RowUpdater struct {
	driver SessionDriver
	portal config.PortalConfig
	cfg    config.UpdaterConfig

	// settleTimeout bounds the advisory network wait after search and save.
	settleTimeout time.Duration

	logger *zap.Logger
}

// NewRowUpdater builds a row updater bound to one session driver.
func NewRowUpdater(driver SessionDriver, cfg *config.Config, logger *zap.Logger) *RowUpdater {
	return &RowUpdater{
		driver:        driver,
		portal:        cfg.Portal,
		cfg:           cfg.Updater,
		settleTimeout: cfg.Network.SettleTimeout,
		logger:        logger.Named("updater"),
	}
}

// Apply updates one employee's POS code and returns the prior value.
// Failures surface as one of NotFoundOrDeniedError, RowNotFoundError,
// WrongRecordError, or InteractionError.
func (u *RowUpdater) Apply(ctx context.Context, employeeID, posID string) (string, error) {
	log := u.logger.With(zap.String("employee_id", employeeID))

	// Fresh search view; any stale filter or open form is discarded.
	if err := u.driver.Navigate(ctx, u.portal.SearchURL); err != nil {
		return "", &InteractionError{Step: "open_search", Err: err}
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "open_search", Err: err}
	}

	// Clear any existing filter before entering the new one. The previous
	// row's failure may have left anything in this field.
	if err := u.driver.Fill(ctx, u.portal.SearchInput, ""); err != nil {
		return "", &InteractionError{Step: "clear_filter", Err: err}
	}
	if err := u.driver.Sleep(ctx, 500*time.Millisecond); err != nil {
		return "", &InteractionError{Step: "clear_filter", Err: err}
	}
	if err := u.driver.Fill(ctx, u.portal.SearchInput, employeeID); err != nil {
		return "", &InteractionError{Step: "enter_filter", Err: err}
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "enter_filter", Err: err}
	}
	if err := u.driver.Click(ctx, u.portal.SearchSubmit); err != nil {
		return "", &InteractionError{Step: "submit_search", Err: err}
	}

	// Advisory settle: a timeout here is not a failure, the console may
	// simply render results slowly. Inspect the UI state regardless.
	if err := u.driver.SettleNetwork(ctx, u.settleTimeout); err != nil {
		if ctx.Err() != nil {
			return "", &InteractionError{Step: "settle_search", Err: err}
		}
		log.Warn("Network idle timeout after search, continuing anyway.")
	}

	if denied, err := u.noDataShown(ctx); err != nil {
		return "", &InteractionError{Step: "check_no_data", Err: err}
	} else if denied {
		return "", &NotFoundOrDeniedError{EmployeeID: employeeID}
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "check_no_data", Err: err}
	}

	// Wait for the row whose identity cell equals employeeID exactly,
	// re-submitting the search a bounded number of times.
	rowXPath := resultRowXPath(employeeID)
	if err := u.awaitResultRow(ctx, log, employeeID, rowXPath); err != nil {
		return "", err
	}

	// Select the matched row via its radio control.
	radioXPath := fmt.Sprintf("%s//input[@name=%s]", rowXPath, xpathLiteral(u.portal.RowRadioName))
	if err := u.driver.ClickXPath(ctx, radioXPath); err != nil {
		return "", &InteractionError{Step: "select_row", Err: err}
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "select_row", Err: err}
	}

	if err := u.driver.Click(ctx, u.portal.EditButton); err != nil {
		return "", &InteractionError{Step: "open_edit", Err: err}
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "open_edit", Err: err}
	}

	// Integrity check: the form must show the record we selected. Residual
	// session state can silently open a stale or different record; nothing
	// is written unless this holds.
	identity, err := u.driver.InputValue(ctx, u.portal.IdentityInput)
	if err != nil {
		return "", &InteractionError{Step: "verify_record", Err: err}
	}
	if strings.TrimSpace(identity) != employeeID {
		return "", &WrongRecordError{Expected: employeeID, Actual: identity}
	}
	log.Debug("Verified edit form shows the selected record.")

	oldValue, err := u.driver.InputValue(ctx, u.portal.PosInput)
	if err != nil {
		return "", &InteractionError{Step: "read_pos", Err: err}
	}
	if err := u.driver.Fill(ctx, u.portal.PosInput, posID); err != nil {
		return "", &InteractionError{Step: "write_pos", Err: err}
	}
	log.Info("POS code will change.", zap.String("old_pos", oldValue), zap.String("new_pos", posID))
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "write_pos", Err: err}
	}

	// The save may raise a native confirmation dialog synchronously; arm the
	// one-shot auto-accept before triggering it.
	u.driver.AcceptNextDialog()
	if err := u.driver.Click(ctx, u.portal.SaveButton); err != nil {
		return "", &InteractionError{Step: "save", Err: err}
	}
	if err := u.driver.SettleNetwork(ctx, u.settleTimeout); err != nil {
		if ctx.Err() != nil {
			return "", &InteractionError{Step: "settle_save", Err: err}
		}
		log.Warn("Network idle timeout after save, continuing anyway.")
	}
	if err := u.stepDelay(ctx); err != nil {
		return "", &InteractionError{Step: "save", Err: err}
	}

	return oldValue, nil
}

// awaitResultRow waits for the exact-match result row, re-submitting the
// search between bounded attempts. The no-data indicator is re-checked on the
// final attempt because it can appear late.
func (u *RowUpdater) awaitResultRow(ctx context.Context, log *zap.Logger, employeeID, rowXPath string) error {
	for attempt := 1; ; attempt++ {
		err := u.driver.WaitVisibleXPath(ctx, rowXPath, u.cfg.RowWait)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &InteractionError{Step: "await_row", Err: err}
		}
		if attempt >= u.cfg.RowPollAttempts {
			if denied, cerr := u.noDataShown(ctx); cerr == nil && denied {
				return &NotFoundOrDeniedError{EmployeeID: employeeID}
			}
			return &RowNotFoundError{EmployeeID: employeeID, Attempts: u.cfg.RowPollAttempts}
		}

		log.Warn("Result row not visible yet, re-submitting search.",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", u.cfg.RowPollAttempts))
		if err := u.driver.Sleep(ctx, 2*time.Second); err != nil {
			return &InteractionError{Step: "await_row", Err: err}
		}
		if err := u.driver.Click(ctx, u.portal.SearchSubmit); err != nil {
			return &InteractionError{Step: "resubmit_search", Err: err}
		}
		if err := u.driver.Sleep(ctx, 3*time.Second); err != nil {
			return &InteractionError{Step: "await_row", Err: err}
		}
	}
}

// noDataShown reports whether the console currently renders its empty-result
// indicator.
func (u *RowUpdater) noDataShown(ctx context.Context) (bool, error) {
	return u.driver.VisibleText(ctx, u.portal.NoDataText)
}

// stepDelay applies the optional fixed inter-step pause.
func (u *RowUpdater) stepDelay(ctx context.Context) error {
	if u.cfg.StepDelay <= 0 {
		return nil
	}
	return u.driver.Sleep(ctx, u.cfg.StepDelay)
}

// resultRowXPath matches a table row whose identity cell equals the employee
// id exactly, after whitespace normalization. Substring matches do not count.
func resultRowXPath(employeeID string) string {
	return fmt.Sprintf("//tr[.//td[normalize-space()=%s]]", xpathLiteral(employeeID))
}

// xpathLiteral quotes a string for embedding in an XPath expression. XPath 1.0
// has no escape sequence inside string literals, so values containing both
// quote kinds are split with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
