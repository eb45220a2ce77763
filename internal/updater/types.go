// internal/updater/types.go
package updater

import (
	"context"
	"time"

	"github.com/minhltv/possync/internal/config"
)

// UpdateRequest is one unit of work: overwrite one employee's POS code.
type UpdateRequest struct {
	EmployeeID string
	PosID      string
}

// UpdateOutcome records the terminal result of one row. Success implies Error
// is empty and NewPos carries the requested POS code; OldPos is populated only
// by a real (non-dry-run) successful update.
type UpdateOutcome struct {
	EmployeeID string
	PosID      string
	Success    bool
	OldPos     string
	NewPos     string
	Error      string
}

// SessionDriver is the narrow surface the update workflow needs from the
// browser session. The remote session state behind it is untrusted; the
// workflow re-establishes it before every operation.
type SessionDriver interface {
	Login(ctx context.Context, creds config.Credentials) error
	ResetToSearch(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	ClickXPath(ctx context.Context, xpath string) error
	InputValue(ctx context.Context, selector string) (string, error)
	VisibleText(ctx context.Context, text string) (bool, error)
	WaitVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) error
	AcceptNextDialog()
	SettleNetwork(ctx context.Context, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Summarize counts terminal outcomes by result.
func Summarize(outcomes []UpdateOutcome) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
