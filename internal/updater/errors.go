// internal/updater/errors.go
package updater

import (
	"fmt"
)

// NotFoundOrDeniedError reports that the console rendered its no-data
// indicator for the searched employee: either the record does not exist or
// the account lacks permission to see it. The console gives one signal for
// both causes, so they are not distinguished here. The message wording is
// load-bearing: report partitioning matches on "not found" / "permission".
type NotFoundOrDeniedError struct {
	EmployeeID string
}

func (e *NotFoundOrDeniedError) Error() string {
	return fmt.Sprintf("user not found or no permission to access employee_id %s", e.EmployeeID)
}

// RowNotFoundError reports that no result row matched the employee id exactly
// after the bounded number of search re-submissions.
type RowNotFoundError struct {
	EmployeeID string
	Attempts   int
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("no result row matched employee_id %s after %d attempts", e.EmployeeID, e.Attempts)
}

// WrongRecordError reports that the edit form loaded a record other than the
// one selected. This guards against residual session state silently opening a
// stale form; no mutation is attempted when it fires.
type WrongRecordError struct {
	Expected string
	Actual   string
}

func (e *WrongRecordError) Error() string {
	return fmt.Sprintf("edit form shows wrong record: expected %q, got %q", e.Expected, e.Actual)
}

// InteractionError wraps any lower-level navigation, wait, or input failure
// not otherwise classified.
type InteractionError struct {
	Step string
	Err  error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("interaction failed at step %s: %v", e.Step, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}
