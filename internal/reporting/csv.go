// internal/reporting/csv.go

// Package reporting writes the run's CSV artifacts: the full audit trail,
// the pre-rejected workbook rows, and the not-found/permission failures that
// need manual follow-up with the console operators.
package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/minhltv/possync/internal/ingest"
	"github.com/minhltv/possync/internal/updater"
)

// WriteAudit writes one record per processed row, in processing order.
func WriteAudit(path string, outcomes []updater.UpdateOutcome) error {
	records := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, []string{
			o.EmployeeID,
			o.OldPos,
			o.NewPos,
			strconv.FormatBool(o.Success),
			o.Error,
		})
	}
	return writeCSV(path, []string{"employee_id", "old_pos", "new_pos", "success", "error"}, records)
}

// WriteInvalid writes the workbook rows rejected before any browser work.
func WriteInvalid(path string, rows []ingest.InvalidRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.EmployeeID, r.PosID, r.Reason})
	}
	return writeCSV(path, []string{"employee_id", "pos_id", "reason"}, records)
}

// WriteDenied writes the subset of failed outcomes whose terminal error was
// the console's not-found/no-permission signal, and reports how many there
// were. These rows need an access grant rather than a re-run.
func WriteDenied(path string, outcomes []updater.UpdateOutcome) (int, error) {
	records := make([][]string, 0)
	for _, o := range outcomes {
		if o.Success || !isDenied(o.Error) {
			continue
		}
		records = append(records, []string{o.EmployeeID, o.Error})
	}
	if err := writeCSV(path, []string{"employee_id", "reason"}, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// isDenied classifies a terminal error message as the not-found/no-permission
// class by its wording.
func isDenied(message string) bool {
	msg := strings.ToLower(message)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "permission")
}

// writeCSV writes header plus records to path, creating parent directories.
func writeCSV(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %q: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %q: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush report %q: %w", path, err)
	}
	return f.Close()
}
