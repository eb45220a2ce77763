// internal/reporting/csv_test.go
package reporting

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhltv/possync/internal/ingest"
	"github.com/minhltv/possync/internal/updater"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteAuditPreservesOrder(t *testing.T) {
	outcomes := []updater.UpdateOutcome{
		{EmployeeID: "EMP001", PosID: "A1", Success: true, OldPos: "OLD1", NewPos: "A1"},
		{EmployeeID: "EMP002", PosID: "A2", Success: false, Error: "edit form shows wrong record"},
		{EmployeeID: "EMP003", PosID: "A3", Success: true, OldPos: "OLD3", NewPos: "A3"},
	}

	path := filepath.Join(t.TempDir(), "audit.csv")
	require.NoError(t, WriteAudit(path, outcomes))

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"employee_id", "old_pos", "new_pos", "success", "error"}, records[0])
	assert.Equal(t, []string{"EMP001", "OLD1", "A1", "true", ""}, records[1])
	assert.Equal(t, []string{"EMP002", "", "", "false", "edit form shows wrong record"}, records[2])
	assert.Equal(t, []string{"EMP003", "OLD3", "A3", "true", ""}, records[3])
}

func TestWriteAuditCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "audit.csv")
	require.NoError(t, WriteAudit(path, nil))

	records := readCSV(t, path)
	require.Len(t, records, 1)
}

func TestWriteInvalid(t *testing.T) {
	rows := []ingest.InvalidRow{
		{EmployeeID: "", PosID: "POS1", Reason: "row 3: missing employee id"},
		{EmployeeID: "EMP002", PosID: "#N/A", Reason: "row 4: missing or placeholder pos id"},
	}

	path := filepath.Join(t.TempDir(), "invalid.csv")
	require.NoError(t, WriteInvalid(path, rows))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"employee_id", "pos_id", "reason"}, records[0])
	assert.Equal(t, []string{"EMP002", "#N/A", "row 4: missing or placeholder pos id"}, records[2])
}

func TestWriteDeniedFiltersByErrorClass(t *testing.T) {
	outcomes := []updater.UpdateOutcome{
		{EmployeeID: "EMP001", Success: true},
		{EmployeeID: "EMP002", Success: false,
			Error: (&updater.NotFoundOrDeniedError{EmployeeID: "EMP002"}).Error()},
		{EmployeeID: "EMP003", Success: false,
			Error: "interaction failed at step save: context deadline exceeded"},
		{EmployeeID: "EMP004", Success: false,
			Error: "no result row matched employee_id EMP004 after 3 attempts"},
	}

	path := filepath.Join(t.TempDir(), "denied.csv")
	count, err := WriteDenied(path, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "EMP002", records[1][0])
	assert.Contains(t, records[1][1], "permission")
}
