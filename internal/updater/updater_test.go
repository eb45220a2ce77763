// internal/updater/updater_test.go
package updater

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUpdater(driver *mockDriver) *RowUpdater {
	return NewRowUpdater(driver, newTestConfig(), zap.NewNop())
}

func TestApplyHappyPath(t *testing.T) {
	driver := newMockDriver()
	driver.inputValues["#sharing_key"] = "EMP001"
	driver.inputValues["#info"] = "POS_OLD"

	updater := newTestUpdater(driver)
	oldValue, err := updater.Apply(context.Background(), "EMP001", "POS_NEW")
	require.NoError(t, err)
	assert.Equal(t, "POS_OLD", oldValue)

	// The new code is written exactly once, to the POS field only.
	assert.Equal(t, []string{"POS_NEW"}, driver.posFills("#info"))

	// Row selection goes through the radio inside the matched row.
	require.Len(t, driver.xpathClicks, 1)
	assert.Contains(t, driver.xpathClicks[0], "normalize-space()='EMP001'")
	assert.Contains(t, driver.xpathClicks[0], "sharing_partner_rad")

	// The dialog auto-accept must be armed before the save click fires.
	assert.True(t, driver.armedAtSave)

	assert.Equal(t, []string{"#doSearch", "#goEdit", "#doEdit"}, driver.clicks)
	assert.Contains(t, driver.sleeps, 500*time.Millisecond)
}

func TestApplyNoDataMeansNotFoundOrDenied(t *testing.T) {
	driver := newMockDriver()
	driver.noDataPresent = true

	updater := newTestUpdater(driver)
	_, err := updater.Apply(context.Background(), "EMP404", "POS1")

	var notFound *NotFoundOrDeniedError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "EMP404", notFound.EmployeeID)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "permission")

	// Nothing past the search phase runs.
	assert.Empty(t, driver.xpathClicks)
	assert.Empty(t, driver.posFills("#info"))
}

func TestApplyRowNeverAppears(t *testing.T) {
	driver := newMockDriver()
	driver.inputValues["#sharing_key"] = "EMP001"
	rowErr := errors.New("wait timeout")
	driver.waitRowErrs = []error{rowErr, rowErr, rowErr}

	updater := newTestUpdater(driver)
	_, err := updater.Apply(context.Background(), "EMP001", "POS1")

	var notVisible *RowNotFoundError
	require.ErrorAs(t, err, &notVisible)
	assert.Equal(t, 3, notVisible.Attempts)

	// One initial submit plus one re-submit between each poll attempt.
	submits := 0
	for _, sel := range driver.clicks {
		if sel == "#doSearch" {
			submits++
		}
	}
	assert.Equal(t, 3, submits)
	assert.Equal(t, 3, driver.waitCalls)
}

func TestApplyLateNoDataDuringPolling(t *testing.T) {
	driver := newMockDriver()
	rowErr := errors.New("wait timeout")
	driver.waitRowErrs = []error{rowErr, rowErr, rowErr}
	// Absent at the initial check, present by the final poll attempt.
	driver.visibleResults = []bool{false, true}

	updater := newTestUpdater(driver)
	_, err := updater.Apply(context.Background(), "EMP001", "POS1")

	var notFound *NotFoundOrDeniedError
	require.ErrorAs(t, err, &notFound)
}

func TestApplyWrongRecordAbortsBeforeWrite(t *testing.T) {
	driver := newMockDriver()
	driver.inputValues["#sharing_key"] = "EMP999"
	driver.inputValues["#info"] = "POS_OLD"

	updater := newTestUpdater(driver)
	_, err := updater.Apply(context.Background(), "EMP001", "POS1")

	var wrong *WrongRecordError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "EMP001", wrong.Expected)
	assert.Equal(t, "EMP999", wrong.Actual)

	// The guard fires before any mutation: no POS write, no save, no dialog.
	assert.Empty(t, driver.posFills("#info"))
	assert.NotContains(t, driver.clicks, "#doEdit")
	assert.False(t, driver.armedAtSave)
}

func TestApplyIdentityComparisonTrimsWhitespace(t *testing.T) {
	driver := newMockDriver()
	driver.inputValues["#sharing_key"] = "  EMP001 "
	driver.inputValues["#info"] = "POS_OLD"

	updater := newTestUpdater(driver)
	oldValue, err := updater.Apply(context.Background(), "EMP001", "POS1")
	require.NoError(t, err)
	assert.Equal(t, "POS_OLD", oldValue)
}

func TestApplyClickFailureIsInteractionError(t *testing.T) {
	driver := newMockDriver()
	driver.inputValues["#sharing_key"] = "EMP001"
	boom := errors.New("node not found")
	driver.clickErrs["#goEdit"] = boom

	updater := newTestUpdater(driver)
	_, err := updater.Apply(context.Background(), "EMP001", "POS1")

	var interaction *InteractionError
	require.ErrorAs(t, err, &interaction)
	assert.Equal(t, "open_edit", interaction.Step)
	assert.ErrorIs(t, err, boom)
}

func TestResultRowXPath(t *testing.T) {
	xpath := resultRowXPath("EMP001")
	assert.Equal(t, "//tr[.//td[normalize-space()='EMP001']]", xpath)
}

func TestXPathLiteral(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc", "'abc'"},
		{"single quote", "o'brien", `"o'brien"`},
		{"double quote", `say "hi"`, `'say "hi"'`},
		{"both quotes", `a'b"c`, `concat('a', "'", 'b"c')`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, xpathLiteral(tc.in))
		})
	}
}

func TestXPathLiteralBothQuotesRoundTrip(t *testing.T) {
	// Every fragment inside the concat stays a valid XPath literal.
	out := xpathLiteral(`it's a "test"`)
	assert.True(t, strings.HasPrefix(out, "concat("))
	assert.Contains(t, out, `"'"`)
}
