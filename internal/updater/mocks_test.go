// internal/updater/mocks_test.go
package updater

import (
	"context"
	"sync"
	"time"

	"github.com/minhltv/possync/internal/config"
)

// fillCall records one Fill invocation.
type fillCall struct {
	Selector string
	Value    string
}

// mockDriver is a scriptable SessionDriver that records every interaction.
type mockDriver struct {
	mu sync.Mutex

	// Scripted behavior.
	loginErr error
	resetErr error
	// visibleResults is popped per VisibleText call; when exhausted,
	// noDataPresent is returned.
	visibleResults []bool
	noDataPresent  bool
	// waitRowErrs is popped per WaitVisibleXPath call; nil when exhausted.
	waitRowErrs []error
	// inputValues maps selectors to the value InputValue returns.
	inputValues map[string]string
	// clickErrs maps selectors to a scripted Click failure.
	clickErrs map[string]error

	// Recorded interactions.
	loginCalls  int
	resetCalls  int
	navigations []string
	fills       []fillCall
	clicks      []string
	xpathClicks []string
	waitCalls   int
	settleCalls int
	sleeps      []time.Duration

	// dialogArmed mirrors the driver's one-shot arm; armedAtSave captures
	// whether it was still armed when the save control was clicked.
	dialogArmed  bool
	armedAtSave  bool
	saveSelector string
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		inputValues:  map[string]string{},
		clickErrs:    map[string]error{},
		saveSelector: "#doEdit",
	}
}

func (m *mockDriver) Login(ctx context.Context, creds config.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCalls++
	return m.loginErr
}

func (m *mockDriver) ResetToSearch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	return m.resetErr
}

func (m *mockDriver) Navigate(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigations = append(m.navigations, url)
	return nil
}

func (m *mockDriver) Fill(ctx context.Context, selector, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = append(m.fills, fillCall{Selector: selector, Value: value})
	return nil
}

func (m *mockDriver) Click(ctx context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, selector)
	if selector == m.saveSelector {
		m.armedAtSave = m.dialogArmed
		m.dialogArmed = false
	}
	return m.clickErrs[selector]
}

func (m *mockDriver) ClickXPath(ctx context.Context, xpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xpathClicks = append(m.xpathClicks, xpath)
	return nil
}

func (m *mockDriver) InputValue(ctx context.Context, selector string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputValues[selector], nil
}

func (m *mockDriver) VisibleText(ctx context.Context, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.visibleResults) > 0 {
		result := m.visibleResults[0]
		m.visibleResults = m.visibleResults[1:]
		return result, nil
	}
	return m.noDataPresent, nil
}

func (m *mockDriver) WaitVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitCalls++
	if len(m.waitRowErrs) > 0 {
		err := m.waitRowErrs[0]
		m.waitRowErrs = m.waitRowErrs[1:]
		return err
	}
	return nil
}

func (m *mockDriver) AcceptNextDialog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialogArmed = true
}

func (m *mockDriver) SettleNetwork(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settleCalls++
	return nil
}

func (m *mockDriver) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	return nil
}

// posFills returns the values written to the POS field, in order.
func (m *mockDriver) posFills(selector string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var values []string
	for _, f := range m.fills {
		if f.Selector == selector {
			values = append(values, f.Value)
		}
	}
	return values
}

// newTestConfig returns a config with portal defaults and fast timings.
func newTestConfig() *config.Config {
	return &config.Config{
		Network: config.NetworkConfig{
			SettleTimeout: 50 * time.Millisecond,
			SettleQuiet:   10 * time.Millisecond,
		},
		Portal: config.PortalConfig{
			LoginURL:      "https://admin.example.com/login",
			SearchURL:     "https://admin.example.com/partners",
			UsernameInput: "#username",
			PasswordInput: "#password",
			LoginSubmit:   "#loginBtn",
			SearchInput:   "#sharing_key",
			SearchSubmit:  "#doSearch",
			RowRadioName:  "sharing_partner_rad",
			EditButton:    "#goEdit",
			IdentityInput: "#sharing_key",
			PosInput:      "#info",
			SaveButton:    "#doEdit",
			NoDataText:    "Không có dữ liệu",
		},
		Updater: config.UpdaterConfig{
			Retries:         2,
			RetryBackoff:    time.Millisecond,
			RowWait:         5 * time.Millisecond,
			RowPollAttempts: 3,
			ResetSettle:     time.Millisecond,
		},
	}
}
