// internal/browser/driver.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/config"
	"github.com/minhltv/possync/internal/updater"
)

var _ updater.SessionDriver = (*Driver)(nil)

// Driver owns the single authenticated browser session used for a batch run.
// All interactions with the admin console go through it; callers must not use
// it concurrently, as the remote console is stateful per session.
type Driver struct {
	logger *zap.Logger
	cfg    *config.Config

	// allocatorCtx manages the browser process. The tab context derives from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc

	tracker *networkTracker

	// dialogArmed makes the next JS dialog auto-accepted, exactly once.
	dialogArmed atomic.Bool

	closeOnce sync.Once
}

// NewDriver launches the browser process, opens the session tab, and wires up
// network tracking and dialog handling.
func NewDriver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Driver, error) {
	d := &Driver{
		logger: logger.Named("driver"),
		cfg:    cfg,
	}

	opts := buildAllocatorOptions(cfg.Browser)
	d.allocatorCtx, d.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	d.tabCtx, d.tabCancel = chromedp.NewContext(d.allocatorCtx)

	// Run a simple task to confirm the browser is alive.
	probeCtx, cancelProbe := context.WithTimeout(d.tabCtx, 30*time.Second)
	defer cancelProbe()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank"), network.Enable()); err != nil {
		d.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	d.tracker = newNetworkTracker(d.tabCtx, d.logger)
	d.listenForDialogs()

	d.logger.Info("Browser launched successfully and is responsive.")
	return d, nil
}

// buildAllocatorOptions assembles the flags for a configurable browser instance.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)

	// Add custom arguments from config.yaml.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// listenForDialogs installs the session-wide JS dialog handler. A dialog is
// accepted only when armed via AcceptNextDialog; any other dialog is dismissed
// so the tab never blocks on an unexpected prompt.
func (d *Driver) listenForDialogs() {
	chromedp.ListenTarget(d.tabCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		accept := d.dialogArmed.CompareAndSwap(true, false)
		d.logger.Debug("JavaScript dialog opened.",
			zap.String("message", e.Message),
			zap.Bool("accept", accept))

		// The listener must not block; handle the dialog from a goroutine.
		go func() {
			if err := chromedp.Run(d.tabCtx, page.HandleJavaScriptDialog(accept)); err != nil && d.tabCtx.Err() == nil {
				d.logger.Warn("Failed to handle JavaScript dialog.", zap.Error(err))
			}
		}()
	})
}

// AcceptNextDialog arms the one-shot auto-accept for the next JS dialog,
// typically the confirmation prompt raised by the save action.
func (d *Driver) AcceptNextDialog() {
	d.dialogArmed.Store(true)
}

// Login navigates to the login page, submits the credentials, and waits for
// the resulting network activity to settle.
func (d *Driver) Login(ctx context.Context, creds config.Credentials) error {
	d.logger.Info("Logging in to admin console...")

	if err := d.Navigate(ctx, d.cfg.Portal.LoginURL); err != nil {
		return err
	}
	if err := d.Fill(ctx, d.cfg.Portal.UsernameInput, creds.Username); err != nil {
		return err
	}
	if err := d.Fill(ctx, d.cfg.Portal.PasswordInput, creds.Password); err != nil {
		return err
	}
	if err := d.Click(ctx, d.cfg.Portal.LoginSubmit); err != nil {
		return err
	}

	if err := d.SettleNetwork(ctx, d.cfg.Network.SettleTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Warn("Network did not settle after login submission, continuing anyway.", zap.Error(err))
	}
	return nil
}

// ResetToSearch navigates to the canonical search page and waits a fixed
// settle interval, discarding any in-progress form state.
func (d *Driver) ResetToSearch(ctx context.Context) error {
	d.logger.Info("Resetting session to the search page...")
	if err := d.Navigate(ctx, d.cfg.Portal.SearchURL); err != nil {
		return err
	}
	return d.Sleep(ctx, d.cfg.Updater.ResetSettle)
}

// Navigate loads the specified URL.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating.", zap.String("url", url))

	navTimeout := d.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	opCtx, opCancel := CombineContext(d.tabCtx, ctx)
	defer opCancel()
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return d.slowmo(opCtx)
}

// Fill clears the element matching the selector and types the given value.
func (d *Driver) Fill(ctx context.Context, selector, value string) error {
	d.logger.Debug("Filling element.", zap.String("selector", selector))

	action := chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	}
	if err := d.runActions(ctx, 15*time.Second, action); err != nil {
		return fmt.Errorf("fill action failed for selector '%s': %w", selector, err)
	}
	return nil
}

// Click interacts with the element matching the CSS selector.
func (d *Driver) Click(ctx context.Context, selector string) error {
	d.logger.Debug("Clicking element.", zap.String("selector", selector))

	action := chromedp.Tasks{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	}
	if err := d.runActions(ctx, 30*time.Second, action); err != nil {
		return fmt.Errorf("click action failed for selector '%s': %w", selector, err)
	}
	return nil
}

// ClickXPath clicks the first node matching the XPath expression.
func (d *Driver) ClickXPath(ctx context.Context, xpath string) error {
	d.logger.Debug("Clicking element.", zap.String("xpath", xpath))

	action := chromedp.Tasks{
		chromedp.WaitVisible(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	}
	if err := d.runActions(ctx, 30*time.Second, action); err != nil {
		return fmt.Errorf("click action failed for xpath '%s': %w", xpath, err)
	}
	return nil
}

// InputValue reads the current value of the input matching the selector.
func (d *Driver) InputValue(ctx context.Context, selector string) (string, error) {
	var value string
	action := chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Value(selector, &value, chromedp.ByQuery),
	}
	if err := d.runActions(ctx, 15*time.Second, action); err != nil {
		return "", fmt.Errorf("value read failed for selector '%s': %w", selector, err)
	}
	return value, nil
}

// VisibleText reports whether the rendered page body contains the given text.
func (d *Driver) VisibleText(ctx context.Context, text string) (bool, error) {
	quoted, err := json.Marshal(text)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(`document.body ? document.body.innerText.includes(%s) : false`, quoted)

	var present bool
	if err := d.runActions(ctx, 10*time.Second, chromedp.Evaluate(script, &present)); err != nil {
		return false, fmt.Errorf("text presence check failed: %w", err)
	}
	return present, nil
}

// WaitVisibleXPath waits up to timeout for a node matching the XPath
// expression to become visible.
func (d *Driver) WaitVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	if err := d.runActions(ctx, timeout, chromedp.WaitVisible(xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("wait failed for xpath '%s': %w", xpath, err)
	}
	return nil
}

// SettleNetwork waits for in-flight requests to go quiet, bounded by timeout.
// Callers treat expiry as advisory; the remote console may render slowly.
func (d *Driver) SettleNetwork(ctx context.Context, timeout time.Duration) error {
	quiet := d.cfg.Network.SettleQuiet
	if quiet <= 0 {
		quiet = 1500 * time.Millisecond
	}

	opCtx, opCancel := CombineContext(d.tabCtx, ctx)
	defer opCancel()
	settleCtx, cancel := context.WithTimeout(opCtx, timeout)
	defer cancel()

	return d.tracker.WaitIdle(settleCtx, quiet)
}

// Sleep pauses for the given duration, respecting context cancellation.
func (d *Driver) Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.tabCtx.Done():
		return d.tabCtx.Err()
	}
}

// Close terminates the session tab and the browser process.
func (d *Driver) Close() {
	d.closeOnce.Do(func() {
		d.logger.Info("Closing browser session.")
		if d.tabCancel != nil {
			d.tabCancel()
		}
		if d.allocatorCancel != nil {
			d.allocatorCancel()
			<-d.allocatorCtx.Done()
		}
	})
}

// runActions executes chromedp actions under a per-action timeout, ensuring
// they respect both the session lifetime and the incoming request context.
func (d *Driver) runActions(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, opCancel := CombineContext(d.tabCtx, ctx)
	defer opCancel()
	actionCtx, cancel := context.WithTimeout(opCtx, timeout)
	defer cancel()

	if err := chromedp.Run(actionCtx, actions...); err != nil {
		return err
	}
	return d.slowmo(opCtx)
}

// slowmo applies the configured fixed pause after an action, if any.
func (d *Driver) slowmo(ctx context.Context) error {
	if d.cfg.Browser.SlowMo <= 0 {
		return nil
	}
	return d.Sleep(ctx, d.cfg.Browser.SlowMo)
}
