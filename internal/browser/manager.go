// internal/browser/manager.go

// Package browser owns the lifecycle of the single automation resource: one
// Chrome instance backed by a durable profile directory so login state
// survives restarts. The manager is not safe for concurrent use; the scrape
// coordinator serializes every call to it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrLoginTimeout is returned when a manual login is not completed within
// the configured ceiling.
var ErrLoginTimeout = errors.New("manual login was not completed in time")

// Options configures the Manager.
type Options struct {
	// ProfileDir is the Chrome user-data directory. Created if missing.
	ProfileDir string
	// UserAgent for all navigation.
	UserAgent string
	// SettleDelay is how long to wait after reaching the target page for
	// client-side rendering to finish.
	SettleDelay time.Duration
	// LoginWait bounds how long a human gets to complete an attended
	// login.
	LoginWait time.Duration
	// CredentialFieldQuery matches a credential-entry field on the login
	// page; its presence means a human has to type something.
	CredentialFieldQuery string
	// LoginSubmitQuery matches the login-submission control whose
	// disappearance signals a completed login.
	LoginSubmitQuery string
	// IsLoginAddress reports whether a landed-on address indicates the
	// site bounced us into its login flow.
	IsLoginAddress func(addr string) bool
}

func (o *Options) withDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 5 * time.Second
	}
	if o.LoginWait <= 0 {
		o.LoginWait = 10 * time.Minute
	}
	if o.CredentialFieldQuery == "" {
		o.CredentialFieldQuery = `input[name="email"], input[type="password"]`
	}
	if o.LoginSubmitQuery == "" {
		o.LoginSubmitQuery = `button[name="login"], button[type="submit"][value="1"]`
	}
	if o.IsLoginAddress == nil {
		o.IsLoginAddress = func(string) bool { return false }
	}
}

// Manager holds the one live browser. Lifecycle:
// absent -> initializing -> ready(headless|attended) -> [crashed] -> absent.
type Manager struct {
	opts Options

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	headless      bool
	ready         bool
}

// NewManager creates a Manager without starting a browser; the first
// EnsureReady does that.
func NewManager(opts Options) *Manager {
	opts.withDefaults()
	return &Manager{opts: opts}
}

// EnsureReady creates the browser resource if absent; no-op when a live
// resource in the requested mode already exists. A mode switch tears the
// old resource down first.
func (m *Manager) EnsureReady(ctx context.Context, headless bool) error {
	if m.ready && m.headless == headless {
		return nil
	}
	if m.ready {
		m.teardown()
	}
	return m.launch(ctx, headless)
}

// launch starts Chrome in the requested mode against the durable profile
// directory. Failure cleans up any half-built state before returning.
func (m *Manager) launch(ctx context.Context, headless bool) error {
	if m.opts.ProfileDir != "" {
		if err := os.MkdirAll(m.opts.ProfileDir, 0o700); err != nil {
			return fmt.Errorf("failed to create profile dir: %w", err)
		}
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-size", "1280,900"),
	}
	if chromePath := FindChrome(); chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if m.opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(m.opts.ProfileDir))
	}
	if m.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(m.opts.UserAgent))
	}
	if headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Warm up so a missing or broken Chrome surfaces here, not mid-scrape.
	warmCtx, warmCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer warmCancel()
	warmup := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate("about:blank"),
	}
	if err := chromedp.Run(warmCtx, warmup...); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed to start: %w", err)
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.headless = headless
	m.ready = true

	log.Info().Bool("headless", headless).Str("profile", m.opts.ProfileDir).
		Msg("Browser ready")
	return nil
}

// Restart tears down any existing resource and recreates it in headless
// mode. Teardown errors are logged and swallowed; recreation errors are
// returned. Used uniformly as the recovery action after any failure.
func (m *Manager) Restart(ctx context.Context) error {
	m.teardown()
	return m.launch(ctx, true)
}

// Close releases the browser for good.
func (m *Manager) Close() error {
	m.teardown()
	return nil
}

// teardown releases the current resource best-effort.
func (m *Manager) teardown() {
	if !m.ready {
		return
	}
	if m.browserCtx != nil {
		if err := chromedp.Cancel(m.browserCtx); err != nil {
			log.Warn().Err(err).Msg("Browser teardown reported an error, continuing")
		}
	}
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.browserCtx = nil
	m.browserCancel = nil
	m.allocCancel = nil
	m.ready = false
	log.Debug().Msg("Browser released")
}

// run executes chromedp actions against the live browser with a deadline
// derived from the caller's context.
func (m *Manager) run(ctx context.Context, actions ...chromedp.Action) error {
	if !m.ready {
		return errors.New("browser is not ready")
	}
	runCtx, cancel := mergeDeadline(m.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeDeadline applies the caller context's deadline (if any) to the
// browser context, so navigation respects per-job timeouts without
// cancelling the browser itself.
func mergeDeadline(browserCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := callerCtx.Deadline(); ok {
		return context.WithDeadline(browserCtx, deadline)
	}
	return context.WithCancel(browserCtx)
}
