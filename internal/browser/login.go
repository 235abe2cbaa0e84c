// internal/browser/login.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// NavigateAndAuthenticate lands the browser on targetURL, detouring through
// a manual login when the site demands one, and returns the rendered page
// HTML after the settle delay.
//
// Flow: navigate to loginURL; if the resulting address does not indicate a
// login requirement, go straight to targetURL. When credential fields are
// present and the browser is headless, it is relaunched in attended mode so
// a human can type; the call then blocks (executor-only, callers keep
// enqueueing) until the login-submission control disappears, bounded by the
// configured login wait.
func (m *Manager) NavigateAndAuthenticate(ctx context.Context, loginURL, targetURL string) (string, error) {
	addr, err := m.navigate(ctx, loginURL)
	if err != nil {
		return "", fmt.Errorf("failed to reach login page: %w", err)
	}

	if m.opts.IsLoginAddress(addr) {
		if err := m.completeLogin(ctx, loginURL); err != nil {
			return "", err
		}
	}

	return m.renderTarget(ctx, targetURL)
}

// completeLogin handles the manual-login detour from an address that
// demands authentication.
func (m *Manager) completeLogin(ctx context.Context, loginURL string) error {
	hasFields, err := m.hasCredentialFields(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe login page: %w", err)
	}

	if hasFields && m.headless {
		log.Info().Msg("Login requires manual input, relaunching browser in attended mode")
		m.teardown()
		if err := m.launch(ctx, false); err != nil {
			return fmt.Errorf("failed to relaunch attended browser: %w", err)
		}
		if _, err := m.navigate(ctx, loginURL); err != nil {
			return fmt.Errorf("failed to re-reach login page: %w", err)
		}
	}

	return m.waitForLogin(ctx)
}

// navigate goes to url and reports the address actually landed on, which
// differs from url when the site redirects into its login flow.
func (m *Manager) navigate(ctx context.Context, url string) (string, error) {
	var addr string
	err := m.run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Location(&addr),
	)
	if err != nil {
		return "", err
	}
	log.Debug().Str("requested", url).Str("landed", addr).Msg("Navigation completed")
	return addr, nil
}

// hasCredentialFields probes the current page for credential-entry inputs.
func (m *Manager) hasCredentialFields(ctx context.Context) (bool, error) {
	var present bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, m.opts.CredentialFieldQuery)
	if err := m.run(ctx, chromedp.Evaluate(script, &present)); err != nil {
		return false, err
	}
	return present, nil
}

// waitForLogin polls until the login-submission control disappears,
// signalling a completed login, bounded by the configured ceiling.
func (m *Manager) waitForLogin(ctx context.Context) error {
	deadline := time.Now().Add(m.opts.LoginWait)
	script := fmt.Sprintf(`document.querySelector(%q) === null`, m.opts.LoginSubmitQuery)

	log.Info().Dur("ceiling", m.opts.LoginWait).
		Msg("Waiting for manual login to complete")

	for {
		var gone bool
		if err := m.run(ctx, chromedp.Evaluate(script, &gone)); err != nil {
			return fmt.Errorf("failed to poll login control: %w", err)
		}
		if gone {
			if n := m.sessionCookieCount(ctx); n == 0 {
				log.Warn().Msg("Login control gone but no session cookies present")
			} else {
				log.Info().Int("cookies", n).Msg("Manual login completed")
			}
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLoginTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// sessionCookieCount reports how many cookies the profile currently holds.
// Best-effort: probe failures count as zero.
func (m *Manager) sessionCookieCount(ctx context.Context) int {
	var count int
	err := m.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		count = len(cookies)
		return nil
	}))
	if err != nil {
		log.Debug().Err(err).Msg("Cookie probe failed")
		return 0
	}
	return count
}

// renderTarget navigates to the target page, waits out the settle delay for
// client-side rendering, and returns the document HTML.
func (m *Manager) renderTarget(ctx context.Context, targetURL string) (string, error) {
	var html string
	err := m.run(ctx,
		chromedp.Navigate(targetURL),
		chromedp.Sleep(m.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", targetURL, err)
	}
	return html, nil
}
