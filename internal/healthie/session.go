// Package healthie automates the Healthie patient-management portal through
// a real browser: one authenticated session shared by the patient finder and
// the appointment scheduler.
package healthie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

const (
	// DefaultBaseURL is the portal origin used when none is configured.
	DefaultBaseURL = "https://secure.gethealthie.com"

	signInPath = "/users/sign_in"

	// otpSubjectFilter identifies the sign-in challenge email.
	otpSubjectFilter = "Sign-in verification code"

	// passkeySkipWaitMs bounds the wait for the "continue to app" fast path
	// before falling back to the emailed code.
	passkeySkipWaitMs = 3000

	otpDigits = 6
)

var (
	// ErrMissingCredentials is returned before any browser interaction when
	// the portal identity or password is absent.
	ErrMissingCredentials = errors.New("healthie: portal credentials are not configured")

	// ErrLoginFailed is returned when the login protocol finishes but the
	// page still shows the sign-in screen.
	ErrLoginFailed = errors.New("healthie: login did not reach an authenticated state")
)

// CodeSource supplies emailed sign-in verification codes.
type CodeSource interface {
	GetOTP(ctx context.Context, timeout time.Duration, senderFilter, subjectFilter string) (string, error)
}

// SessionConfig holds the settings for the portal session.
type SessionConfig struct {
	Email    string
	Password string
	BaseURL  string
	Headless bool

	// OTPGracePeriod is how long to wait for the challenge email to arrive
	// before polling the inbox. There is no readiness signal for mail
	// delivery, so this one stays a fixed delay.
	OTPGracePeriod time.Duration
	// OTPTimeout bounds the inbox polling itself.
	OTPTimeout time.Duration
}

// sessionProvider is the slice of SessionManager the finder and scheduler
// depend on.
type sessionProvider interface {
	Acquire(ctx context.Context) (playwright.Page, func(), error)
	BaseURL() string
}

// SessionManager owns the single process-wide authenticated browser session.
// Acquire is idempotent: the first call logs in, later calls return the same
// live page. The operation lock handed out by Acquire keeps all portal
// operations strictly sequential; there is one page and interleaved clicks
// would corrupt both flows.
type SessionManager struct {
	cfg    SessionConfig
	codes  CodeSource
	logger *logging.Logger

	// opMu spans a whole portal operation, from Acquire until the caller
	// releases. mu only guards the session state itself.
	opMu    sync.Mutex
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// NewSessionManager validates credentials and returns an unauthenticated
// manager. No browser is launched until Acquire.
func NewSessionManager(cfg SessionConfig, codes CodeSource, logger *logging.Logger) (*SessionManager, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.OTPGracePeriod <= 0 {
		cfg.OTPGracePeriod = 10 * time.Second
	}
	if cfg.OTPTimeout <= 0 {
		cfg.OTPTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionManager{cfg: cfg, codes: codes, logger: logger}, nil
}

// BaseURL returns the portal origin the session is bound to.
func (m *SessionManager) BaseURL() string {
	return m.cfg.BaseURL
}

// Acquire returns the authenticated page, logging in on first use, and a
// release func the caller must invoke once its whole portal operation is
// done. The page stays exclusively held until release; calling release more
// than once is safe. A failed login tears the partial session down so the
// next call starts clean.
func (m *SessionManager) Acquire(ctx context.Context) (playwright.Page, func(), error) {
	m.opMu.Lock()
	var once sync.Once
	release := func() { once.Do(m.opMu.Unlock) }

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.page != nil {
		return m.page, release, nil
	}

	page, err := m.login(ctx)
	if err != nil {
		if terr := m.teardownLocked(); terr != nil {
			m.logger.Warn("teardown after failed login", "error", terr)
		}
		release()
		return nil, nil, err
	}
	m.page = page
	return page, release, nil
}

// Release closes the browser and driver and resets the manager to its
// unauthenticated state. It waits for any in-flight operation to finish.
// Safe to call when no session exists.
func (m *SessionManager) Release() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardownLocked()
}

func (m *SessionManager) teardownLocked() error {
	var errs []error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("healthie: close browser: %w", err))
		}
		m.browser = nil
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("healthie: stop driver: %w", err))
		}
		m.pw = nil
	}
	m.page = nil
	return errors.Join(errs...)
}

// login drives the sign-in protocol: identifier, password, then either the
// passkeys "continue to app" fast path or the emailed verification code.
func (m *SessionManager) login(ctx context.Context) (playwright.Page, error) {
	m.logger.Info("logging into portal", "base_url", m.cfg.BaseURL)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("healthie: start playwright: %w", err)
	}
	m.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.cfg.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("healthie: launch browser: %w", err)
	}
	m.browser = browser

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, fmt.Errorf("healthie: new browser context: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("healthie: new page: %w", err)
	}
	page.SetDefaultNavigationTimeout(defaultWaitMs)

	if _, err := page.Goto(m.cfg.BaseURL+signInPath, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("healthie: open sign-in page: %w", err)
	}

	emailInput := page.Locator(`input[name="identifier"], [data-test-id="input-identifier"]`)
	if err := waitVisible(emailInput, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: identifier field not visible: %w", err)
	}
	if err := emailInput.Fill(m.cfg.Email); err != nil {
		return nil, fmt.Errorf("healthie: fill identifier: %w", err)
	}
	if err := m.clickLogin(page); err != nil {
		return nil, err
	}

	passwordInput := page.Locator(`input[name="password"]`)
	if err := waitVisible(passwordInput, maxWaitMs); err != nil {
		return nil, fmt.Errorf("healthie: password field not visible: %w", err)
	}
	if err := passwordInput.Fill(m.cfg.Password); err != nil {
		return nil, fmt.Errorf("healthie: fill password: %w", err)
	}
	if err := m.clickLogin(page); err != nil {
		return nil, err
	}

	// Fast path: skip the emailed code when the passkeys screen offers a
	// direct continue.
	continueButton := page.Locator(testID("passkeys-continue-to-app"))
	if err := waitVisible(continueButton, passkeySkipWaitMs); err == nil {
		if err := continueButton.Click(); err != nil {
			return nil, fmt.Errorf("healthie: continue to app: %w", err)
		}
		m.logger.Info("signed in via passkey continue")
	} else if err := m.completeOTPChallenge(ctx, page); err != nil {
		return nil, err
	}

	// The portal navigates away from the sign-in screen once the session is
	// established; poll rather than trusting a fixed settle time.
	authenticated := waitUntil(15*time.Second, 250*time.Millisecond, func() bool {
		return !strings.Contains(page.URL(), "sign_in")
	})
	if !authenticated {
		return nil, ErrLoginFailed
	}

	m.logger.Info("portal session established")
	return page, nil
}

func (m *SessionManager) clickLogin(page playwright.Page) error {
	button := page.Locator(`button:has-text("Log In")`)
	if err := waitVisible(button, maxWaitMs); err != nil {
		return fmt.Errorf("healthie: log-in button not visible: %w", err)
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("healthie: click log in: %w", err)
	}
	return nil
}

// completeOTPChallenge waits out the mail-delivery grace period, fetches the
// emailed code, and types its digits into the six single-digit inputs.
func (m *SessionManager) completeOTPChallenge(ctx context.Context, page playwright.Page) error {
	if m.codes == nil {
		return fmt.Errorf("healthie: verification code required but no code source configured")
	}

	m.logger.Info("waiting for verification code email", "grace_period", m.cfg.OTPGracePeriod)
	select {
	case <-ctx.Done():
		return fmt.Errorf("healthie: %w", ctx.Err())
	case <-time.After(m.cfg.OTPGracePeriod):
	}

	code, err := m.codes.GetOTP(ctx, m.cfg.OTPTimeout, "", otpSubjectFilter)
	if err != nil {
		return fmt.Errorf("healthie: retrieve verification code: %w", err)
	}
	if len(code) != otpDigits {
		return fmt.Errorf("healthie: verification code %q is not %d digits", code, otpDigits)
	}

	for i, digit := range code {
		input := page.Locator(fmt.Sprintf(`div[data-test-id="otc-input-%d"] input`, i))
		if err := input.Fill(string(digit)); err != nil {
			return fmt.Errorf("healthie: fill code digit %d: %w", i, err)
		}
	}
	return nil
}
