// Package session produces an authenticated browser session for a cycle.
// It reuses cookies persisted from earlier cycles so the portal login is not
// repeated needlessly, and falls back to typing credentials when the login
// form is actually presented.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

const (
	emailFieldSel    = "input[type='email'], input[name*='email' i], input[name*='username' i]"
	passwordFieldSel = "input[type='password']"

	formWait  = 3 * time.Second
	loginWait = 15 * time.Second
)

// Manager holds credentials and the session-state file location.
type Manager struct {
	StateFile string
	LoginURL  string
	Email     string
	Password  string
	Log       *zap.SugaredLogger
}

// EnsureLoggedIn restores any persisted cookie state, visits the login page
// and, only if the credential form is visible, types the credentials and
// submits. An already-authenticated session short-circuits: the bounded wait
// for the form elapsing is success, not an error.
func (m *Manager) EnsureLoggedIn(ctx context.Context, page browser.Page) error {
	if cookies := m.loadState(); len(cookies) > 0 {
		if err := page.SetCookies(ctx, cookies); err != nil {
			m.Log.Warnw("restoring session cookies failed", "err", err)
		} else {
			m.Log.Infow("session cookies restored", "count", len(cookies))
		}
	}

	if err := page.Navigate(ctx, m.LoginURL); err != nil {
		return errors.Wrap(err, "open login page")
	}
	page.WaitQuiescent(ctx, 5*time.Second)

	if !browser.WaitVisible(ctx, page, passwordFieldSel, formWait) {
		m.Log.Infow("login form not shown, session still valid")
		return nil
	}

	if m.Email == "" || m.Password == "" {
		return errors.New("login form shown but FASTJOBS_EMAIL / FASTJOBS_PASSWORD are not set")
	}

	m.Log.Infow("login form shown, submitting credentials")
	if err := page.Type(ctx, emailFieldSel, m.Email); err != nil {
		return errors.Wrap(err, "fill email")
	}
	if err := page.Type(ctx, passwordFieldSel, m.Password); err != nil {
		return errors.Wrap(err, "fill password")
	}

	submitSel, ok, err := page.FindControl(ctx, "", `login|sign in`)
	if err != nil || !ok {
		return errors.New("login submit button not found")
	}
	if err := page.Click(ctx, submitSel); err != nil {
		return errors.Wrap(err, "click login")
	}

	// Success heuristic: we navigate away from the login path.
	loggedIn := browser.PollUntil(ctx, loginWait, 250*time.Millisecond, func(ctx context.Context) (bool, error) {
		u, err := page.URL(ctx)
		if err != nil {
			return false, err
		}
		return u != "" && !strings.Contains(u, "/site/login"), nil
	})
	if !loggedIn {
		return errors.New("still on the login page after submitting credentials")
	}

	m.Log.Infow("logged in")
	return nil
}

// Save persists the page's cookies so the next cycle can skip the login form.
// Called at the end of every cycle regardless of per-posting failures.
func (m *Manager) Save(ctx context.Context, page browser.Page) error {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return errors.Wrap(err, "read cookies")
	}
	if err := os.MkdirAll(filepath.Dir(m.StateFile), 0o755); err != nil {
		return errors.Wrap(err, "create state directory")
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session state")
	}
	return errors.Wrap(os.WriteFile(m.StateFile, data, 0o600), "write session state")
}

// loadState reads the persisted cookie file; missing or corrupt state is
// simply an empty session.
func (m *Manager) loadState() []browser.Cookie {
	data, err := os.ReadFile(m.StateFile)
	if err != nil {
		return nil
	}
	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		m.Log.Warnw("session state file unreadable, ignoring", "path", m.StateFile, "err", err)
		return nil
	}
	return cookies
}
