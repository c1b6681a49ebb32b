package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	opTimeout      = 10 * time.Second
	settleDelay    = 300 * time.Millisecond
	viewportWidth  = 1366
	viewportHeight = 900

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"
)

// ChromeLauncher launches one Chrome instance per cycle.
type ChromeLauncher struct {
	Headless bool
	Log      *zap.SugaredLogger
}

var _ Launcher = (*ChromeLauncher)(nil)

// Launch starts Chrome and returns a Page bound to a fresh tab. The cleanup
// function tears down the tab and the browser process.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, func(), error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.Headless),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so launch failures surface here,
	// not on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, nil, errors.Wrap(err, "launch chrome")
	}

	l.Log.Infow("browser launched", "headless", l.Headless)
	cleanup := func() {
		cancelTab()
		cancelAlloc()
	}
	return &chromePage{ctx: tabCtx, log: l.Log}, cleanup, nil
}

// chromePage implements Page over a chromedp tab context.
type chromePage struct {
	ctx context.Context
	log *zap.SugaredLogger
}

var _ Page = (*chromePage)(nil)

// run executes actions against the tab with a bounded timeout.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, opTimeout*2, chromedp.Navigate(url))
}

func (p *chromePage) Reload(ctx context.Context) error {
	return p.run(ctx, opTimeout*2, chromedp.Reload())
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, opTimeout, chromedp.Location(&u))
	return u, err
}

func (p *chromePage) Count(ctx context.Context, sel string) (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &n))
	return n, err
}

func (p *chromePage) Text(ctx context.Context, sel string) (string, error) {
	var text string
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.innerText : ""; })()`, sel)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &text))
	return text, err
}

func (p *chromePage) TextAll(ctx context.Context, sel string, max int) ([]string, error) {
	var texts []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).slice(0, %d).map(el => el.innerText || "")`,
		sel, max)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &texts))
	return texts, err
}

func (p *chromePage) Attr(ctx context.Context, sel, name string) (string, error) {
	var value string
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? (el.getAttribute(%q) || "") : ""; })()`,
		sel, name)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &value))
	return value, err
}

func (p *chromePage) AttrAll(ctx context.Context, sel, name string, max int) ([]string, error) {
	var values []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).slice(0, %d).map(el => el.getAttribute(%q) || "")`,
		sel, max, name)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &values))
	return values, err
}

func (p *chromePage) Visible(ctx context.Context, sel string) (bool, error) {
	var visible bool
	js := fmt.Sprintf(`(() => {
		for (const el of document.querySelectorAll(%q)) {
			const s = getComputedStyle(el);
			if (s.display === 'none' || s.visibility === 'hidden' || Number(s.opacity) === 0) continue;
			const r = el.getBoundingClientRect();
			if (r.width > 0 && r.height > 0) return true;
		}
		return false;
	})()`, sel)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &visible))
	return visible, err
}

func (p *chromePage) MarkAll(ctx context.Context, sel string) ([]string, error) {
	var marks []string
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map((el, i) => {
		const mark = 'm' + Date.now() + 'i' + i;
		el.setAttribute('data-fjb-mark', mark);
		return "[data-fjb-mark='" + mark + "']";
	})`, sel)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &marks))
	return marks, err
}

func (p *chromePage) Click(ctx context.Context, sel string) error {
	return p.run(ctx, opTimeout, chromedp.Click(sel, chromedp.ByQuery))
}

func (p *chromePage) ForceClick(ctx context.Context, sel string) error {
	var hit bool
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		for (const t of ['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click']) {
			el.dispatchEvent(new MouseEvent(t, {bubbles: true, cancelable: true, view: window}));
		}
		return true;
	})()`, sel)
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &hit)); err != nil {
		return err
	}
	if !hit {
		return errors.Newf("force click: no element matches %q", sel)
	}
	return nil
}

func (p *chromePage) JSClick(ctx context.Context, sel string) error {
	var hit bool
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (!el) return false; el.click(); return true; })()`, sel)
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &hit)); err != nil {
		return err
	}
	if !hit {
		return errors.Newf("js click: no element matches %q", sel)
	}
	return nil
}

func (p *chromePage) Hover(ctx context.Context, sel string) error {
	var hit bool
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		for (const t of ['pointerover', 'pointermove', 'mouseover', 'mouseenter', 'mousemove']) {
			el.dispatchEvent(new MouseEvent(t, {bubbles: true, cancelable: true, view: window}));
		}
		return true;
	})()`, sel)
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &hit)); err != nil {
		return err
	}
	if !hit {
		return errors.Newf("hover: no element matches %q", sel)
	}
	return nil
}

func (p *chromePage) Focus(ctx context.Context, sel string) error {
	return p.run(ctx, opTimeout, chromedp.Focus(sel, chromedp.ByQuery))
}

func (p *chromePage) ScrollIntoView(ctx context.Context, sel string) error {
	var hit bool
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (!el) return false; el.scrollIntoView({block: 'center'}); return true; })()`,
		sel)
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &hit)); err != nil {
		return err
	}
	if !hit {
		return errors.Newf("scroll: no element matches %q", sel)
	}
	return nil
}

func (p *chromePage) Press(ctx context.Context, key string) error {
	if key == "Escape" {
		key = kb.Escape
	}
	return p.run(ctx, opTimeout, chromedp.KeyEvent(key))
}

// Type clicks the field, clears it, then sends keystrokes one by one — some
// login forms reject values set programmatically.
func (p *chromePage) Type(ctx context.Context, sel, text string) error {
	return p.run(ctx, opTimeout,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

func (p *chromePage) FindControl(ctx context.Context, scope, pattern string) (string, bool, error) {
	js := fmt.Sprintf(`(() => {
		const scope = %q ? document.querySelector(%q) : document;
		if (!scope) return "";
		const re = new RegExp(%q, 'i');
		const cands = scope.querySelectorAll("button, a, [role='button'], input[type='submit'], input[type='button']");
		let n = 0;
		for (const el of cands) {
			const name = (el.getAttribute('aria-label') || el.innerText || el.value || '').trim();
			if (!re.test(name)) continue;
			const mark = 'c' + Date.now() + 'n' + (n++);
			el.setAttribute('data-fjb-hit', mark);
			return "[data-fjb-hit='" + mark + "']";
		}
		return "";
	})()`, scope, scope, pattern)
	var sel string
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &sel)); err != nil {
		return "", false, err
	}
	return sel, sel != "", nil
}

func (p *chromePage) FindText(ctx context.Context, scope, pattern string, visibleOnly bool) (string, bool, error) {
	js := fmt.Sprintf(`(() => {
		const scope = %q ? document.querySelector(%q) : document;
		if (!scope) return "";
		const re = new RegExp(%q, 'i');
		const isVisible = el => {
			const s = getComputedStyle(el);
			if (s.display === 'none' || s.visibility === 'hidden') return false;
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		};
		let n = 0;
		for (const el of scope.querySelectorAll('*')) {
			if (el.children.length > 0) continue;
			const text = (el.innerText || '').trim();
			if (!text || !re.test(text)) continue;
			if (%t && !isVisible(el)) continue;
			const mark = 't' + Date.now() + 'n' + (n++);
			el.setAttribute('data-fjb-hit', mark);
			return "[data-fjb-hit='" + mark + "']";
		}
		return "";
	})()`, scope, scope, pattern, visibleOnly)
	var sel string
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &sel)); err != nil {
		return "", false, err
	}
	return sel, sel != "", nil
}

func (p *chromePage) Detach(ctx context.Context, sel string) (int, error) {
	var removed int
	js := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%q);
		els.forEach(el => el.remove());
		document.body.style.overflow = '';
		document.documentElement.style.overflow = '';
		document.body.classList.remove('modal-open');
		return els.length;
	})()`, sel)
	err := p.run(ctx, opTimeout, chromedp.Evaluate(js, &removed))
	return removed, err
}

// WaitQuiescent approximates network idle: poll readyState until complete,
// then allow a short settle for late XHR-driven renders.
func (p *chromePage) WaitQuiescent(ctx context.Context, timeout time.Duration) error {
	PollUntil(ctx, timeout, pollInterval, func(ctx context.Context) (bool, error) {
		var state string
		if err := p.run(ctx, opTimeout, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return false, err
		}
		return state == "complete", nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
		return nil
	}
}

func (p *chromePage) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := p.run(ctx, opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	}))
	return out, err
}

func (p *chromePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	return p.run(ctx, opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			param := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			}
			if c.SameSite != "" {
				param.SameSite = network.CookieSameSite(c.SameSite)
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param.Expires = &expires
			}
			params = append(params, param)
		}
		return storage.SetCookies(params).Do(ctx)
	}))
}

func (p *chromePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var err error
	if fullPage {
		err = p.run(ctx, opTimeout, chromedp.FullScreenshot(&buf, 90))
	} else {
		err = p.run(ctx, opTimeout, chromedp.CaptureScreenshot(&buf))
	}
	return buf, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}
