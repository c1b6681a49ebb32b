package bump_test

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
	"github.com/SKUMP0/fastjob-bot/internal/bump"
)

// testTimeouts keeps every poll in the low tens of milliseconds so negative
// waits resolve quickly.
func testTimeouts() bump.Timeouts {
	return bump.Timeouts{
		Visible:    30 * time.Millisecond,
		Render:     30 * time.Millisecond,
		Quiescence: time.Millisecond,
		ModalOpen:  30 * time.Millisecond,
		ModalClose: 30 * time.Millisecond,
	}
}

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

// fakePage is a scriptable in-memory Page. Selector lookups are literal map
// lookups on the exact selector string the component under test uses; hooks
// let a test mutate page state in response to clicks, focus and navigation,
// which is how dialog open/close and page transitions are simulated.
type fakePage struct {
	mu sync.Mutex

	url      string
	html     string
	visible  map[string]bool
	texts    map[string]string
	textList map[string][]string
	attrs    map[string]string // key: sel + "\x00" + name
	attrList map[string][]string
	counts   map[string]int
	marks    map[string][]string
	controls map[string]string // key: scope + "\x00" + pattern
	found    map[string]string // FindText; key: scope + "\x00" + pattern + "\x00" + visFlag
	cookies  []browser.Cookie

	clickErr   map[string]error // Click only
	forceErr   map[string]error // ForceClick only
	jsErr      map[string]error // JSClick only
	onClick    map[string]func(p *fakePage)
	onFocus    map[string]func(p *fakePage)
	onNavigate map[string]func(p *fakePage)
	onReload   func(p *fakePage)
	navErr     map[string]error

	clicks     []string
	forced     []string
	jsClicks   []string
	pressed    []string
	typed      map[string]string
	navigated  []string
	detached   []string
	screenshot int
}

func newFakePage() *fakePage {
	return &fakePage{
		visible:    map[string]bool{},
		texts:      map[string]string{},
		textList:   map[string][]string{},
		attrs:      map[string]string{},
		attrList:   map[string][]string{},
		counts:     map[string]int{},
		marks:      map[string][]string{},
		controls:   map[string]string{},
		found:      map[string]string{},
		clickErr:   map[string]error{},
		forceErr:   map[string]error{},
		jsErr:      map[string]error{},
		onClick:    map[string]func(p *fakePage){},
		onFocus:    map[string]func(p *fakePage){},
		onNavigate: map[string]func(p *fakePage){},
		navErr:     map[string]error{},
		typed:      map[string]string{},
	}
}

var _ browser.Page = (*fakePage)(nil)

func key2(a, b string) string { return a + "\x00" + b }

func key3(a, b string, vis bool) string {
	flag := "any"
	if vis {
		flag = "vis"
	}
	return a + "\x00" + b + "\x00" + flag
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	p.url = url
	if hook := p.onNavigate[url]; hook != nil {
		hook(p)
	}
	return nil
}

func (p *fakePage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onReload != nil {
		p.onReload(p)
	}
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Count(ctx context.Context, sel string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[sel], nil
}

func (p *fakePage) Text(ctx context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[sel], nil
}

func (p *fakePage) TextAll(ctx context.Context, sel string, max int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.textList[sel]
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (p *fakePage) Attr(ctx context.Context, sel, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attrs[key2(sel, name)], nil
}

func (p *fakePage) AttrAll(ctx context.Context, sel, name string, max int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.attrList[key2(sel, name)]
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (p *fakePage) Visible(ctx context.Context, sel string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[sel], nil
}

func (p *fakePage) MarkAll(ctx context.Context, sel string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks[sel], nil
}

func (p *fakePage) click(sel string, log *[]string, errs map[string]error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*log = append(*log, sel)
	if err := errs[sel]; err != nil {
		return err
	}
	if hook := p.onClick[sel]; hook != nil {
		hook(p)
	}
	return nil
}

func (p *fakePage) Click(ctx context.Context, sel string) error {
	return p.click(sel, &p.clicks, p.clickErr)
}

func (p *fakePage) ForceClick(ctx context.Context, sel string) error {
	return p.click(sel, &p.forced, p.forceErr)
}

func (p *fakePage) JSClick(ctx context.Context, sel string) error {
	return p.click(sel, &p.jsClicks, p.jsErr)
}

func (p *fakePage) Hover(ctx context.Context, sel string) error { return nil }

func (p *fakePage) Focus(ctx context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hook := p.onFocus[sel]; hook != nil {
		hook(p)
	}
	return nil
}

func (p *fakePage) ScrollIntoView(ctx context.Context, sel string) error { return nil }

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) Type(ctx context.Context, sel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed[sel] = text
	return nil
}

func (p *fakePage) FindControl(ctx context.Context, scope, pattern string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, ok := p.controls[key2(scope, pattern)]
	return sel, ok, nil
}

func (p *fakePage) FindText(ctx context.Context, scope, pattern string, visibleOnly bool) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, ok := p.found[key3(scope, pattern, visibleOnly)]
	return sel, ok, nil
}

func (p *fakePage) Detach(ctx context.Context, sel string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached = append(p.detached, sel)
	if p.visible[sel] {
		p.visible[sel] = false
		return 1, nil
	}
	return 0, nil
}

func (p *fakePage) WaitQuiescent(ctx context.Context, timeout time.Duration) error { return nil }

func (p *fakePage) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cookies, nil
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = cookies
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshot++
	return []byte("png"), nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

// set runs fn under the page lock; used by hooks installed before the test
// runs and by tests mutating state mid-flight.
func (p *fakePage) set(fn func(p *fakePage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}
