package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// DefaultUserAgent mimics a desktop Chrome so sites serve the full layout.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures how Chrome instances are launched.
type Options struct {
	Headless          bool
	UserAgent         string
	UserDataDir       string // empty means a throwaway profile
	WindowWidth       int
	WindowHeight      int
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
}

// DefaultOptions returns sensible defaults for automation sessions.
func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		WindowWidth:       1920,
		WindowHeight:      1080,
		NavigationTimeout: 30 * time.Second,
		ActionTimeout:     10 * time.Second,
	}
}

// Chrome launches chromedp-backed pages. Each page gets its own allocator
// and browser context.
type Chrome struct {
	opts   *Options
	logger zerolog.Logger
}

// NewChrome creates a launcher. A nil opts uses DefaultOptions.
func NewChrome(opts *Options, logger zerolog.Logger) *Chrome {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Chrome{opts: opts, logger: logger}
}

// NewPage starts a browser and returns its single page. Requires
// Chrome/Chromium to be installed on the system.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(c.opts.WindowWidth, c.opts.WindowHeight),
	)
	if c.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(c.opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run launches the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &LaunchError{Message: "failed to start chrome", Cause: err}
	}

	c.logger.Debug().Bool("headless", c.opts.Headless).Msg("browser context started")

	return &chromePage{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		opts:   c.opts,
		logger: c.logger,
	}, nil
}

type chromePage struct {
	ctx       context.Context
	cancel    func()
	opts      *Options
	logger    zerolog.Logger
	closeOnce sync.Once
}

// run executes actions on the browser context, bounded by timeout and by the
// caller's ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return &ActionError{Action: "navigate", Selector: url, Cause: err}
	}
	return nil
}

func (p *chromePage) Reload(ctx context.Context) error {
	err := p.run(ctx, p.opts.NavigationTimeout,
		chromedp.Reload(),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return &ActionError{Action: "reload", Cause: err}
	}
	return nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", &ActionError{Action: "location", Cause: err}
	}
	return loc, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &ActionError{Action: "read html", Cause: err}
	}
	return html, nil
}

func (p *chromePage) Query(ctx context.Context, selector string) ([]Element, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	var elements []Element
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(fmt.Sprintf(queryScript, sel), &elements)); err != nil {
		return nil, &ActionError{Action: "query", Selector: selector, Cause: err}
	}
	return elements, nil
}

func (p *chromePage) Click(ctx context.Context, el Element) error {
	return p.act(ctx, "click", el, "")
}

func (p *chromePage) Fill(ctx context.Context, el Element, value string) error {
	return p.act(ctx, "fill", el, value)
}

func (p *chromePage) ScrollIntoView(ctx context.Context, el Element) error {
	return p.act(ctx, "scroll", el, "")
}

func (p *chromePage) act(ctx context.Context, action string, el Element, value string) error {
	sel, err := json.Marshal(el.Selector)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var ok bool
	script := fmt.Sprintf(actionScript, sel, el.Index, action, val)
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(script, &ok)); err != nil {
		return &ActionError{Action: action, Selector: el.Selector, Cause: err}
	}
	if !ok {
		return &ActionError{Action: action, Selector: el.Selector, Cause: ErrElementGone}
	}
	return nil
}

func (p *chromePage) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := p.run(ctx, p.opts.ActionTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := network.GetCookies().Do(ctx)
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
					Secure:   c.Secure,
					HTTPOnly: c.HTTPOnly,
					SameSite: string(c.SameSite),
				})
			}
			return nil
		}),
	)
	if err != nil {
		return nil, &ActionError{Action: "read cookies", Cause: err}
	}
	return out, nil
}

func (p *chromePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	failed := 0
	err := p.run(ctx, p.opts.ActionTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				params := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.SameSite != "" {
					params = params.WithSameSite(network.CookieSameSite(c.SameSite))
				}
				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					params = params.WithExpires(&expires)
				}
				// One rejected cookie should not block the rest.
				if err := params.Do(ctx); err != nil {
					failed++
				}
			}
			return nil
		}),
	)
	if err != nil {
		return &ActionError{Action: "set cookies", Cause: err}
	}
	if failed > 0 {
		p.logger.Debug().Int("failed", failed).Int("total", len(cookies)).Msg("some cookies were rejected")
	}
	return nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.logger.Debug().Msg("browser context closed")
	})
	return nil
}

const queryScript = `(function(sel) {
	var out = [];
	var nodes;
	try { nodes = document.querySelectorAll(sel); } catch (e) { return out; }
	for (var i = 0; i < nodes.length; i++) {
		var el = nodes[i];
		var attrs = {};
		for (var j = 0; j < el.attributes.length; j++) {
			attrs[el.attributes[j].name] = el.attributes[j].value;
		}
		if ('value' in el) { attrs['value'] = String(el.value || ''); }
		var style = window.getComputedStyle(el);
		var rect = el.getBoundingClientRect();
		var visible = style.display !== 'none' && style.visibility !== 'hidden' && (rect.width > 0 || rect.height > 0);
		out.push({
			selector: sel,
			index: i,
			tag: el.tagName.toLowerCase(),
			text: (el.innerText || el.textContent || '').trim(),
			attrs: attrs,
			visible: visible
		});
	}
	return out;
})(%s)`

const actionScript = `(function(sel, idx, action, value) {
	var el = document.querySelectorAll(sel)[idx];
	if (!el) { return false; }
	switch (action) {
	case 'click':
		el.click();
		break;
	case 'scroll':
		el.scrollIntoView({block: 'center'});
		break;
	case 'fill':
		el.focus();
		var desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), 'value');
		if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		break;
	}
	return true;
})(%s, %d, %q, %s)`
