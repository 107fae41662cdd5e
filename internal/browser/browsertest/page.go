// Package browsertest provides an in-memory browser.Page backed by goquery
// documents, for driving sessions and platform bots in tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-autopilot/internal/browser"
)

// Hook runs after a matching click or navigation. It is called without the
// page lock held, so it may freely mutate the page.
type Hook func(p *Page)

type clickHook struct {
	selector string
	fn       Hook
}

// Fill records a single Fill call.
type Fill struct {
	Selector string
	Index    int
	Value    string
}

// Page is a scripted browser.Page. The zero value is not usable; call New.
type Page struct {
	mu sync.Mutex

	docs       map[string]*goquery.Document
	url        string
	clickHooks []clickHook
	navHooks   map[string][]Hook

	navErrs   map[string]error
	queryErrs map[string]error
	clickErrs map[string]error

	jar    []browser.Cookie
	clicks []string
	fills  []Fill
	visits []string
	closed bool
}

// New returns an empty page positioned at about:blank.
func New() *Page {
	return &Page{
		docs:      make(map[string]*goquery.Document),
		url:       "about:blank",
		navHooks:  make(map[string][]Hook),
		navErrs:   make(map[string]error),
		queryErrs: make(map[string]error),
		clickErrs: make(map[string]error),
	}
}

// SetPage registers the HTML served for url, replacing any previous document.
func (p *Page) SetPage(url, html string) *Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("browsertest: bad html for %s: %v", url, err))
	}
	p.mu.Lock()
	p.docs[url] = doc
	p.mu.Unlock()
	return p
}

// Goto moves the page to url without running navigation hooks, as a
// client-side redirect would.
func (p *Page) Goto(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// OnClick runs fn whenever a clicked element matches selector.
func (p *Page) OnClick(selector string, fn Hook) *Page {
	p.mu.Lock()
	p.clickHooks = append(p.clickHooks, clickHook{selector: selector, fn: fn})
	p.mu.Unlock()
	return p
}

// OnNavigate runs fn after every navigation or reload landing on url.
func (p *Page) OnNavigate(url string, fn Hook) *Page {
	p.mu.Lock()
	p.navHooks[url] = append(p.navHooks[url], fn)
	p.mu.Unlock()
	return p
}

// FailNavigate makes navigation to url return err.
func (p *Page) FailNavigate(url string, err error) *Page {
	p.mu.Lock()
	p.navErrs[url] = err
	p.mu.Unlock()
	return p
}

// FailQuery makes queries for selector return err.
func (p *Page) FailQuery(selector string, err error) *Page {
	p.mu.Lock()
	p.queryErrs[selector] = err
	p.mu.Unlock()
	return p
}

// FailClick makes clicks on elements matching selector return err.
func (p *Page) FailClick(selector string, err error) *Page {
	p.mu.Lock()
	p.clickErrs[selector] = err
	p.mu.Unlock()
	return p
}

// Clicks returns the selectors of clicked elements in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Fills returns every recorded Fill call in order.
func (p *Page) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

// Visits returns every navigated URL in order, reloads included.
func (p *Page) Visits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// HasCookie reports whether the jar holds a cookie named name.
func (p *Page) HasCookie(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.jar {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errClosed
	}
	if err, ok := p.navErrs[url]; ok {
		p.mu.Unlock()
		return &browser.ActionError{Action: "navigate", Selector: url, Cause: err}
	}
	p.url = url
	p.visits = append(p.visits, url)
	hooks := append([]Hook(nil), p.navHooks[url]...)
	p.mu.Unlock()

	for _, h := range hooks {
		h(p)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	url := p.url
	p.mu.Unlock()
	return p.Navigate(ctx, url)
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errClosed
	}
	return p.url, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errClosed
	}
	doc := p.current()
	if doc == nil {
		return "<html><head></head><body></body></html>", nil
	}
	return doc.Html()
}

func (p *Page) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errClosed
	}
	if err, ok := p.queryErrs[selector]; ok {
		return nil, &browser.ActionError{Action: "query", Selector: selector, Cause: err}
	}
	doc := p.current()
	if doc == nil {
		return nil, nil
	}

	var out []browser.Element
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		out = append(out, snapshot(selector, i, s))
	})
	return out, nil
}

func (p *Page) Click(ctx context.Context, el browser.Element) error {
	p.mu.Lock()
	sel, err := p.resolve(el)
	if err != nil {
		p.mu.Unlock()
		return &browser.ActionError{Action: "click", Selector: el.Selector, Cause: err}
	}
	for hookSel, clickErr := range p.clickErrs {
		if sel.Is(hookSel) {
			p.mu.Unlock()
			return &browser.ActionError{Action: "click", Selector: el.Selector, Cause: clickErr}
		}
	}
	p.clicks = append(p.clicks, el.Selector)
	var hooks []Hook
	for _, h := range p.clickHooks {
		if sel.Is(h.selector) {
			hooks = append(hooks, h.fn)
		}
	}
	p.mu.Unlock()

	for _, h := range hooks {
		h(p)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, el browser.Element, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.resolve(el)
	if err != nil {
		return &browser.ActionError{Action: "fill", Selector: el.Selector, Cause: err}
	}
	sel.SetAttr("value", value)
	p.fills = append(p.fills, Fill{Selector: el.Selector, Index: el.Index, Value: value})
	return nil
}

func (p *Page) ScrollIntoView(ctx context.Context, el browser.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.resolve(el); err != nil {
		return &browser.ActionError{Action: "scroll", Selector: el.Selector, Cause: err}
	}
	return nil
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errClosed
	}
	return append([]browser.Cookie(nil), p.jar...), nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	for _, c := range cookies {
		replaced := false
		for i := range p.jar {
			if p.jar[i].Name == c.Name && p.jar[i].Domain == c.Domain {
				p.jar[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			p.jar = append(p.jar, c)
		}
	}
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *Page) current() *goquery.Document {
	return p.docs[p.url]
}

// resolve finds the live node an element snapshot refers to. Caller holds mu.
func (p *Page) resolve(el browser.Element) (*goquery.Selection, error) {
	if p.closed {
		return nil, errClosed
	}
	doc := p.current()
	if doc == nil {
		return nil, browser.ErrElementGone
	}
	sel := doc.Find(el.Selector).Eq(el.Index)
	if sel.Length() == 0 {
		return nil, browser.ErrElementGone
	}
	return sel, nil
}

func snapshot(selector string, index int, s *goquery.Selection) browser.Element {
	attrs := make(map[string]string)
	if node := s.Get(0); node != nil {
		for _, a := range node.Attr {
			attrs[a.Key] = a.Val
		}
	}
	return browser.Element{
		Selector: selector,
		Index:    index,
		Tag:      goquery.NodeName(s),
		Text:     strings.TrimSpace(s.Text()),
		Attrs:    attrs,
		Visible:  visible(s),
	}
}

// visible treats the hidden attribute, data-hidden, and an inline
// display:none on the node or any ancestor as invisible.
func visible(s *goquery.Selection) bool {
	hidden := false
	s.Parents().AddSelection(s).EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if _, ok := n.Attr("hidden"); ok {
			hidden = true
		} else if _, ok := n.Attr("data-hidden"); ok {
			hidden = true
		} else if style, ok := n.Attr("style"); ok {
			compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
			hidden = strings.Contains(compact, "display:none")
		}
		return !hidden
	})
	return !hidden
}

var errClosed = errors.New("browsertest: page closed")

// Launcher hands out pages built by New. Err, when set, fails every launch.
type Launcher struct {
	New func() *Page
	Err error

	mu     sync.Mutex
	opened []*Page
}

// NewPage implements browser.Launcher.
func (l *Launcher) NewPage(ctx context.Context) (browser.Page, error) {
	if l.Err != nil {
		return nil, &browser.LaunchError{Message: "scripted launch failure", Cause: l.Err}
	}
	var p *Page
	if l.New != nil {
		p = l.New()
	} else {
		p = New()
	}
	l.mu.Lock()
	l.opened = append(l.opened, p)
	l.mu.Unlock()
	return p, nil
}

// Opened returns every page handed out so far.
func (l *Launcher) Opened() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Page(nil), l.opened...)
}
