// Package browser abstracts a single automated browser context so drivers
// can be exercised against a real Chrome instance or a scripted fake.
package browser

import (
	"context"
	"strings"
)

// Page is one browser context owned by exactly one session.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, el Element) error
	Fill(ctx context.Context, el Element, value string) error
	ScrollIntoView(ctx context.Context, el Element) error
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	Close() error
}

// Launcher opens new pages. Every call yields an isolated browser context.
type Launcher interface {
	NewPage(ctx context.Context) (Page, error)
}

// Element is a snapshot of the Index-th node matching Selector at query time.
// Actions on a Page address the node by (Selector, Index).
type Element struct {
	Selector string            `json:"selector"`
	Index    int               `json:"index"`
	Tag      string            `json:"tag"`
	Text     string            `json:"text"`
	Attrs    map[string]string `json:"attrs"`
	Visible  bool              `json:"visible"`
}

// Attr returns the named attribute or "".
func (e Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// Label returns the accessible label of a form control, falling back to its
// placeholder.
func (e Element) Label() string {
	if v := strings.TrimSpace(e.Attr("aria-label")); v != "" {
		return v
	}
	return strings.TrimSpace(e.Attr("placeholder"))
}

// Value returns the current value of an input element.
func (e Element) Value() string {
	return e.Attr("value")
}

// IsZero reports whether the element reference is unset.
func (e Element) IsZero() bool {
	return e.Selector == ""
}

// Cookie is a browser cookie in a storage-friendly shape.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}
