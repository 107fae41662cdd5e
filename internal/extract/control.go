package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/apply-autopilot/internal/browser"
)

// Querier is the slice of browser.Page needed to locate live controls.
type Querier interface {
	Query(ctx context.Context, selector string) ([]browser.Element, error)
}

// ControlSpec describes an actionable control such as an apply or submit
// button. An element qualifies when it is visible and its text or
// aria-label contains one of Keywords (case-insensitive). No keywords means
// any visible match qualifies.
type ControlSpec struct {
	Name      string
	Selectors []string
	Keywords  []string
}

// Accepts reports whether el qualifies as this control.
func (s ControlSpec) Accepts(el browser.Element) bool {
	if !el.Visible {
		return false
	}
	if len(s.Keywords) == 0 {
		return true
	}
	text := strings.ToLower(el.Text)
	if el.Tag == "input" {
		// input buttons carry their caption in value
		text = strings.ToLower(el.Value())
	}
	label := strings.ToLower(el.Attr("aria-label"))
	for _, kw := range s.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(text, kw) || strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// IsZero reports whether the spec names no selectors.
func (s ControlSpec) IsZero() bool {
	return len(s.Selectors) == 0
}

// FindControl returns the first qualifying element, trying selectors in
// order. Query failures advance to the next selector.
func FindControl(ctx context.Context, q Querier, spec ControlSpec) (browser.Element, error) {
	for _, sel := range spec.Selectors {
		if err := ctx.Err(); err != nil {
			return browser.Element{}, err
		}
		els, err := q.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if spec.Accepts(el) {
				return el, nil
			}
		}
	}
	return browser.Element{}, fmt.Errorf("%s control: %w", spec.Name, ErrNotFound)
}

// FindControls returns every qualifying element for the first selector that
// yields at least one. More than one result means the control is ambiguous.
func FindControls(ctx context.Context, q Querier, spec ControlSpec) ([]browser.Element, error) {
	for _, sel := range spec.Selectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		els, err := q.Query(ctx, sel)
		if err != nil {
			continue
		}
		var out []browser.Element
		for _, el := range els {
			if spec.Accepts(el) {
				out = append(out, el)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s control: %w", spec.Name, ErrNotFound)
}

// Present returns the first selector with at least one element on the page.
func Present(ctx context.Context, q Querier, selectors []string) (string, bool) {
	for _, sel := range selectors {
		els, err := q.Query(ctx, sel)
		if err == nil && len(els) > 0 {
			return sel, true
		}
	}
	return "", false
}
