// Package extract reads logical fields out of volatile markup by trying an
// ordered chain of locator strategies until one yields a non-blank value.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotFound is returned by a strategy that located nothing usable.
var ErrNotFound = errors.New("extract: not found")

// Strategy is one candidate rule for reading a field from a scope.
type Strategy func(scope *goquery.Selection) (string, error)

// Text reads the trimmed text of the first element matching selector that
// has any.
func Text(selector string) Strategy {
	return func(scope *goquery.Selection) (string, error) {
		var out string
		scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = Clean(s.Text())
			return out == ""
		})
		if out == "" {
			return "", ErrNotFound
		}
		return out, nil
	}
}

// Attr reads attribute name from the first element matching selector that
// carries it. An empty selector reads from the scope itself.
func Attr(selector, name string) Strategy {
	return func(scope *goquery.Selection) (string, error) {
		target := scope
		if selector != "" {
			target = scope.Find(selector)
		}
		var out string
		target.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(name)
			out = strings.TrimSpace(v)
			return out == ""
		})
		if out == "" {
			return "", ErrNotFound
		}
		return out, nil
	}
}

// Pattern matches re against the scope's whitespace-normalized text. The
// first submatch is returned when the expression has one.
func Pattern(re *regexp.Regexp) Strategy {
	return func(scope *goquery.Selection) (string, error) {
		m := re.FindStringSubmatch(Clean(scope.Text()))
		switch {
		case m == nil:
			return "", ErrNotFound
		case len(m) > 1:
			return m[1], nil
		default:
			return m[0], nil
		}
	}
}

// Chain is an ordered list of strategies, most specific first.
type Chain []Strategy

// First returns the first non-blank value produced by the chain. Strategy
// errors and panics are swallowed and the next strategy is tried.
func (c Chain) First(scope *goquery.Selection) (string, bool) {
	for _, s := range c {
		v, err := attempt(s, scope)
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}

// Or returns the chain's value, or fallback when nothing matched.
func (c Chain) Or(scope *goquery.Selection, fallback string) string {
	if v, ok := c.First(scope); ok {
		return v
	}
	return fallback
}

func attempt(s Strategy, scope *goquery.Selection) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: strategy panicked: %v", r)
		}
	}()
	return s(scope)
}

// ListStrategy reads an ordered multi-valued field.
type ListStrategy func(scope *goquery.Selection) ([]string, error)

// Texts collects the distinct trimmed texts of elements matching selector,
// in document order, keeping at most limit (0 means unlimited).
func Texts(selector string, limit int) ListStrategy {
	return func(scope *goquery.Selection) ([]string, error) {
		var out []string
		seen := make(map[string]bool)
		scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v := Clean(s.Text())
			if v == "" || seen[v] {
				return true
			}
			seen[v] = true
			out = append(out, v)
			return limit <= 0 || len(out) < limit
		})
		if len(out) == 0 {
			return nil, ErrNotFound
		}
		return out, nil
	}
}

// ListChain is the multi-valued counterpart of Chain.
type ListChain []ListStrategy

// First returns the first non-empty list produced by the chain.
func (c ListChain) First(scope *goquery.Selection) ([]string, bool) {
	for _, s := range c {
		v, err := attemptList(s, scope)
		if err == nil && len(v) > 0 {
			return v, true
		}
	}
	return nil, false
}

func attemptList(s ListStrategy, scope *goquery.Selection) (v []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: list strategy panicked: %v", r)
		}
	}()
	return s(scope)
}

// Containers returns the first selector that matches at least one element
// within scope, along with its matches.
func Containers(scope *goquery.Selection, selectors []string) (string, *goquery.Selection, bool) {
	for _, sel := range selectors {
		if found := scope.Find(sel); found.Length() > 0 {
			return sel, found, true
		}
	}
	return "", nil, false
}

var spaceRun = regexp.MustCompile(`\s+`)

// Clean collapses runs of whitespace and trims the result.
func Clean(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
