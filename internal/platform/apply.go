package platform

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/types"
	"github.com/jonathan/apply-autopilot/internal/wait"
)

// Apply runs the site's application workflow for one listing. The flow
// advances at most one step past the first form; when no single submit
// control is visible by then the attempt is abandoned.
func (b *Bot) Apply(ctx context.Context, l types.Listing) error {
	flow := b.site.Apply
	fail := func(step string, err error) error {
		return &ApplyError{Listing: l.Title, Step: step, Cause: err}
	}

	if l.Handle.IsZero() {
		return fail("locate", browser.ErrElementGone)
	}
	if err := b.page.ScrollIntoView(ctx, l.Handle); err != nil {
		return fail("scroll", err)
	}
	b.discard(ctx)

	if err := b.page.Click(ctx, l.Handle); err != nil {
		return fail("open", err)
	}
	if err := wait.Settle(ctx, b.site.Timing.ActionSettle); err != nil {
		return fail("open", err)
	}

	if !flow.Entry.IsZero() {
		entry, err := extract.FindControl(ctx, b.page, flow.Entry)
		if err != nil {
			return fail("entry", ErrNoQuickApply)
		}
		if err := b.page.Click(ctx, entry); err != nil {
			return fail("entry", err)
		}
		if err := wait.Settle(ctx, b.site.Timing.ActionSettle); err != nil {
			return fail("entry", err)
		}
	}

	b.fillForm(ctx)
	submitted, err := b.submit(ctx)
	if err != nil && !errors.Is(err, ErrAmbiguousSubmit) {
		b.abandon(ctx)
		return fail("submit", err)
	}

	if !submitted && !flow.Next.IsZero() {
		if next, nerr := extract.FindControl(ctx, b.page, flow.Next); nerr == nil {
			b.logger.Debug().Str("listing", l.Title).Msg("multi-step application, advancing one step")
			if cerr := b.page.Click(ctx, next); cerr != nil {
				b.abandon(ctx)
				return fail("next", cerr)
			}
			if serr := wait.Settle(ctx, b.site.Timing.ActionSettle); serr != nil {
				return fail("next", serr)
			}
			b.fillForm(ctx)
			submitted, err = b.submit(ctx)
		}
	}

	if submitted {
		b.logger.Info().Str("listing", l.Title).Str("organization", l.Organization).Msg("application submitted")
		return nil
	}

	b.abandon(ctx)
	if err != nil {
		return fail("submit", err)
	}
	return fail("submit", ErrNotSubmitted)
}

// submit clicks the submit control only if exactly one is visible.
func (b *Bot) submit(ctx context.Context) (bool, error) {
	candidates, err := extract.FindControls(ctx, b.page, b.site.Apply.Submit)
	if err != nil {
		if errors.Is(err, extract.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(candidates) > 1 {
		return false, ErrAmbiguousSubmit
	}
	if err := b.page.Click(ctx, candidates[0]); err != nil {
		return false, err
	}
	// the application is sent once the click lands
	if err := wait.Settle(ctx, b.site.Timing.ActionSettle); err != nil {
		b.logger.Debug().Err(err).Msg("settle after submit interrupted")
	}
	return true, nil
}

// discard confirms a pending "discard application" dialog if one is showing.
func (b *Bot) discard(ctx context.Context) {
	if b.site.Apply.Discard.IsZero() {
		return
	}
	btn, err := extract.FindControl(ctx, b.page, b.site.Apply.Discard)
	if err != nil {
		return
	}
	if err := b.page.Click(ctx, btn); err == nil {
		b.logger.Debug().Msg("dismissed discard confirmation")
		_ = wait.Settle(ctx, b.site.Timing.ActionSettle/2)
	}
}

// abandon closes the application modal and discards the draft.
func (b *Bot) abandon(ctx context.Context) {
	if !b.site.Apply.Dismiss.IsZero() {
		if btn, err := extract.FindControl(ctx, b.page, b.site.Apply.Dismiss); err == nil {
			_ = b.page.Click(ctx, btn)
			_ = wait.Settle(ctx, b.site.Timing.ActionSettle/2)
		}
	}
	b.discard(ctx)
}

// fillForm writes profile values into visible empty inputs. Failures are
// ignored: unfilled fields are left for the site to reject.
func (b *Bot) fillForm(ctx context.Context) {
	if b.profile.IsEmpty() {
		return
	}
	form := b.site.Apply.Form

	if b.profile.Phone != "" {
	phone:
		for _, sel := range form.Phone {
			els, err := b.page.Query(ctx, sel)
			if err != nil {
				continue
			}
			for _, el := range els {
				if el.Visible && el.Value() == "" {
					if err := b.page.Fill(ctx, el, b.profile.Phone); err == nil {
						b.logger.Debug().Msg("filled phone number")
					}
					break phone
				}
			}
		}
	}

	for _, sel := range form.Text {
		els, err := b.page.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if !el.Visible || el.Value() != "" {
				continue
			}
			if value := profileValueFor(b.profile, el.Label()); value != "" {
				if err := b.page.Fill(ctx, el, value); err == nil {
					b.logger.Debug().Str("field", el.Label()).Msg("filled profile field")
				}
			}
		}
	}
}

// profileValueFor maps an input's label or placeholder to a profile value.
func profileValueFor(p types.Profile, label string) string {
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "linkedin"):
		return p.LinkedInURL
	case strings.Contains(label, "portfolio"), strings.Contains(label, "website"):
		return p.PortfolioURL
	case strings.Contains(label, "github"):
		return p.GitHubURL
	}
	return ""
}
