package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/browser/browsertest"
	"github.com/jonathan/apply-autopilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullProfile = types.Profile{
	FullName:     "Asha Rao",
	Phone:        "+91 98765 43210",
	PortfolioURL: "https://asha.dev",
	GitHubURL:    "https://github.com/asha",
	LinkedInURL:  "https://linkedin.com/in/asha",
}

const easyApplyButton = `<button class="jobs-apply-button">Easy Apply</button>`

const stepOne = `<div class="jobs-easy-apply-modal">
  <input id="single-line-phone" type="text">
  <input type="text" aria-label="LinkedIn Profile">
  <button aria-label="Dismiss">x</button>
  <button aria-label="Continue to next step">Next</button>
</div>`

const stepTwoSubmit = `<div class="jobs-easy-apply-modal">
  <input type="text" placeholder="Portfolio website">
  <input type="text" placeholder="GitHub">
  <input type="text" placeholder="Anything else?">
  <button aria-label="Dismiss">x</button>
  <button aria-label="Submit application">Submit application</button>
</div>`

const stepTwoReview = `<div class="jobs-easy-apply-modal">
  <button aria-label="Dismiss">x</button>
  <button aria-label="Review your application">Review</button>
</div>`

const discardDialog = `<div data-test-modal-id="data-test-easy-apply-discard-confirmation">
  <button data-test-dialog-primary-btn>Discard</button>
</div>`

// scriptFlow wires the results page so that opening a card reveals the Easy
// Apply button, which opens steps[0]; each "Next" click shows the next step.
func scriptFlow(f *fixture, steps ...string) {
	f.page.OnClick("[data-job-id]", func(p *browsertest.Page) {
		p.SetPage(f.url, resultsHTML(linkedInCards, easyApplyButton))
	})
	f.page.OnClick("button.jobs-apply-button", func(p *browsertest.Page) {
		p.SetPage(f.url, resultsHTML(linkedInCards, steps[0]))
	})
	step := 0
	f.page.OnClick("button[aria-label*='Continue']", func(p *browsertest.Page) {
		step++
		if step < len(steps) {
			p.SetPage(f.url, resultsHTML(linkedInCards, steps[step]))
		}
	})
	f.page.OnClick("button[aria-label='Dismiss']", func(p *browsertest.Page) {
		p.SetPage(f.url, resultsHTML(linkedInCards, discardDialog))
	})
	f.page.OnClick("button[data-test-dialog-primary-btn]", func(p *browsertest.Page) {
		p.SetPage(f.url, resultsHTML(linkedInCards, ""))
	})
}

func firstListing(t *testing.T, f *fixture) types.Listing {
	t.Helper()
	listings, err := f.bot.CollectListings(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, listings)
	return listings[0]
}

func clicked(f *fixture, selector string) bool {
	for _, c := range f.page.Clicks() {
		if c == selector {
			return true
		}
	}
	return false
}

func fillValues(f *fixture) []string {
	var out []string
	for _, fl := range f.page.Fills() {
		out = append(out, fl.Value)
	}
	return out
}

func TestApply_SingleStep(t *testing.T) {
	f := newLinkedInFixture(t, fullProfile)
	single := `<div class="jobs-easy-apply-modal">
  <input type="tel">
  <button aria-label="Submit application">Submit application</button>
</div>`
	scriptFlow(f, single)

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	require.NoError(t, err)
	assert.True(t, clicked(f, "button[aria-label*='Submit application']"))
	assert.Equal(t, []string{fullProfile.Phone}, fillValues(f))
}

func TestApply_SubmittedEvenIfSettleInterrupted(t *testing.T) {
	f := newLinkedInFixture(t, fullProfile)
	single := `<div class="jobs-easy-apply-modal">
  <button aria-label="Dismiss">x</button>
  <button aria-label="Submit application">Submit application</button>
</div>`
	scriptFlow(f, single)
	listing := firstListing(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.page.OnClick("button[aria-label*='Submit application']", func(*browsertest.Page) {
		f.bot.site.Timing.ActionSettle = time.Hour
		cancel()
	})

	err := f.bot.Apply(ctx, listing)
	require.NoError(t, err)
	assert.True(t, clicked(f, "button[aria-label*='Submit application']"))
	assert.False(t, clicked(f, "button[aria-label='Dismiss']"), "a sent application must not be discarded")
}

func TestApply_MultiStepAdvancesOnce(t *testing.T) {
	f := newLinkedInFixture(t, fullProfile)
	scriptFlow(f, stepOne, stepTwoSubmit)

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	require.NoError(t, err)
	assert.Equal(t, []string{
		fullProfile.Phone,
		fullProfile.LinkedInURL,
		fullProfile.PortfolioURL,
		fullProfile.GitHubURL,
	}, fillValues(f))
}

func TestApply_AbandonsWithoutSubmit(t *testing.T) {
	f := newLinkedInFixture(t, fullProfile)
	scriptFlow(f, stepOne, stepTwoReview)

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "submit", ae.Step)
	assert.Equal(t, "Backend Intern", ae.Listing)
	assert.NotEmpty(t, ae.Reason())

	assert.True(t, clicked(f, "button[aria-label='Dismiss']"))
	assert.True(t, clicked(f, "button[data-test-dialog-primary-btn]"), "draft discarded")
}

func TestApply_AmbiguousSubmit(t *testing.T) {
	f := newLinkedInFixture(t, types.Profile{})
	twoSubmits := `<div class="jobs-easy-apply-modal">
  <button aria-label="Submit application">Submit</button>
  <button aria-label="Submit application and follow">Submit</button>
</div>`
	scriptFlow(f, twoSubmits)

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	assert.ErrorIs(t, err, ErrAmbiguousSubmit)
	assert.False(t, clicked(f, "button[aria-label*='Submit application']"))
}

func TestApply_NoQuickApply(t *testing.T) {
	f := newLinkedInFixture(t, fullProfile)

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	assert.ErrorIs(t, err, ErrNoQuickApply)
	assert.Empty(t, f.page.Fills())
}

func TestApply_EmptyProfileSkipsFilling(t *testing.T) {
	f := newLinkedInFixture(t, types.Profile{})
	scriptFlow(f, stepOne, stepTwoSubmit)

	require.NoError(t, f.bot.Apply(context.Background(), firstListing(t, f)))
	assert.Empty(t, f.page.Fills())
}

func TestApply_DismissesPendingDiscardDialog(t *testing.T) {
	f := newLinkedInFixture(t, types.Profile{})
	f.page.SetPage(f.url, resultsHTML(linkedInCards, discardDialog))
	scriptFlow(f, `<button aria-label="Submit application">Submit</button>`)

	require.NoError(t, f.bot.Apply(context.Background(), firstListing(t, f)))
	clicks := f.page.Clicks()
	require.NotEmpty(t, clicks)
	assert.Equal(t, "button[data-test-dialog-primary-btn]", clicks[0])
}

func TestApply_StaleHandle(t *testing.T) {
	f := newLinkedInFixture(t, types.Profile{})

	err := f.bot.Apply(context.Background(), types.Listing{Title: "Gone", Handle: browser.Element{Selector: "[data-job-id]", Index: 40}})
	assert.ErrorIs(t, err, browser.ErrElementGone)

	err = f.bot.Apply(context.Background(), types.Listing{Title: "No handle"})
	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "locate", ae.Step)
}

func TestApply_ClickFailure(t *testing.T) {
	f := newLinkedInFixture(t, types.Profile{})
	f.page.FailClick("[data-job-id]", errors.New("element not interactable"))

	err := f.bot.Apply(context.Background(), firstListing(t, f))
	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "open", ae.Step)
}

func TestProfileValueFor(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"LinkedIn Profile URL", fullProfile.LinkedInURL},
		{"Personal website", fullProfile.PortfolioURL},
		{"Portfolio", fullProfile.PortfolioURL},
		{"GitHub username", fullProfile.GitHubURL},
		{"Years of experience", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, profileValueFor(fullProfile, tt.label), tt.label)
	}
}
