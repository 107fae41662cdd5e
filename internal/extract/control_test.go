package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/apply-autopilot/internal/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modalHTML = `<html><body>
<button class="artdeco-button" style="display:none">Continue to next step</button>
<button class="artdeco-button" aria-label="Continue to next step">Next</button>
<button class="artdeco-button">Review</button>
<button aria-label="Submit application">Submit</button>
<button aria-label="Submit application" hidden>Submit</button>
<a href="https://accounts.google.com/o/oauth2" class="google">Continue with Google</a>
</body></html>`

func modalPage(t *testing.T) *browsertest.Page {
	t.Helper()
	p := browsertest.New().SetPage("https://site.test/apply", modalHTML)
	require.NoError(t, p.Navigate(context.Background(), "https://site.test/apply"))
	return p
}

func TestFindControl(t *testing.T) {
	ctx := context.Background()
	p := modalPage(t)

	tests := []struct {
		name     string
		spec     ControlSpec
		wantText string
		wantErr  bool
	}{
		{
			name:     "skips hidden and non-matching text",
			spec:     ControlSpec{Name: "next", Selectors: []string{"button.artdeco-button"}, Keywords: []string{"next", "continue"}},
			wantText: "Next",
		},
		{
			name:     "matches aria-label",
			spec:     ControlSpec{Name: "submit", Selectors: []string{"button[aria-label*='Submit']"}, Keywords: []string{"submit"}},
			wantText: "Submit",
		},
		{
			name:     "falls through selectors",
			spec:     ControlSpec{Name: "google", Selectors: []string{"button[aria-label*='Google']", "a[href*='google']"}, Keywords: []string{"google"}},
			wantText: "Continue with Google",
		},
		{
			name:    "no visible keyword match",
			spec:    ControlSpec{Name: "discard", Selectors: []string{"button"}, Keywords: []string{"discard"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := FindControl(ctx, p, tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				assert.True(t, el.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, el.Text)
		})
	}
}

func TestFindControl_QueryErrorAdvances(t *testing.T) {
	p := modalPage(t)
	p.FailQuery("button.broken", errors.New("detached"))

	el, err := FindControl(context.Background(), p, ControlSpec{
		Name:      "submit",
		Selectors: []string{"button.broken", "button[aria-label*='Submit']"},
		Keywords:  []string{"submit"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Submit application", el.Label())
}

func TestFindControls_Ambiguity(t *testing.T) {
	ctx := context.Background()
	p := modalPage(t)

	els, err := FindControls(ctx, p, ControlSpec{Name: "submit", Selectors: []string{"button[aria-label*='Submit']"}, Keywords: []string{"submit"}})
	require.NoError(t, err)
	assert.Len(t, els, 1, "hidden duplicates do not count")

	els, err = FindControls(ctx, p, ControlSpec{Name: "any", Selectors: []string{"button.artdeco-button"}})
	require.NoError(t, err)
	assert.Len(t, els, 2)
}

func TestPresent(t *testing.T) {
	p := modalPage(t)

	sel, ok := Present(context.Background(), p, []string{".jobs-search-results__list", "a.google"})
	assert.True(t, ok)
	assert.Equal(t, "a.google", sel)

	_, ok = Present(context.Background(), p, []string{"nav.global-nav"})
	assert.False(t, ok)
}
