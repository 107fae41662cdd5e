package platform

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/session"
)

// LinkedIn is the platform name for linkedin.com jobs.
const LinkedIn = "linkedin"

// LinkedInSite searches entry-level jobs in India posted within the last
// day and applies through Easy Apply.
func LinkedInSite() *Site {
	return &Site{
		Name:    LinkedIn,
		BaseURL: "https://www.linkedin.com",
		Auth: session.Config{
			Platform: LinkedIn,
			HomeURL:  "https://www.linkedin.com/feed/",
			LoginURL: "https://www.linkedin.com/login",
			Form: session.Form{
				Identifier: []string{"#username", "input[name='session_key']"},
				Secret:     []string{"#password", "input[name='session_password']"},
				Submit:     extract.ControlSpec{Name: "sign in", Selectors: []string{"button[type='submit']", "button[data-litms-control-urn='login-submit']"}},
			},
			Delegated: extract.ControlSpec{
				Name: "google login",
				Selectors: []string{
					"button[data-tracking-control-name*='google']",
					"button[aria-label*='Google']",
					".google-auth-button",
					"button.google-login",
					"a[href*='google']",
					"button",
					"a",
				},
				Keywords: []string{"google"},
			},
			Signals: session.Signals{
				URLFragments: []string{"/feed", "/mynetwork", "/in/"},
				Selectors:    []string{"nav.global-nav"},
			},
		},
		SearchURL: func(keywords string, page int) string {
			u := fmt.Sprintf("https://www.linkedin.com/jobs/search/?keywords=%s&location=India&f_E=1,2&f_TPR=r86400",
				url.QueryEscape(keywords))
			if page > 1 {
				u += fmt.Sprintf("&start=%d", (page-1)*DefaultPerPage)
			}
			return u
		},
		Containers: []string{
			".jobs-search-results__list",
			".jobs-search__results-list",
			".scaffold-layout__list-container",
			".jobs-search-results-list",
			"[data-job-id]",
		},
		Cards: []string{
			"[data-job-id]",
			".jobs-search-results__list-item",
			".job-card-container",
			".scaffold-layout__list-item",
		},
		PerPage: DefaultPerPage,
		Fields: Fields{
			ID: extract.Chain{
				extract.Attr("", "data-job-id"),
				extract.Attr("[data-job-id]", "data-job-id"),
				extract.Attr("", "data-occludable-job-id"),
			},
			Title: extract.Chain{
				extract.Text(".job-card-list__title--link strong"),
				extract.Text(".job-card-list__title"),
				extract.Text(".base-search-card__title"),
				extract.Attr("a.job-card-container__link", "aria-label"),
				extract.Text("h3"),
			},
			Organization: extract.Chain{
				extract.Text(".artdeco-entity-lockup__subtitle"),
				extract.Text(".job-card-container__primary-description"),
				extract.Text(".job-card-container__company-name"),
				extract.Text(".base-search-card__subtitle"),
				extract.Text("h4"),
			},
			Location: extract.Chain{
				extract.Text(".job-card-container__metadata-item"),
				extract.Text(".artdeco-entity-lockup__caption"),
				extract.Text(".job-search-card__location"),
			},
			Compensation: extract.Chain{
				extract.Text(".job-card-container__salary-info"),
				extract.Pattern(regexp.MustCompile(`((?:₹|\$)\s?[\d,.]+[KkLM]?(?:/yr|/mo)?(?:\s?-\s?(?:₹|\$)\s?[\d,.]+[KkLM]?(?:/yr|/mo)?)?)`)),
			},
			Applicants: extract.Chain{
				extract.Pattern(regexp.MustCompile(`(\d[\d,]*\+?) applicants`)),
			},
			URL: extract.Chain{
				extract.Attr("a.job-card-container__link", "href"),
				extract.Attr("a[href*='/jobs/view/']", "href"),
			},
			DefaultLocation:     "Not specified",
			DefaultCompensation: "Not mentioned",
		},
		Apply: ApplyFlow{
			Entry: extract.ControlSpec{Name: "easy apply", Selectors: []string{"button.jobs-apply-button"}, Keywords: []string{"easy apply"}},
			Submit: extract.ControlSpec{
				Name:      "submit",
				Selectors: []string{"button[aria-label*='Submit application']", "button[aria-label*='Submit']"},
				Keywords:  []string{"submit"},
			},
			Next: extract.ControlSpec{
				Name:      "next",
				Selectors: []string{"button[aria-label*='Continue']", "button[aria-label*='Next']"},
				Keywords:  []string{"next", "continue"},
			},
			Dismiss: extract.ControlSpec{Name: "dismiss", Selectors: []string{"button[aria-label='Dismiss']"}},
			Discard: extract.ControlSpec{Name: "discard", Selectors: []string{"button[data-test-dialog-primary-btn]"}, Keywords: []string{"discard"}},
			Form: FormFields{
				Phone: []string{"input[id*='phone']", "input[name*='phone']", "input[type='tel']"},
				Text:  []string{"input[type='text'], input:not([type])"},
			},
		},
		Timing: DefaultSiteTiming(),
	}
}
