package platform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/session"
)

// Internshala is the platform name for internshala.com internships.
const Internshala = "internshala"

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// CategorySlug turns free-text keywords into an Internshala category slug.
// Runs of anything outside [a-z0-9] collapse to a single "-".
func CategorySlug(keywords string) string {
	s := slugUnsafe.ReplaceAllString(strings.ToLower(keywords), "-")
	return strings.Trim(s, "-")
}

// InternshalaSite browses category listing pages and applies through the
// site's own application form.
func InternshalaSite() *Site {
	return &Site{
		Name:    Internshala,
		BaseURL: "https://internshala.com",
		Auth: session.Config{
			Platform: Internshala,
			HomeURL:  "https://internshala.com/student/dashboard",
			LoginURL: "https://internshala.com/login/user",
			Form: session.Form{
				Identifier: []string{"#email", "input[name='email']"},
				Secret:     []string{"#password", "input[name='password']"},
				Submit:     extract.ControlSpec{Name: "login", Selectors: []string{"#login_submit", "button[type='submit']"}},
			},
			Delegated: extract.ControlSpec{
				Name:      "google login",
				Selectors: []string{"#google-login-button", "button[class*='google']", "a[href*='google']", "button", "a"},
				Keywords:  []string{"google"},
			},
			Signals: session.Signals{
				URLFragments: []string{"/student/dashboard", "/student/"},
				Selectors:    []string{".profile_container", "#header_profile_dropdown"},
			},
		},
		SearchURL: func(keywords string, page int) string {
			u := fmt.Sprintf("https://internshala.com/internships/%s-internship", CategorySlug(keywords))
			if page > 1 {
				u += fmt.Sprintf("/page-%d", page)
			}
			return u
		},
		Containers: []string{
			"#internship_list_container_1",
			"#internship_list_container",
			".individual_internship",
			"[internshipid]",
		},
		Cards: []string{
			"div.individual_internship",
			"div.container-fluid.individual_internship",
			"div[id^='individual_internship_']",
			".internship_meta",
			"[data-internship-id]",
		},
		PerPage: DefaultPerPage,
		Fields: Fields{
			ID: extract.Chain{
				extract.Attr("", "internshipid"),
				extract.Attr("", "data-internship-id"),
				extract.Attr("", "id"),
			},
			Title: extract.Chain{
				extract.Text("a.job-title-href"),
				extract.Text(".profile h3 a"),
				extract.Text(".heading_4_5 a"),
				extract.Text(".internship-heading-container h3"),
				extract.Text(".heading a"),
				extract.Text("h3 a"),
				extract.Text(".profile a"),
			},
			Organization: extract.Chain{
				extract.Text("p.company-name"),
				extract.Text(".company_name"),
				extract.Text(".heading_6"),
				extract.Text(".company-name"),
				extract.Text(".company a"),
				extract.Text("p a[href*='/company/']"),
			},
			Location: extract.Chain{
				extract.Text("span.location_link"),
				extract.Text(".location"),
				extract.Text(".location_name"),
				extract.Text("[class*='location']"),
			},
			Compensation: extract.Chain{
				extract.Text(".stipend"),
				extract.Text("[class*='stipend']"),
			},
			Duration: extract.Chain{
				extract.Text(".internship_other_details_container .item_body"),
				extract.Text(".duration"),
				extract.Text("[class*='duration']"),
			},
			Deadline: extract.Chain{
				extract.Text(".apply_by .item_body"),
				extract.Pattern(regexp.MustCompile(`(?i)apply by\s+(\d{1,2} \w{3}'?\s?\d{2})`)),
			},
			Applicants: extract.Chain{
				extract.Text(".applications_message"),
				extract.Pattern(regexp.MustCompile(`(\d[\d,]*\+?) applicants`)),
			},
			URL: extract.Chain{
				extract.Attr("", "data-href"),
				extract.Attr("a[href*='/internship/']", "href"),
			},
			Skills: extract.ListChain{
				extract.Texts(".round_tabs", DefaultMaxSkills),
				extract.Texts(".skill_tag", DefaultMaxSkills),
				extract.Texts("[class*='skill']", DefaultMaxSkills),
			},
			DefaultLocation:     "Not specified",
			DefaultCompensation: "Not mentioned",
		},
		Apply: ApplyFlow{
			Entry: extract.ControlSpec{
				Name:      "apply now",
				Selectors: []string{"#continue_button", "#easy_apply_button", "button.btn-primary"},
				Keywords:  []string{"apply"},
			},
			Submit: extract.ControlSpec{
				Name:      "submit",
				Selectors: []string{"#submit", "input[type='submit']", "button[type='submit']"},
				Keywords:  []string{"submit"},
			},
			Next: extract.ControlSpec{
				Name:      "proceed",
				Selectors: []string{"#continue_button", "button.proceed-btn", "button"},
				Keywords:  []string{"proceed", "continue", "next"},
			},
			Dismiss: extract.ControlSpec{Name: "close", Selectors: []string{"#easy_apply_modal_close", ".modal .close", "button[aria-label='Close']"}},
			Form: FormFields{
				Phone: []string{"input[name*='phone']", "input[id*='phone']", "input[type='tel']"},
				Text:  []string{"input[type='text'], input:not([type])", "input[type='url']"},
			},
		},
		Timing: DefaultSiteTiming(),
	}
}
