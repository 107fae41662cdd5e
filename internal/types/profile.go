package types

import (
	"github.com/go-playground/validator/v10"
)

// Profile holds the applicant details used to fill application forms.
// Empty fields are simply left unfilled.
type Profile struct {
	FullName     string `json:"full_name,omitempty"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	PortfolioURL string `json:"portfolio_url,omitempty" validate:"omitempty,url"`
	GitHubURL    string `json:"github_url,omitempty" validate:"omitempty,url"`
	LinkedInURL  string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
}

// IsEmpty reports whether the profile has nothing to fill.
func (p Profile) IsEmpty() bool {
	return p == Profile{}
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}
