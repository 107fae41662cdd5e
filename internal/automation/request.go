package automation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/apply-autopilot/internal/session"
)

// Defaults applied to omitted request fields.
const (
	DefaultKeywords        = "web-development"
	DefaultMaxApplications = 20
	DefaultMaxPages        = 2
)

// PlatformRequest enables one platform and carries its credentials. The
// credentials live only as long as the worker that uses them.
type PlatformRequest struct {
	Enabled   bool   `json:"enabled"`
	LoginMode string `json:"login_mode,omitempty" validate:"omitempty,oneof=direct delegated email google"`
	Email     string `json:"email,omitempty" validate:"max=320"`
	Password  string `json:"password,omitempty" validate:"max=1024"`
}

// Credential converts the request into a session credential.
func (p PlatformRequest) Credential() (session.Credential, error) {
	mode, err := session.ParseLoginMode(p.LoginMode)
	if err != nil {
		return session.Credential{}, err
	}
	return session.Credential{Identifier: p.Email, Secret: p.Password, Mode: mode}, nil
}

// Request is an automation run: search terms, limits, and the platforms
// to run them on.
type Request struct {
	Keywords        string                     `json:"keywords" validate:"max=200"`
	MaxApplications int                        `json:"max_applications" validate:"min=1,max=500"`
	MaxPages        int                        `json:"max_pages" validate:"min=1,max=50"`
	Platforms       map[string]PlatformRequest `json:"platforms" validate:"dive"`
}

// WithDefaults fills zero-valued fields.
func (r Request) WithDefaults() Request {
	if r.Keywords == "" {
		r.Keywords = DefaultKeywords
	}
	if r.MaxApplications == 0 {
		r.MaxApplications = DefaultMaxApplications
	}
	if r.MaxPages == 0 {
		r.MaxPages = DefaultMaxPages
	}
	return r
}

// Enabled returns the names of enabled platforms in sorted order.
func (r Request) Enabled() []string {
	var names []string
	for name, p := range r.Platforms {
		if p.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

var validate = validator.New()

// Validate checks field constraints and then the cross-field rules. known
// reports whether a platform name has a driver; nil accepts every name.
func (r Request) Validate(known func(string) bool) error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("validation error: %s - %s", fe.Field(), fe.Tag()),
				Cause:   err,
			}
		}
		return &ValidationError{Message: "validation error: invalid request", Cause: err}
	}

	enabled := r.Enabled()
	if len(enabled) == 0 {
		return invalid("platforms", "No platforms enabled")
	}
	for _, name := range enabled {
		if known != nil && !known(name) {
			return invalid("platforms", "Unsupported platform %s", name)
		}
		p := r.Platforms[name]
		if p.Email == "" {
			return invalid("email", "Email required for %s", name)
		}
		mode, err := session.ParseLoginMode(p.LoginMode)
		if err != nil {
			return &ValidationError{Field: "login_mode", Message: fmt.Sprintf("Invalid login mode for %s", name), Cause: err}
		}
		if mode == session.ModeDirect && p.Password == "" {
			return invalid("password", "Password required for %s with email login", name)
		}
	}
	return nil
}
