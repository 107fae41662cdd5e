package session

import (
	"fmt"
	"strings"
)

// LoginMode selects how a session authenticates.
type LoginMode string

const (
	// ModeDirect submits identifier and secret into the site's own form.
	ModeDirect LoginMode = "direct"
	// ModeDelegated hands off to a third-party identity provider and waits
	// for a human to finish the flow in the browser window.
	ModeDelegated LoginMode = "delegated"
)

// ParseLoginMode accepts direct/delegated and the request aliases
// email/google. Empty input means direct.
func ParseLoginMode(s string) (LoginMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "email":
		return ModeDirect, nil
	case "delegated", "google":
		return ModeDelegated, nil
	}
	return "", fmt.Errorf("unknown login mode %q", s)
}

// Credential is supplied by the caller per task and never persisted.
type Credential struct {
	Identifier string
	Secret     string
	Mode       LoginMode
}

// String omits the secret.
func (c Credential) String() string {
	return fmt.Sprintf("%s (%s)", c.Identifier, c.Mode)
}
