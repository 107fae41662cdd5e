package config

import (
	"fmt"
	"time"
)

// EnvError reports an environment variable that could not be parsed.
type EnvError struct {
	Key   string
	Value string
	Cause error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %v", e.Key, e.Value, e.Cause)
}

func (e *EnvError) Unwrap() error {
	return e.Cause
}

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWTSecret returns the token signing secret, empty when unset.
func JWTSecret() string {
	return getEnvString("JWT_SECRET", "")
}

// Browser holds the settings shared by every command that drives a
// browser.
type Browser struct {
	Headless   bool
	SessionDir string
	SessionKey string // hex or base64, 32 bytes; empty stores cookies unsealed

	DelegatedLoginTimeout time.Duration
	MaxDelegatedLogins    int
}

// LoadBrowser reads the browser settings from the environment.
func LoadBrowser() (*Browser, error) {
	b := &Browser{
		SessionDir: getEnvString("SESSION_DIR", DefaultSessionDir),
		SessionKey: getEnvString("SESSION_KEY", ""),
	}
	var err error
	if b.Headless, err = getEnvBool("HEADLESS", false); err != nil {
		return nil, err
	}
	if b.DelegatedLoginTimeout, err = getEnvDuration("DELEGATED_LOGIN_TIMEOUT", DefaultDelegatedLoginTimeout); err != nil {
		return nil, err
	}
	if b.MaxDelegatedLogins, err = getEnvInt("MAX_DELEGATED_LOGINS", DefaultMaxDelegatedLogins); err != nil {
		return nil, err
	}
	if b.MaxDelegatedLogins < 1 {
		return nil, fmt.Errorf("MAX_DELEGATED_LOGINS must be at least 1, got: %d", b.MaxDelegatedLogins)
	}
	if b.DelegatedLoginTimeout <= 0 {
		return nil, fmt.Errorf("DELEGATED_LOGIN_TIMEOUT must be positive")
	}
	return b, nil
}

// Server holds every setting of the serve command.
type Server struct {
	Port        int
	DatabaseURL string // empty keeps listings in memory
	RedisURL    string // empty disables event publishing and Redis sessions

	JWT JWTConfig

	Browser

	ScrapeSchedule  string // cron spec; empty disables scheduled scraping
	ScrapePlatforms []string
	ScrapeKeywords  []string
	ScrapePages     int

	TaskRetention time.Duration // zero keeps finished tasks forever
}

// Defaults for unset variables.
const (
	DefaultPort                  = 8080
	DefaultSessionDir            = ".sessions"
	DefaultDelegatedLoginTimeout = 120 * time.Second
	DefaultMaxDelegatedLogins    = 2
	DefaultScrapePages           = 2
)

// LoadServer reads the server settings from the environment.
func LoadServer() (*Server, error) {
	browser, err := LoadBrowser()
	if err != nil {
		return nil, err
	}
	cfg := &Server{
		DatabaseURL:     getEnvString("DATABASE_URL", ""),
		RedisURL:        getEnvString("REDIS_URL", ""),
		Browser:         *browser,
		ScrapeSchedule:  getEnvString("SCRAPE_SCHEDULE", ""),
		ScrapePlatforms: getEnvList("SCRAPE_PLATFORMS", []string{"internshala"}),
		ScrapeKeywords:  getEnvList("SCRAPE_KEYWORDS", []string{"web-development"}),
		JWT:             JWTConfig{Secret: JWTSecret()},
	}

	if cfg.Port, err = getEnvInt("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.JWT.ExpirationHours, err = getEnvInt("JWT_EXPIRATION_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.ScrapePages, err = getEnvInt("SCRAPE_PAGES", DefaultScrapePages); err != nil {
		return nil, err
	}
	if cfg.TaskRetention, err = getEnvDuration("TASK_RETENTION", 0); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *Server) normalize() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if c.JWT.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.JWT.ExpirationHours)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.TaskRetention < 0 {
		return fmt.Errorf("TASK_RETENTION must not be negative")
	}
	return nil
}
