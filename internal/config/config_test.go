package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRunFile_Valid(t *testing.T) {
	path := writeRunFile(t, `{
		"keywords": "backend",
		"max_applications": 5,
		"platforms": {
			"linkedin": {"enabled": true, "login_mode": "google", "email": "u@x.com"},
			"internshala": {"enabled": true, "email": "u@x.com", "password": "pw"}
		},
		"profile": {"full_name": "Asha Rao", "github_url": "https://github.com/asha"}
	}`)

	rf, err := LoadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "backend", rf.Keywords)
	assert.Equal(t, 5, rf.MaxApplications)
	assert.Equal(t, 0, rf.MaxPages)
	assert.Equal(t, "google", rf.Platforms["linkedin"].LoginMode)
	assert.Equal(t, "pw", rf.Platforms["internshala"].Password)
	assert.Equal(t, "Asha Rao", rf.Profile.FullName)
}

func TestLoadRunFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid json", `{ invalid json }`, "failed to parse run file JSON"},
		{"schema mismatch", `{"platforms": {}, "max_pages": "two"}`, "max_pages"},
		{"missing platforms", `{"keywords": "go"}`, "platforms"},
		{"bad profile url", `{"platforms": {}, "profile": {"github_url": "not a url"}}`, "invalid profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRunFile(writeRunFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadRunFile("")
	assert.Error(t, err)
	_, err = LoadRunFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRunFile_Apply(t *testing.T) {
	rf, err := LoadRunFile(writeRunFile(t, `{
		"keywords": "backend",
		"platforms": {
			"linkedin": {"enabled": true, "email": "u@x.com", "password": "pw"},
			"internshala": {"enabled": true, "email": "u@x.com", "password": "pw"}
		}
	}`))
	require.NoError(t, err)

	req := rf.Apply(Overrides{MaxPages: 3, Platforms: []string{"internshala"}})
	assert.Equal(t, "backend", req.Keywords)
	assert.Equal(t, 3, req.MaxPages)
	assert.False(t, req.Platforms["linkedin"].Enabled)
	assert.True(t, req.Platforms["internshala"].Enabled)
	assert.True(t, rf.Platforms["linkedin"].Enabled, "file values are not mutated")

	req = rf.Apply(Overrides{Keywords: "go"})
	assert.Equal(t, "go", req.Keywords)
}

var serverEnv = []string{
	"PORT", "DATABASE_URL", "REDIS_URL", "JWT_SECRET", "JWT_EXPIRATION_HOURS",
	"HEADLESS", "SESSION_DIR", "SESSION_KEY", "DELEGATED_LOGIN_TIMEOUT", "MAX_DELEGATED_LOGINS",
	"SCRAPE_SCHEDULE", "SCRAPE_PLATFORMS", "SCRAPE_KEYWORDS", "SCRAPE_PAGES", "TASK_RETENTION",
}

// clearEnv blanks every variable the loaders read; blank means unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range serverEnv {
		t.Setenv(k, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, DefaultMaxDelegatedLogins, cfg.MaxDelegatedLogins)
	assert.Equal(t, DefaultDelegatedLoginTimeout, cfg.DelegatedLoginTimeout)
	assert.Equal(t, []string{"internshala"}, cfg.ScrapePlatforms)
	assert.Equal(t, time.Duration(0), cfg.TaskRetention)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, DefaultSessionDir, cfg.SessionDir)
}

func TestLoadBrowser_NoJWTRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_DIR", "/tmp/cookies")

	b, err := LoadBrowser()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cookies", b.SessionDir)
	assert.False(t, b.Headless)
}

func TestEnvError(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRAPE_PAGES", "lots")

	_, err := getEnvInt("SCRAPE_PAGES", 1)
	var ee *EnvError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "SCRAPE_PAGES", ee.Key)
	assert.Equal(t, "lots", ee.Value)
	assert.Contains(t, ee.Error(), `invalid SCRAPE_PAGES="lots"`)
}

func TestLoadServer_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("PORT", "9090")
	t.Setenv("HEADLESS", "true")
	t.Setenv("MAX_DELEGATED_LOGINS", "4")
	t.Setenv("DELEGATED_LOGIN_TIMEOUT", "3m")
	t.Setenv("SCRAPE_SCHEDULE", "@every 6h")
	t.Setenv("SCRAPE_PLATFORMS", "internshala, linkedin,")
	t.Setenv("SCRAPE_KEYWORDS", "web-development,data-science")
	t.Setenv("TASK_RETENTION", "24h")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 4, cfg.MaxDelegatedLogins)
	assert.Equal(t, 3*time.Minute, cfg.DelegatedLoginTimeout)
	assert.Equal(t, "@every 6h", cfg.ScrapeSchedule)
	assert.Equal(t, []string{"internshala", "linkedin"}, cfg.ScrapePlatforms)
	assert.Equal(t, []string{"web-development", "data-science"}, cfg.ScrapeKeywords)
	assert.Equal(t, 24*time.Hour, cfg.TaskRetention)
}

func TestLoadServer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"bad port", map[string]string{"PORT": "eighty"}, "PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT must be between"},
		{"bad bool", map[string]string{"HEADLESS": "maybe"}, "HEADLESS"},
		{"zero delegated cap", map[string]string{"MAX_DELEGATED_LOGINS": "0"}, "MAX_DELEGATED_LOGINS"},
		{"bad duration", map[string]string{"TASK_RETENTION": "forever"}, "TASK_RETENTION"},
		{"short expiry", map[string]string{"JWT_EXPIRATION_HOURS": "0"}, "JWT_EXPIRATION_HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "test-secret-key")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadServer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
