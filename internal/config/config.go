// Package config loads server settings from the environment and CLI run
// files from JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/schemas"
	"github.com/jonathan/apply-autopilot/internal/types"
)

// RunFile is a one-shot automation run for the CLI: the request plus the
// profile used to fill application forms.
type RunFile struct {
	automation.Request
	Profile types.Profile `json:"profile"`
}

// LoadRunFile reads and schema-checks a run file.
func LoadRunFile(path string) (*RunFile, error) {
	if path == "" {
		return nil, fmt.Errorf("run file path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file %s: %w", path, err)
	}

	if err := schemas.ValidateRunFile(data); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("run file %s: %s", path, ve.First())
		}
		return nil, fmt.Errorf("failed to parse run file JSON: %w", err)
	}

	var rf RunFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file JSON: %w", err)
	}
	if err := rf.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("run file %s: invalid profile: %w", path, err)
	}

	return &rf, nil
}

// Overrides are CLI flag values; zero values leave the file untouched.
type Overrides struct {
	Keywords        string
	MaxApplications int
	MaxPages        int
	Platforms       []string
}

// Apply returns the request with overrides merged in. Platforms, when set,
// restricts the run to the named entries of the file.
func (rf *RunFile) Apply(o Overrides) automation.Request {
	req := rf.Request
	if o.Keywords != "" {
		req.Keywords = o.Keywords
	}
	if o.MaxApplications != 0 {
		req.MaxApplications = o.MaxApplications
	}
	if o.MaxPages != 0 {
		req.MaxPages = o.MaxPages
	}
	if len(o.Platforms) > 0 {
		only := make(map[string]bool, len(o.Platforms))
		for _, p := range o.Platforms {
			only[p] = true
		}
		filtered := make(map[string]automation.PlatformRequest, len(req.Platforms))
		for name, p := range req.Platforms {
			if !only[name] {
				p.Enabled = false
			}
			filtered[name] = p
		}
		req.Platforms = filtered
	}
	return req
}
