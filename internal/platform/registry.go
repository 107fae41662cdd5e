package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/session"
	"github.com/jonathan/apply-autopilot/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Factory builds a Driver holding its own browser page. A launch failure is
// returned as *browser.LaunchError.
type Factory func(ctx context.Context, cred session.Credential, profile types.Profile) (Driver, error)

// Deps are the collaborators shared by every driver a factory builds.
type Deps struct {
	Launcher      browser.Launcher
	Store         session.Store
	DelegatedGate *semaphore.Weighted
	Logger        zerolog.Logger

	// AuthTiming and SiteTiming override the built-in waits when non-nil.
	AuthTiming *session.Timing
	SiteTiming *Timing
}

// SiteFactory returns a Factory that opens a fresh page per driver.
func SiteFactory(site *Site, deps Deps) Factory {
	return func(ctx context.Context, cred session.Credential, profile types.Profile) (Driver, error) {
		page, err := deps.Launcher.NewPage(ctx)
		if err != nil {
			return nil, err
		}

		s := *site
		if deps.SiteTiming != nil {
			s.Timing = *deps.SiteTiming
		}
		auth := s.Auth
		if deps.AuthTiming != nil {
			auth.Timing = *deps.AuthTiming
		}

		sess := session.New(auth, cred, page, session.Options{
			Store:         deps.Store,
			DelegatedGate: deps.DelegatedGate,
			Logger:        deps.Logger,
		})
		return NewBot(&s, sess, profile, deps.Logger), nil
	}
}

// Registry maps platform names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry registers every built-in site.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	r.Register(LinkedIn, SiteFactory(LinkedInSite(), deps))
	r.Register(Internshala, SiteFactory(InternshalaSite(), deps))
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Open builds a driver for name.
func (r *Registry) Open(ctx context.Context, name string, cred session.Credential, profile types.Profile) (Driver, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", name)
	}
	return f(ctx, cred, profile)
}

// Names lists registered platforms in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
