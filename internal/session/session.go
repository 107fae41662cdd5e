package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/wait"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Signals recognise an authenticated area: a URL containing one of
// URLFragments, or any element matching one of Selectors.
type Signals struct {
	URLFragments []string
	Selectors    []string
}

// Form locates the direct-login fields. Each list is tried in order.
type Form struct {
	Identifier []string
	Secret     []string
	Submit     extract.ControlSpec
}

// Timing bounds every wait performed during login.
type Timing struct {
	Settle           time.Duration
	Poll             time.Duration
	DirectTimeout    time.Duration
	DelegatedPoll    time.Duration
	DelegatedTimeout time.Duration
}

// DefaultTiming waits up to two minutes, polling once a second, for a human
// to finish a delegated login.
func DefaultTiming() Timing {
	return Timing{
		Settle:           3 * time.Second,
		Poll:             500 * time.Millisecond,
		DirectTimeout:    15 * time.Second,
		DelegatedPoll:    time.Second,
		DelegatedTimeout: 120 * time.Second,
	}
}

// Config describes how to authenticate against one platform.
type Config struct {
	Platform  string
	HomeURL   string
	LoginURL  string
	Form      Form
	Delegated extract.ControlSpec
	Signals   Signals
	Timing    Timing
}

// Options carries optional collaborators.
type Options struct {
	// Store persists cookies between runs. Nil disables restore and save.
	Store Store
	// DelegatedGate caps how many sessions may wait on a human at once.
	DelegatedGate *semaphore.Weighted
	Logger        zerolog.Logger
}

// Session owns one browser page for the lifetime of a platform run.
type Session struct {
	cfg    Config
	cred   Credential
	page   browser.Page
	store  Store
	gate   *semaphore.Weighted
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// New wraps page in a logged-out session. The session takes ownership of page.
func New(cfg Config, cred Credential, page browser.Page, opts Options) *Session {
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	return &Session{
		cfg:    cfg,
		cred:   cred,
		page:   page,
		store:  opts.Store,
		gate:   opts.DelegatedGate,
		logger: opts.Logger.With().Str("platform", cfg.Platform).Logger(),
		state:  StateLoggedOut,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Page returns the underlying browser page.
func (s *Session) Page() browser.Page {
	return s.page
}

// Mode returns the credential's login mode.
func (s *Session) Mode() LoginMode {
	return s.cred.Mode
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsTransitionAllowed(s.state, to) {
		return &TransitionError{From: s.state, To: to}
	}
	s.logger.Debug().Str("from", string(s.state)).Str("to", string(to)).Msg("session transition")
	s.state = to
	return nil
}

// Login authenticates the session: restore persisted cookies if possible,
// otherwise authenticate interactively with the credential's mode.
func (s *Session) Login(ctx context.Context) error {
	if err := s.transition(StateAuthenticating); err != nil {
		return err
	}

	how, err := s.authenticate(ctx)
	if err != nil {
		_ = s.transition(StateFailed)
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return err
		}
		return &AuthError{Platform: s.cfg.Platform, Message: "authentication did not complete", Cause: err}
	}

	if err := s.transition(StateLoggedIn); err != nil {
		return err
	}
	s.logger.Info().Str("via", how).Msg("logged in")
	s.persist(ctx)
	return nil
}

func (s *Session) authenticate(ctx context.Context) (string, error) {
	if s.restore(ctx) {
		return "restored session", nil
	}

	if err := s.page.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return "", &AuthError{Platform: s.cfg.Platform, Message: "could not open login page", Cause: err}
	}
	if err := wait.Settle(ctx, s.cfg.Timing.Settle); err != nil {
		return "", err
	}
	if s.Authenticated(ctx) {
		return "existing session", nil
	}

	switch s.cred.Mode {
	case ModeDelegated:
		return "delegated", s.loginDelegated(ctx)
	default:
		return "direct", s.loginDirect(ctx)
	}
}

// restore injects stored cookies and refreshes the home page. Any failure
// falls back to interactive login.
func (s *Session) restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	key := Key{Platform: s.cfg.Platform, Identifier: s.cred.Identifier}
	cookies, err := s.store.Load(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not load stored session")
		return false
	}
	if len(cookies) == 0 {
		return false
	}

	if err := s.page.Navigate(ctx, s.cfg.HomeURL); err != nil {
		return false
	}
	if err := s.page.SetCookies(ctx, cookies); err != nil {
		s.logger.Warn().Err(err).Msg("could not inject stored cookies")
		return false
	}
	if err := s.page.Reload(ctx); err != nil {
		return false
	}
	if err := wait.Settle(ctx, s.cfg.Timing.Settle); err != nil {
		return false
	}
	if !s.Authenticated(ctx) {
		s.logger.Info().Msg("stored session no longer valid, discarding it")
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("could not delete stale session")
		}
		return false
	}
	return true
}

func (s *Session) loginDirect(ctx context.Context) error {
	if s.cred.Secret == "" {
		return &AuthError{Platform: s.cfg.Platform, Message: "password required for direct login"}
	}
	if err := s.fill(ctx, s.cfg.Form.Identifier, s.cred.Identifier); err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "identifier field not found", Cause: err}
	}
	if err := s.fill(ctx, s.cfg.Form.Secret, s.cred.Secret); err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "password field not found", Cause: err}
	}
	submit, err := extract.FindControl(ctx, s.page, s.cfg.Form.Submit)
	if err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "login button not found", Cause: err}
	}
	if err := s.page.Click(ctx, submit); err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "could not submit login form", Cause: err}
	}

	err = wait.Until(ctx, s.cfg.Timing.Poll, s.cfg.Timing.DirectTimeout, s.signal)
	if err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "credentials rejected or verification required", Cause: err}
	}
	return nil
}

func (s *Session) loginDelegated(ctx context.Context) error {
	control, err := extract.FindControl(ctx, s.page, s.cfg.Delegated)
	if err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "third-party login control not found", Cause: err}
	}

	if s.gate != nil {
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.gate.Release(1)
	}

	if err := s.page.Click(ctx, control); err != nil {
		return &AuthError{Platform: s.cfg.Platform, Message: "could not open third-party login", Cause: err}
	}

	s.logger.Info().
		Dur("timeout", s.cfg.Timing.DelegatedTimeout).
		Msg("waiting for third-party login to be completed in the browser window")

	err = wait.Until(ctx, s.cfg.Timing.DelegatedPoll, s.cfg.Timing.DelegatedTimeout, s.signal)
	if errors.Is(err, wait.ErrTimeout) {
		return &AuthError{Platform: s.cfg.Platform, Message: "third-party login was not completed", Cause: ErrLoginTimeout}
	}
	return err
}

// fill types value into the first visible element matched by selectors.
func (s *Session) fill(ctx context.Context, selectors []string, value string) error {
	for _, sel := range selectors {
		els, err := s.page.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible {
				return s.page.Fill(ctx, el, value)
			}
		}
	}
	return fmt.Errorf("no visible field for %v: %w", selectors, extract.ErrNotFound)
}

func (s *Session) signal(ctx context.Context) (bool, error) {
	loc, err := s.page.Location(ctx)
	if err != nil {
		return false, err
	}
	for _, frag := range s.cfg.Signals.URLFragments {
		if strings.Contains(loc, frag) {
			return true, nil
		}
	}
	_, ok := extract.Present(ctx, s.page, s.cfg.Signals.Selectors)
	return ok, nil
}

// Authenticated reports whether the page currently shows an authenticated area.
func (s *Session) Authenticated(ctx context.Context) bool {
	ok, _ := s.signal(ctx)
	return ok
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	cookies, err := s.page.Cookies(ctx)
	if err != nil || len(cookies) == 0 {
		return
	}
	key := Key{Platform: s.cfg.Platform, Identifier: s.cred.Identifier}
	if err := s.store.Save(ctx, key, cookies); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist session")
		return
	}
	s.logger.Debug().Int("cookies", len(cookies)).Msg("session persisted")
}

// Close releases the browser page. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	if err := s.page.Close(); err != nil {
		return fmt.Errorf("failed to close %s session: %w", s.cfg.Platform, err)
	}
	return nil
}
