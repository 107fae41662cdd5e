package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/config"
	"github.com/jonathan/apply-autopilot/internal/platform"
	"github.com/jonathan/apply-autopilot/internal/session"
)

// sessionBlobs seals blobs when a session key is configured.
func sessionBlobs(b *config.Browser, blobs session.Blobs) (session.Blobs, error) {
	if b.SessionKey == "" {
		return blobs, nil
	}
	key, err := session.ParseKey(b.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("SESSION_KEY: %w", err)
	}
	return session.NewSealedStore(blobs, key)
}

// newRegistry builds the platform drivers over a Chrome launcher. A nil
// blobs falls back to files under SessionDir.
func newRegistry(b *config.Browser, blobs session.Blobs, logger zerolog.Logger) (*platform.Registry, error) {
	if blobs == nil {
		fs, err := session.NewFileStore(b.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session dir: %w", err)
		}
		blobs = fs
	}
	blobs, err := sessionBlobs(b, blobs)
	if err != nil {
		return nil, err
	}

	opts := browser.DefaultOptions()
	opts.Headless = b.Headless

	timing := session.DefaultTiming()
	timing.DelegatedTimeout = b.DelegatedLoginTimeout

	return platform.DefaultRegistry(platform.Deps{
		Launcher:      browser.NewChrome(opts, logger),
		Store:         session.NewCookieStore(blobs),
		DelegatedGate: semaphore.NewWeighted(int64(b.MaxDelegatedLogins)),
		Logger:        logger,
		AuthTiming:    &timing,
	}), nil
}
