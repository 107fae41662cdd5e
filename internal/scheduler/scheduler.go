// Package scheduler wires up the cron jobs that periodically scrape listings
// and drop finished tasks from memory.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jonathan/apply-autopilot/internal/automation"
)

// SweepSpec is how often finished tasks are swept.
const SweepSpec = "@every 1m"

// Scraper is the part of *automation.Orchestrator the scheduler drives.
type Scraper interface {
	Scrape(ctx context.Context, req automation.ScrapeRequest) (automation.ScrapeResult, error)
	Sweep() int
}

// Config selects what the scheduler runs.
type Config struct {
	// Spec is a cron spec, e.g. "@every 6h". Empty disables scraping.
	Spec      string
	Platforms []string
	Keywords  []string
	Pages     int
	// Sweep registers the task sweep job.
	Sweep bool
}

// Scheduler wraps robfig/cron and manages the scrape loop.
type Scheduler struct {
	cron    *cron.Cron
	scraper Scraper
	cfg     Config
	logger  zerolog.Logger
	running atomic.Bool
}

// New creates a Scheduler. Jobs are registered by Start.
func New(scraper Scraper, cfg Config, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		scraper: scraper,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the jobs and starts the scheduler. One scrape also runs
// immediately so listings are populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Spec != "" {
		if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunScrape(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}
	if s.cfg.Sweep {
		if _, err := s.cron.AddFunc(SweepSpec, s.runSweep); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.cfg.Spec).Bool("sweep", s.cfg.Sweep).Msg("cron started")

	if s.cfg.Spec != "" {
		go s.RunScrape(ctx)
	}
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("cron stopped")
}

// RunScrape scrapes every configured platform and keyword once. A cycle
// that starts while another is still running is skipped.
func (s *Scheduler) RunScrape(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("previous scrape cycle still running, skipping")
		return
	}
	defer s.running.Store(false)

	if len(s.cfg.Platforms) == 0 || len(s.cfg.Keywords) == 0 {
		s.logger.Info().Msg("no platforms or keywords configured, nothing to scrape")
		return
	}

	s.logger.Info().Msg("scrape cycle started")
	seen, stored := 0, 0
	for _, platform := range s.cfg.Platforms {
		for _, kw := range s.cfg.Keywords {
			if ctx.Err() != nil {
				return
			}
			res, err := s.scraper.Scrape(ctx, automation.ScrapeRequest{
				Platform: platform,
				Keywords: kw,
				MaxPages: s.cfg.Pages,
			})
			if err != nil {
				s.logger.Error().Err(err).Str("platform", platform).Str("keywords", kw).Msg("scrape failed")
				continue
			}
			seen += res.Seen
			stored += res.Stored
		}
	}
	s.logger.Info().Int("seen", seen).Int("stored", stored).Msg("scrape cycle complete")
}

func (s *Scheduler) runSweep() {
	if n := s.scraper.Sweep(); n > 0 {
		s.logger.Debug().Int("removed", n).Msg("swept finished tasks")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
