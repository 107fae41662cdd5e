package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jonathan/apply-autopilot/internal/platform"
	"github.com/jonathan/apply-autopilot/internal/types"
)

// Messages written into a platform's sub-record.
const (
	msgLoginFailed   = "Login failed - please check your credentials"
	msgSearchFailed  = "Failed to search for %s"
	msgLaunchFailed  = "Failed to start browser session"
	msgWorkerCrashed = "Unexpected error while processing platform"
)

// platformRun is the state of one worker.
type platformRun struct {
	taskID  string
	name    string
	logger  zerolog.Logger
	history []ApplicationResult
	applied int
}

// runPlatform drives one platform from login to the last page. It never
// returns an error: every outcome lands in the platform's sub-record.
func (o *Orchestrator) runPlatform(ctx context.Context, taskID, name string, req Request, profile types.Profile) {
	run := &platformRun{
		taskID: taskID,
		name:   name,
		logger: o.logger.With().Str("task_id", taskID).Str("platform", name).Logger(),
	}
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			run.logger.Error().Interface("panic", r).Msg("platform worker panicked")
			o.finish(run, PlatformError, msgWorkerCrashed, fmt.Errorf("panic: %v", r))
		}
		platformDuration.WithLabelValues(name).Observe(o.now().Sub(start).Seconds())
		o.recordHistory(ctx, run)
	}()

	o.emit(run, EventPlatformStarted, 0, "Starting "+name)

	cred, err := req.Platforms[name].Credential()
	if err != nil {
		o.finish(run, PlatformFailed, err.Error(), err)
		return
	}

	drv, err := o.drivers.Open(ctx, name, cred, profile)
	if err != nil {
		run.logger.Error().Err(err).Msg("failed to open driver")
		o.finish(run, PlatformError, msgLaunchFailed, err)
		return
	}
	defer func() {
		if err := drv.Close(); err != nil {
			run.logger.Warn().Err(err).Msg("failed to close session")
		}
	}()

	run.logger.Info().Str("login_mode", string(cred.Mode)).Msg("logging in")
	if err := drv.Login(ctx); err != nil {
		run.logger.Warn().Err(err).Msg("login failed")
		o.finish(run, PlatformFailed, msgLoginFailed, err)
		return
	}
	o.emit(run, EventLoginSucceeded, 0, "Logged in")

	if err := drv.Search(ctx, req.Keywords); err != nil {
		run.logger.Warn().Err(err).Msg("search failed")
		o.finish(run, PlatformFailed, fmt.Sprintf(msgSearchFailed, req.Keywords), err)
		return
	}
	o.emit(run, EventSearchSucceeded, 1, "Search results loaded for "+req.Keywords)

	for page := 1; page <= req.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			o.finish(run, PlatformError, "Interrupted by shutdown", err)
			return
		}
		if !o.processPage(ctx, run, drv, page, req.MaxApplications) {
			break
		}
		if page == req.MaxPages {
			break
		}
		more, err := drv.NextPage(ctx)
		if err != nil {
			run.logger.Warn().Err(err).Int("page", page).Msg("failed to advance page")
			break
		}
		if !more {
			run.logger.Info().Int("page", page).Msg("no further pages")
			break
		}
	}

	o.finish(run, PlatformCompleted, fmt.Sprintf("Applied to %d listings", run.applied), nil)
}

// processPage collects one page, stores its listings, and applies to at
// most limit of them. It reports false when the page could not be read.
func (o *Orchestrator) processPage(ctx context.Context, run *platformRun, drv platform.Driver, page, limit int) bool {
	listings, err := drv.CollectListings(ctx)
	if err != nil {
		run.logger.Warn().Err(err).Int("page", page).Msg("failed to collect listings")
		return false
	}
	listingsCollected.WithLabelValues(run.name).Add(float64(len(listings)))
	o.saveListings(ctx, run, listings)

	var results []ApplicationResult
	for _, l := range listings {
		if len(results) >= limit {
			break
		}
		if ctx.Err() != nil {
			break
		}
		res := o.attempt(ctx, drv, l)
		applicationOutcomes.WithLabelValues(run.name, strconv.FormatBool(res.Succeeded)).Inc()
		results = append(results, res)
		run.logger.Info().
			Str("listing", l.ExternalID).
			Str("title", l.Title).
			Bool("succeeded", res.Succeeded).
			Str("reason", res.Reason).
			Msg("application attempted")
		o.emit(run, EventApplication, page, fmt.Sprintf("%s at %s: %s", l.Title, l.Organization, res.Reason))
	}

	applied := 0
	for _, r := range results {
		if r.Succeeded {
			applied++
		}
	}
	run.applied += applied
	run.history = append(run.history, results...)

	ev := o.newEvent(run, EventPageCompleted, page, fmt.Sprintf("Page %d: %d listings, %d applied", page, len(listings), applied))
	o.tasks.update(run.taskID, func(t *Task) {
		p := t.Platforms[run.name]
		p.Applications = append(p.Applications, results...)
		p.TotalApplied += applied
		p.PagesDone = page
		p.ListingsSeen += len(listings)
		t.Events = append(t.Events, ev)
	})
	o.publish(run.taskID, ev)
	return true
}

// attempt applies to one listing. Errors and panics become a failed result
// so the next listing still runs.
func (o *Orchestrator) attempt(ctx context.Context, drv platform.Driver, l types.Listing) (res ApplicationResult) {
	res = ApplicationResult{
		ListingID:    l.ExternalID,
		Title:        l.Title,
		Organization: l.Organization,
		URL:          l.SourceURL,
		AttemptedAt:  o.now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			res.Succeeded = false
			res.Reason = fmt.Sprintf("Unexpected error: %v", r)
		}
	}()

	if err := drv.Apply(ctx, l); err != nil {
		res.Reason = failureReason(err)
		return res
	}
	res.Succeeded = true
	res.Reason = "Applied"
	return res
}

func failureReason(err error) string {
	var ae *platform.ApplyError
	if errors.As(err, &ae) {
		return ae.Reason()
	}
	return err.Error()
}

func (o *Orchestrator) saveListings(ctx context.Context, run *platformRun, listings []types.Listing) {
	if o.store == nil || len(listings) == 0 {
		return
	}
	stored, err := o.store.SaveListings(context.WithoutCancel(ctx), listings)
	if err != nil {
		run.logger.Warn().Err(err).Msg("failed to save listings")
		return
	}
	run.logger.Debug().Int("seen", len(listings)).Int("stored", stored).Msg("saved listings")
}

func (o *Orchestrator) recordHistory(ctx context.Context, run *platformRun) {
	if o.store == nil || len(run.history) == 0 {
		return
	}
	if err := o.store.RecordApplications(context.WithoutCancel(ctx), run.taskID, run.name, run.history); err != nil {
		run.logger.Warn().Err(err).Msg("failed to record application history")
	}
}

// finish writes the platform's terminal status. The first call wins.
func (o *Orchestrator) finish(run *platformRun, status PlatformStatus, message string, cause error) {
	kind := EventPlatformCompleted
	if status != PlatformCompleted {
		kind = EventPlatformFailed
	}
	ev := o.newEvent(run, kind, 0, message)

	wrote := false
	o.tasks.update(run.taskID, func(t *Task) {
		p := t.Platforms[run.name]
		if p.Status.Terminal() {
			return
		}
		wrote = true
		p.Status = status
		p.Message = message
		if cause != nil {
			msg := cause.Error()
			p.Error = &msg
		}
		t.Events = append(t.Events, ev)
	})
	if !wrote {
		return
	}
	platformOutcomes.WithLabelValues(run.name, string(status)).Inc()
	o.publish(run.taskID, ev)
	run.logger.Info().Str("status", string(status)).Int("applied", run.applied).Msg(message)
}

func (o *Orchestrator) newEvent(run *platformRun, kind EventKind, page int, message string) Event {
	return Event{At: o.now().UTC(), Platform: run.name, Kind: kind, Page: page, Message: message}
}

func (o *Orchestrator) emit(run *platformRun, kind EventKind, page int, message string) {
	ev := o.newEvent(run, kind, page, message)
	o.tasks.update(run.taskID, func(t *Task) {
		t.Events = append(t.Events, ev)
	})
	o.publish(run.taskID, ev)
}

