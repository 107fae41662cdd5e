// Package automation runs application tasks: one worker per enabled
// platform, results gathered into a shared task record that callers poll.
package automation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/apply-autopilot/internal/platform"
	"github.com/jonathan/apply-autopilot/internal/session"
	"github.com/jonathan/apply-autopilot/internal/types"
)

// Drivers opens platform drivers by name. *platform.Registry satisfies it.
type Drivers interface {
	Open(ctx context.Context, name string, cred session.Credential, profile types.Profile) (platform.Driver, error)
	Names() []string
}

// ListingStore persists what workers discover. SaveListings returns how
// many listings were new.
type ListingStore interface {
	SaveListings(ctx context.Context, listings []types.Listing) (int, error)
	RecordApplications(ctx context.Context, taskID, platform string, results []types.ApplicationResult) error
}

// Publisher forwards progress events outside the process.
type Publisher interface {
	Publish(ctx context.Context, taskID string, ev Event) error
}

// Options configures an Orchestrator. Store and Publisher are optional.
type Options struct {
	Store     ListingStore
	Publisher Publisher
	Logger    zerolog.Logger
	// Retention is how long finished tasks are kept by Sweep. Zero keeps
	// them for the life of the process.
	Retention time.Duration
	Now       func() time.Time
}

// Orchestrator accepts tasks and runs their platform workers in the
// background.
type Orchestrator struct {
	drivers   Drivers
	store     ListingStore
	publisher Publisher
	logger    zerolog.Logger
	retention time.Duration
	now       func() time.Time

	tasks *taskRegistry

	// Workers run on base rather than the submitting request's context.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator over the given drivers.
func New(drivers Drivers, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		drivers:   drivers,
		store:     opts.Store,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		retention: opts.Retention,
		now:       now,
		tasks:     newTaskRegistry(now),
		base:      base,
		cancel:    cancel,
	}
}

// Platforms lists the names a request may enable.
func (o *Orchestrator) Platforms() []string {
	return o.drivers.Names()
}

func (o *Orchestrator) known(name string) bool {
	for _, n := range o.drivers.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Submit validates req, records a running task, and starts its workers. It
// returns without waiting for any platform. A rejected request returns
// *ValidationError and creates no task.
func (o *Orchestrator) Submit(ctx context.Context, req Request, profile types.Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req = req.WithDefaults()
	if err := req.Validate(o.known); err != nil {
		return "", err
	}

	enabled := req.Enabled()
	task := &Task{
		Status:          StatusRunning,
		StartedAt:       o.now().UTC(),
		Keywords:        req.Keywords,
		MaxApplications: req.MaxApplications,
		MaxPages:        req.MaxPages,
		Platforms:       make(map[string]*PlatformResult, len(enabled)),
		Events:          []Event{},
	}
	for _, name := range enabled {
		mode, _ := session.ParseLoginMode(req.Platforms[name].LoginMode)
		task.Platforms[name] = &PlatformResult{
			Status:       PlatformPending,
			LoginMode:    string(mode),
			Applications: []ApplicationResult{},
		}
	}
	id := o.tasks.create(task)
	tasksSubmitted.Inc()

	o.logger.Info().
		Str("task_id", id).
		Strs("platforms", enabled).
		Str("keywords", req.Keywords).
		Int("max_applications", req.MaxApplications).
		Int("max_pages", req.MaxPages).
		Bool("profile", !profile.IsEmpty()).
		Msg("automation task started")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(id, req, enabled, profile)
	}()
	return id, nil
}

// run executes every platform concurrently and finalizes the task once all
// of them are terminal.
func (o *Orchestrator) run(id string, req Request, enabled []string, profile types.Profile) {
	var g errgroup.Group
	for _, name := range enabled {
		g.Go(func() error {
			o.runPlatform(o.base, id, name, req, profile)
			return nil
		})
	}
	_ = g.Wait()

	status := StatusCompleted
	msg := "All platforms finished"
	if o.base.Err() != nil {
		status = StatusFailed
		msg = "Interrupted by shutdown"
	}
	ev := Event{At: o.now().UTC(), Kind: EventTaskCompleted, Message: msg}
	o.tasks.update(id, func(t *Task) {
		// a shutdown can leave workers that never reached a terminal status
		if !t.allTerminal() {
			for _, p := range t.Platforms {
				if !p.Status.Terminal() {
					p.Status = PlatformError
					p.Error = &msg
				}
			}
		}
		t.Status = status
		at := ev.At
		t.CompletedAt = &at
		t.Events = append(t.Events, ev)
	})
	o.publish(id, ev)

	o.logger.Info().Str("task_id", id).Str("status", string(status)).Msg("automation task finished")
}

// Poll returns a snapshot of the task.
func (o *Orchestrator) Poll(id string) (Task, error) {
	t, ok := o.tasks.get(id)
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

// List returns snapshots of every task ordered by id.
func (o *Orchestrator) List() []Task {
	return o.tasks.list()
}

// Wait blocks until the task changes past version after and returns the
// new snapshot.
func (o *Orchestrator) Wait(ctx context.Context, id string, after int) (Task, error) {
	return o.tasks.wait(ctx, id, after)
}

// Await blocks until the task is finished.
func (o *Orchestrator) Await(ctx context.Context, id string) (Task, error) {
	version := 0
	for {
		t, err := o.Wait(ctx, id, version)
		if err != nil {
			return Task{}, err
		}
		if t.Done() {
			return t, nil
		}
		version = t.Version
	}
}

// Sweep evicts finished tasks older than the retention window. It is a
// no-op when retention is disabled.
func (o *Orchestrator) Sweep() int {
	if o.retention <= 0 {
		return 0
	}
	n := o.tasks.sweep(o.now().Add(-o.retention))
	if n > 0 {
		o.logger.Info().Int("evicted", n).Msg("swept finished tasks")
	}
	return n
}

// Shutdown cancels running workers and waits for them to release their
// sessions, or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) publish(id string, ev Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(context.WithoutCancel(o.base), id, ev); err != nil {
		o.logger.Warn().Err(err).Str("task_id", id).Str("kind", string(ev.Kind)).Msg("failed to publish event")
	}
}
