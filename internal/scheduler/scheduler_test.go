package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-autopilot/internal/automation"
)

type fakeScraper struct {
	mu     sync.Mutex
	calls  []automation.ScrapeRequest
	fail   string
	sweeps int
	block  chan struct{}
}

func (f *fakeScraper) Scrape(_ context.Context, req automation.ScrapeRequest) (automation.ScrapeResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if req.Platform == f.fail {
		return automation.ScrapeResult{}, errors.New("browser gone")
	}
	return automation.ScrapeResult{Platform: req.Platform, Seen: 10, Stored: 4}, nil
}

func (f *fakeScraper) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1
}

func (f *fakeScraper) requests() []automation.ScrapeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.ScrapeRequest(nil), f.calls...)
}

func TestRunScrape_AllCombinations(t *testing.T) {
	f := &fakeScraper{fail: "linkedin"}
	s := New(f, Config{
		Spec:      "@every 1h",
		Platforms: []string{"internshala", "linkedin"},
		Keywords:  []string{"go", "python"},
		Pages:     3,
	}, zerolog.Nop())

	s.RunScrape(context.Background())

	got := f.requests()
	require.Len(t, got, 4, "a failing platform must not stop the cycle")
	assert.Equal(t, automation.ScrapeRequest{Platform: "internshala", Keywords: "go", MaxPages: 3}, got[0])
	assert.Equal(t, automation.ScrapeRequest{Platform: "linkedin", Keywords: "python", MaxPages: 3}, got[3])
}

func TestRunScrape_NothingConfigured(t *testing.T) {
	f := &fakeScraper{}
	s := New(f, Config{Spec: "@every 1h", Platforms: []string{"internshala"}}, zerolog.Nop())
	s.RunScrape(context.Background())
	assert.Empty(t, f.requests())
}

func TestRunScrape_CancelledContext(t *testing.T) {
	f := &fakeScraper{}
	s := New(f, Config{Platforms: []string{"internshala"}, Keywords: []string{"go"}}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunScrape(ctx)
	assert.Empty(t, f.requests())
}

func TestRunScrape_SkipsOverlap(t *testing.T) {
	f := &fakeScraper{block: make(chan struct{})}
	s := New(f, Config{Platforms: []string{"internshala"}, Keywords: []string{"go"}}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		s.RunScrape(context.Background())
		close(done)
	}()
	require.Eventually(t, s.running.Load, time.Second, 5*time.Millisecond)

	s.RunScrape(context.Background()) // returns immediately
	close(f.block)
	<-done

	assert.Len(t, f.requests(), 1)
}

func TestStart_RunsImmediately(t *testing.T) {
	f := &fakeScraper{}
	s := New(f, Config{
		Spec:      "@every 1h",
		Platforms: []string{"internshala"},
		Keywords:  []string{"go"},
		Pages:     1,
	}, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return len(f.requests()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New(&fakeScraper{}, Config{Spec: "every now and then"}, zerolog.Nop())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron.AddFunc")
}

func TestStart_SweepOnly(t *testing.T) {
	f := &fakeScraper{}
	s := New(f, Config{Sweep: true, Platforms: []string{"internshala"}, Keywords: []string{"go"}}, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	s.runSweep()
	s.Stop()

	assert.Empty(t, f.requests(), "no scrape without a spec")
	assert.Equal(t, 1, f.sweeps)
	assert.Len(t, s.cron.Entries(), 1)
}
