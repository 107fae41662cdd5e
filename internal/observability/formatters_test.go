package observability

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-autopilot/internal/automation"
)

func strPtr(s string) *string { return &s }

func TestPrintEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		name string
		ev   automation.Event
		want string
	}{
		{
			name: "task level",
			ev:   automation.Event{At: at, Kind: automation.EventTaskCompleted, Message: "done"},
			want: "14:05:09  task_completed",
		},
		{
			name: "platform",
			ev:   automation.Event{At: at, Platform: "linkedin", Kind: automation.EventLoginSucceeded, Message: "direct"},
			want: "[linkedin] login_succeeded",
		},
		{
			name: "page",
			ev:   automation.Event{At: at, Platform: "internshala", Page: 2, Kind: automation.EventPageCompleted, Message: "3 applied"},
			want: "[internshala p2] page_completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintEvent(tt.ev)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), tt.ev.Message)
			assert.True(t, strings.HasSuffix(buf.String(), "\n"))
		})
	}
}

func TestPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	started := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	done := started.Add(90 * time.Second)
	task := automation.Task{
		ID:              "task-123",
		Status:          automation.StatusCompleted,
		StartedAt:       started,
		CompletedAt:     &done,
		Keywords:        "web-development",
		MaxApplications: 5,
		MaxPages:        2,
		Platforms: map[string]*automation.PlatformResult{
			"linkedin": {Status: automation.PlatformFailed, Error: strPtr("login failed")},
			"internshala": {
				Status:       automation.PlatformCompleted,
				LoginMode:    "direct",
				TotalApplied: 1,
				PagesDone:    1,
				ListingsSeen: 8,
				Applications: []automation.ApplicationResult{
					{Title: "Go Intern", Organization: "Acme", Succeeded: true},
					{Title: "Web Intern", Organization: "Globex", Reason: "no apply button"},
				},
			},
		},
	}

	p.PrintTask(task)
	output := buf.String()

	assert.Contains(t, output, "AUTOMATION TASK")
	assert.Contains(t, output, "task-123")
	assert.Contains(t, output, "1m30s")
	assert.Contains(t, output, "Applied:   1")
	assert.Contains(t, output, "(direct login)")
	assert.Contains(t, output, "✓ Go Intern @ Acme")
	assert.Contains(t, output, "✗ Web Intern @ Globex (no apply button)")
	assert.Contains(t, output, "login failed")
	assert.Less(t, strings.Index(output, "INTERNSHALA"), strings.Index(output, "LINKEDIN"))
}

func TestPrintPlatformResult_ShowsLatestAttempts(t *testing.T) {
	var buf bytes.Buffer
	res := &automation.PlatformResult{Status: automation.PlatformCompleted}
	for i := 0; i < maxItemsToShow+2; i++ {
		res.Applications = append(res.Applications, automation.ApplicationResult{
			Title: "Role " + string(rune('A'+i)), Organization: "Org", Succeeded: true,
		})
	}

	NewPrinter(&buf).PrintPlatformResult("internshala", res)
	output := buf.String()

	assert.Contains(t, output, "... 2 earlier attempts")
	assert.NotContains(t, output, "Role A @")
	assert.Contains(t, output, "Role G @")
}

func TestPrintPlatformResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPlatformResult("linkedin", nil)
	assert.Empty(t, buf.String())
}

func TestPrintScrapeResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintScrapeResult(automation.ScrapeResult{
		Platform: "internshala", Keywords: "go", Pages: 2, Seen: 40, Stored: 12,
	})
	output := buf.String()

	assert.Contains(t, output, "SCRAPE RESULT")
	assert.Contains(t, output, "Seen:      40")
	assert.Contains(t, output, "New:       12")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
	assert.Contains(t, buf.String(), "...")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Str("task_id", "t1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"task_id":"t1"`)
	assert.Contains(t, out, `"time":`)

	assert.Equal(t, zerolog.DebugLevel, NewLogger(&buf, true).GetLevel())
}

func TestNewLogger_NonTerminalFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	logger := NewLogger(f, false)
	logger.Info().Msg("to file")
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}
