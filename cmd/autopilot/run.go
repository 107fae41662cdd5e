package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/config"
	"github.com/jonathan/apply-autopilot/internal/observability"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one automation task and print its progress",
	Long: `Run searches and applies on the platforms enabled in a JSON run file and
streams progress until every platform finishes.

Command-line flags override values from the run file.`,
	RunE: runAutomationCmd,
}

var (
	runConfigPath      string
	runKeywords        string
	runMaxApplications int
	runMaxPages        int
	runPlatforms       []string
)

func init() {
	runCommand.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to run file (required)")
	runCommand.Flags().StringVarP(&runKeywords, "keywords", "k", "", "Search keywords")
	runCommand.Flags().IntVar(&runMaxApplications, "max-applications", 0, "Maximum applications per platform")
	runCommand.Flags().IntVar(&runMaxPages, "max-pages", 0, "Maximum result pages per platform")
	runCommand.Flags().StringSliceVarP(&runPlatforms, "platform", "p", nil, "Only run these platforms from the file")
	_ = runCommand.MarkFlagRequired("config")

	rootCmd.AddCommand(runCommand)
}

func runAutomationCmd(cmd *cobra.Command, _ []string) error {
	rf, err := config.LoadRunFile(runConfigPath)
	if err != nil {
		return err
	}
	req := rf.Apply(config.Overrides{
		Keywords:        runKeywords,
		MaxApplications: runMaxApplications,
		MaxPages:        runMaxPages,
		Platforms:       runPlatforms,
	})

	b, err := config.LoadBrowser()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	registry, err := newRegistry(b, nil, logger)
	if err != nil {
		return err
	}
	orch := automation.New(registry, automation.Options{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := orch.Submit(ctx, req, rf.Profile)
	if err != nil {
		return err
	}

	task, err := follow(ctx, orch, id, observability.NewPrinter(cmd.OutOrStdout()))
	if err != nil {
		// interrupted: stop workers so their browsers close
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = orch.Shutdown(shutdownCtx)
		if task, perr := orch.Poll(id); perr == nil {
			observability.NewPrinter(cmd.OutOrStdout()).PrintTask(task)
		}
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintTask(task)
	if task.Status != automation.StatusCompleted {
		return fmt.Errorf("task %s %s", id, task.Status)
	}
	return nil
}

// follow prints each new event of the task until it is done.
func follow(ctx context.Context, orch *automation.Orchestrator, id string, p *observability.Printer) (automation.Task, error) {
	version, printed := 0, 0
	for {
		task, err := orch.Wait(ctx, id, version)
		if err != nil {
			return automation.Task{}, err
		}
		for _, ev := range task.Events[printed:] {
			p.PrintEvent(ev)
		}
		printed = len(task.Events)
		if task.Done() {
			return task, nil
		}
		version = task.Version
	}
}
