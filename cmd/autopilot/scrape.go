package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/config"
	"github.com/jonathan/apply-autopilot/internal/db"
	"github.com/jonathan/apply-autopilot/internal/observability"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <platform>",
	Short: "Collect listings from one platform without applying",
	Long: `Scrape searches a platform and stores the listings it finds. No login or
application is attempted. Listings go to DATABASE_URL when set.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

var (
	scrapeKeywords string
	scrapePages    int
)

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeKeywords, "keywords", "k", "", "Search keywords")
	scrapeCmd.Flags().IntVar(&scrapePages, "max-pages", 0, "Maximum result pages")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	b, err := config.LoadBrowser()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store automation.ListingStore = db.NewMemoryStore()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		database, err := db.Connect(ctx, url)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		store = database
	}

	registry, err := newRegistry(b, nil, logger)
	if err != nil {
		return err
	}
	orch := automation.New(registry, automation.Options{Store: store, Logger: logger})

	res, err := orch.Scrape(ctx, automation.ScrapeRequest{
		Platform: args[0],
		Keywords: scrapeKeywords,
		MaxPages: scrapePages,
	})
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintScrapeResult(res)
	return nil
}
