package automation

import (
	"context"
	"fmt"

	"github.com/jonathan/apply-autopilot/internal/session"
	"github.com/jonathan/apply-autopilot/internal/types"
)

// ScrapeRequest collects listings without logging in or applying.
type ScrapeRequest struct {
	Platform string `json:"platform" validate:"required"`
	Keywords string `json:"keywords" validate:"max=200"`
	MaxPages int    `json:"max_pages" validate:"min=0,max=50"`
}

// ScrapeResult counts what a scrape found and how much of it was new.
type ScrapeResult struct {
	Platform string `json:"platform"`
	Keywords string `json:"keywords"`
	Pages    int    `json:"pages"`
	Seen     int    `json:"seen"`
	Stored   int    `json:"stored"`
}

// Scrape searches one platform and persists the deduplicated listings of up
// to MaxPages result pages. It blocks until done.
func (o *Orchestrator) Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResult, error) {
	if req.Keywords == "" {
		req.Keywords = DefaultKeywords
	}
	if req.MaxPages == 0 {
		req.MaxPages = DefaultMaxPages
	}
	if err := validate.Struct(req); err != nil {
		return ScrapeResult{}, &ValidationError{Field: "scrape", Message: "validation error: invalid scrape request", Cause: err}
	}
	if !o.known(req.Platform) {
		return ScrapeResult{}, invalid("platform", "Unsupported platform %s", req.Platform)
	}

	res := ScrapeResult{Platform: req.Platform, Keywords: req.Keywords}
	logger := o.logger.With().Str("platform", req.Platform).Str("keywords", req.Keywords).Logger()

	drv, err := o.drivers.Open(ctx, req.Platform, session.Credential{Mode: session.ModeDirect}, types.Profile{})
	if err != nil {
		return res, fmt.Errorf("failed to open %s: %w", req.Platform, err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close session")
		}
	}()

	if err := drv.Search(ctx, req.Keywords); err != nil {
		return res, fmt.Errorf("failed to search %s: %w", req.Platform, err)
	}

	for page := 1; page <= req.MaxPages; page++ {
		listings, err := drv.CollectListings(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to collect %s page %d: %w", req.Platform, page, err)
		}
		res.Pages = page
		res.Seen += len(listings)
		listingsCollected.WithLabelValues(req.Platform).Add(float64(len(listings)))

		if o.store != nil && len(listings) > 0 {
			n, err := o.store.SaveListings(ctx, listings)
			if err != nil {
				return res, fmt.Errorf("failed to save %s listings: %w", req.Platform, err)
			}
			res.Stored += n
		}

		if page == req.MaxPages {
			break
		}
		more, err := drv.NextPage(ctx)
		if err != nil || !more {
			break
		}
	}

	logger.Info().Int("pages", res.Pages).Int("seen", res.Seen).Int("stored", res.Stored).Msg("scrape finished")
	return res, nil
}
