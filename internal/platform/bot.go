// Package platform drives external listing sites: login, search, listing
// collection, pagination, and single-listing applications.
package platform

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-autopilot/internal/browser"
	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/session"
	"github.com/jonathan/apply-autopilot/internal/types"
	"github.com/jonathan/apply-autopilot/internal/wait"
	"github.com/rs/zerolog"
)

// Driver performs the operations of one platform for one session. A nil
// error means success.
type Driver interface {
	Name() string
	Login(ctx context.Context) error
	Search(ctx context.Context, keywords string) error
	CollectListings(ctx context.Context) ([]types.Listing, error)
	Apply(ctx context.Context, listing types.Listing) error
	NextPage(ctx context.Context) (bool, error)
	Close() error
}

// Bot implements Driver for any Site.
type Bot struct {
	site    *Site
	sess    *session.Session
	page    browser.Page
	profile types.Profile
	logger  zerolog.Logger
	now     func() time.Time

	keywords string
	pageNum  int
}

// NewBot wires a site to an unauthenticated session.
func NewBot(site *Site, sess *session.Session, profile types.Profile, logger zerolog.Logger) *Bot {
	return &Bot{
		site:    site,
		sess:    sess,
		page:    sess.Page(),
		profile: profile,
		logger:  logger.With().Str("platform", site.Name).Logger(),
		now:     time.Now,
	}
}

func (b *Bot) Name() string {
	return b.site.Name
}

func (b *Bot) Login(ctx context.Context) error {
	return b.sess.Login(ctx)
}

// Search opens the results for keywords and confirms a listing container
// rendered.
func (b *Bot) Search(ctx context.Context, keywords string) error {
	target := b.site.SearchURL(keywords, 1)
	b.logger.Info().Str("keywords", keywords).Str("url", target).Msg("searching")

	if err := b.page.Navigate(ctx, target); err != nil {
		return &DiscoveryError{Platform: b.site.Name, URL: target, Message: "navigation failed", Cause: err}
	}
	if err := wait.Settle(ctx, b.site.Timing.Settle); err != nil {
		return err
	}
	if _, ok := b.awaitContainers(ctx); !ok {
		return &DiscoveryError{Platform: b.site.Name, URL: target, Message: "no listing container found"}
	}

	b.keywords = keywords
	b.pageNum = 1
	return nil
}

func (b *Bot) awaitContainers(ctx context.Context) (string, bool) {
	var found string
	err := wait.Until(ctx, b.site.Timing.Poll, b.site.Timing.ContainerWait, func(ctx context.Context) (bool, error) {
		sel, ok := extract.Present(ctx, b.page, b.site.Containers)
		found = sel
		return ok, nil
	})
	if err != nil {
		return "", false
	}
	b.logger.Debug().Str("selector", found).Msg("listing container found")
	return found, true
}

// CollectListings reads up to PerPage cards from the current page. Cards
// without a title and an organization are dropped.
func (b *Bot) CollectListings(ctx context.Context) ([]types.Listing, error) {
	html, err := b.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s results page: %w", b.site.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s results page: %w", b.site.Name, err)
	}

	cardSel, cards, ok := extract.Containers(doc.Selection, b.site.Cards)
	if !ok {
		b.logger.Warn().Msg("no listing cards on page")
		return nil, nil
	}

	limit := b.site.PerPage
	if limit <= 0 {
		limit = DefaultPerPage
	}

	extractedAt := b.now().UTC()
	var listings []types.Listing
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		if l, ok := b.readCard(card, cardSel, i, extractedAt); ok {
			listings = append(listings, l)
		}
		return true
	})

	b.logger.Info().Int("cards", min(cards.Length(), limit)).Int("listings", len(listings)).Msg("collected listings")
	return listings, nil
}

func (b *Bot) readCard(card *goquery.Selection, cardSel string, index int, at time.Time) (types.Listing, bool) {
	f := b.site.Fields
	title, _ := f.Title.First(card)
	org, _ := f.Organization.First(card)
	if title == "" || org == "" {
		return types.Listing{}, false
	}

	l := types.Listing{
		Platform:     b.site.Name,
		Title:        title,
		Organization: org,
		Location:     f.Location.Or(card, f.DefaultLocation),
		Compensation: f.Compensation.Or(card, f.DefaultCompensation),
		Duration:     f.Duration.Or(card, ""),
		Deadline:     f.Deadline.Or(card, ""),
		Applicants:   f.Applicants.Or(card, ""),
		Category:     b.keywords,
		SourceURL:    b.absolute(f.URL.Or(card, "")),
		ExtractedAt:  at,
		Handle:       browser.Element{Selector: cardSel, Index: index},
	}
	if skills, ok := f.Skills.First(card); ok {
		if len(skills) > DefaultMaxSkills {
			skills = skills[:DefaultMaxSkills]
		}
		l.Skills = skills
	}
	if l.Skills == nil {
		l.Skills = []string{}
	}

	l.ExternalID, _ = f.ID.First(card)
	if l.ExternalID == "" {
		l.ExternalID = stableID(l)
	}
	return l, true
}

// stableID derives an id from the fields that identify a posting so that
// collecting an unchanged page twice yields the same id.
func stableID(l types.Listing) string {
	basis := l.SourceURL
	if basis == "" {
		basis = l.Title + "\x00" + l.Organization + "\x00" + l.Location
	}
	sum := sha1.Sum([]byte(l.Platform + "\x00" + basis))
	return l.Platform + "_" + hex.EncodeToString(sum[:8])
}

func (b *Bot) absolute(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	base, err := url.Parse(b.site.BaseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}

// NextPage advances to the next results page. It returns false when there
// is no further page.
func (b *Bot) NextPage(ctx context.Context) (bool, error) {
	if b.pageNum == 0 {
		return false, errors.New("next page requested before search")
	}

	if !b.site.NextPage.IsZero() {
		control, err := extract.FindControl(ctx, b.page, b.site.NextPage)
		if err != nil {
			return false, nil
		}
		if err := b.page.Click(ctx, control); err != nil {
			return false, fmt.Errorf("failed to open next %s page: %w", b.site.Name, err)
		}
	} else {
		target := b.site.SearchURL(b.keywords, b.pageNum+1)
		if err := b.page.Navigate(ctx, target); err != nil {
			return false, fmt.Errorf("failed to open next %s page: %w", b.site.Name, err)
		}
	}

	if err := wait.Settle(ctx, b.site.Timing.Settle); err != nil {
		return false, err
	}
	if _, ok := b.awaitContainers(ctx); !ok {
		return false, nil
	}
	b.pageNum++
	return true, nil
}

func (b *Bot) Close() error {
	return b.sess.Close()
}
