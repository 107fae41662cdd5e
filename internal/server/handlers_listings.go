package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/db"
	"github.com/jonathan/apply-autopilot/internal/schemas"
)

// parseQueryInt reads a non-negative integer query parameter, falling back
// to defaultValue when absent or invalid.
func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	val, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || val < 0 {
		return defaultValue
	}
	return val
}

// handleListListings pages through stored listings. Filters: platform
// (exact), organization, title, location, category (substring).
func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.store.ListListings(r.Context(), db.ListingFilter{
		Platform:     q.Get("platform"),
		Organization: q.Get("organization"),
		Title:        q.Get("title"),
		Location:     q.Get("location"),
		Category:     q.Get("category"),
		Page:         parseQueryInt(r, "page", 1),
		PerPage:      parseQueryInt(r, "per_page", db.DefaultPerPage),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

// handleListingStats returns counts by platform, category and organization.
func (s *Server) handleListingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ListingStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// handleGetListing retrieves a listing by its ID
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}

	listing, err := s.store.GetListing(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if listing == nil {
		s.errorResponse(w, http.StatusNotFound, "Listing not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, listing)
}

// handleScrape collects listings from one platform without applying. It
// blocks until the scrape finishes.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req automation.ScrapeRequest
	if err := readJSON(w, r, schemas.ValidateScrape, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.automation.Scrape(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "result": result})
}
