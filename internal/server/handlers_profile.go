package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/apply-autopilot/internal/server/middleware"
	"github.com/jonathan/apply-autopilot/internal/types"
)

// ProfileResponse carries the caller's application profile.
type ProfileResponse struct {
	Success bool          `json:"success"`
	Email   string        `json:"email,omitempty"`
	Profile types.Profile `json:"profile"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := s.store.GetApplicationProfile(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ProfileResponse{Success: true, Email: middleware.GetEmail(r), Profile: profile})
}

// handlePutProfile replaces the caller's application profile.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var profile types.Profile
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&profile); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := profile.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid profile: "+err.Error())
		return
	}

	if err := s.store.SaveApplicationProfile(r.Context(), userID, profile); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ProfileResponse{Success: true, Email: middleware.GetEmail(r), Profile: profile})
}
