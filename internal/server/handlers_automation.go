package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/db"
	"github.com/jonathan/apply-autopilot/internal/schemas"
	"github.com/jonathan/apply-autopilot/internal/server/middleware"
	"github.com/jonathan/apply-autopilot/internal/types"
)

const maxBodyBytes = 1 << 20

// SearchAndApplyResponse acknowledges a started automation task.
type SearchAndApplyResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	TaskID    string   `json:"task_id"`
	Platforms []string `json:"platforms"`
}

// TaskResponse wraps one task snapshot.
type TaskResponse struct {
	Success bool            `json:"success"`
	Task    automation.Task `json:"task"`
}

// ListTasksResponse lists every known task keyed by id.
type ListTasksResponse struct {
	Success bool                       `json:"success"`
	Tasks   map[string]automation.Task `json:"tasks"`
	Count   int                        `json:"count"`
}

// readJSON reads a bounded body, checks it against a schema, and decodes it
// into v.
func readJSON(w http.ResponseWriter, r *http.Request, validate func([]byte) error, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &ErrBadRequest{Message: "Request body too large or unreadable", Cause: err}
	}
	if !json.Valid(body) {
		return &ErrBadRequest{Message: "Invalid JSON body"}
	}
	if err := validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ErrBadRequest{Message: "Invalid JSON body", Cause: err}
	}
	return nil
}

// handleSearchAndApply validates a request and starts an automation task.
// It returns as soon as the task is recorded.
func (s *Server) handleSearchAndApply(w http.ResponseWriter, r *http.Request) {
	var req automation.Request
	if err := readJSON(w, r, schemas.ValidateRequest, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	profile := s.loadProfile(r)
	taskID, err := s.automation.Submit(r.Context(), req, profile)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, SearchAndApplyResponse{
		Success:   true,
		Message:   "Automation started successfully",
		TaskID:    taskID,
		Platforms: req.WithDefaults().Enabled(),
	})
}

// loadProfile returns the caller's saved application profile. A lookup
// failure runs the task without one.
func (s *Server) loadProfile(r *http.Request) types.Profile {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return types.Profile{}
	}
	profile, err := s.store.GetApplicationProfile(r.Context(), userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to load application profile")
		return types.Profile{}
	}
	return profile
}

// handleStatus returns a snapshot of one task.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.automation.Poll(r.PathValue("task_id"))
	if errors.Is(err, automation.ErrTaskNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, TaskResponse{Success: true, Task: task})
}

// handleListTasks returns every task still held in memory.
func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := s.automation.List()
	byID := make(map[string]automation.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	s.jsonResponse(w, http.StatusOK, ListTasksResponse{Success: true, Tasks: byID, Count: len(tasks)})
}

// handleStatusStream pushes a "task" event for every change of the task
// and a final "complete" event once it is done. A reconnecting client may
// send Last-Event-ID to skip versions it already has.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	if _, err := s.automation.Poll(id); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Task not found")
		return
	}

	after, _ := strconv.Atoi(r.Header.Get("Last-Event-ID"))

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for {
		task, err := s.automation.Wait(r.Context(), id, after)
		if err != nil {
			if errors.Is(err, automation.ErrTaskNotFound) {
				sse.WriteError("Task not found")
			}
			return
		}
		if err := sse.WriteEvent("task", strconv.Itoa(task.Version), task); err != nil {
			s.logger.Debug().Err(err).Str("task_id", id).Msg("stream closed")
			return
		}
		if task.Done() {
			sse.WriteComplete(id, string(task.Status))
			return
		}
		after = task.Version
	}
}

// handlePlatforms lists the platforms a request may enable.
func (s *Server) handlePlatforms(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"platforms": s.automation.Platforms(),
	})
}

// handleTaskApplications returns the persisted application outcomes of a
// task. It works after the task has been swept from memory.
func (s *Server) handleTaskApplications(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListApplications(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []db.ApplicationRow{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":      true,
		"applications": rows,
		"count":        len(rows),
	})
}
