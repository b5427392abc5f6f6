package localapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"taskdeck/internal/taskstate"
)

func (s *Server) registerTaskRoutes() {
	s.mux.HandleFunc("/api/v1/tasks", s.handleTasks)
	s.mux.HandleFunc("/api/v1/tasks/", s.handleTaskByID)
	s.mux.HandleFunc("/api/v1/filter", s.handleFilter)
}

type taskForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := s.deps.Tasks.Fetch(r.Context()); err != nil {
			respondTaskError(w, err)
			return
		}
		respondOK(w, map[string]any{
			"tasks":  s.deps.Tasks.Filtered(),
			"filter": string(s.deps.Tasks.Snapshot().Filter),
		})
	case http.MethodPost:
		var form taskForm
		if err := decodeJSON(r, &form); err != nil {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid task payload")
			return
		}
		task, err := s.deps.Tasks.Create(r.Context(), form.Title, form.Description)
		if err != nil {
			respondTaskError(w, err)
			return
		}
		respondOK(w, task)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	parts := strings.Split(rest, "/")

	taskID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || taskID <= 0 {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "invalid task id")
		return
	}

	if len(parts) == 2 && parts[1] == "toggle" {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		task, err := s.deps.Tasks.ToggleCompletion(r.Context(), taskID)
		if err != nil {
			respondTaskError(w, err)
			return
		}
		respondOK(w, task)
		return
	}
	if len(parts) != 1 {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var form taskForm
		if err := decodeJSON(r, &form); err != nil {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid task payload")
			return
		}
		task, err := s.deps.Tasks.Update(r.Context(), taskID, form.Title, form.Description)
		if err != nil {
			respondTaskError(w, err)
			return
		}
		respondOK(w, task)
	case http.MethodDelete:
		if err := s.deps.Tasks.Delete(r.Context(), taskID); err != nil {
			respondTaskError(w, err)
			return
		}
		respondOK(w, map[string]any{"deleted": taskID})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondOK(w, map[string]any{"filter": string(s.deps.Tasks.Snapshot().Filter)})
	case http.MethodPut:
		var form struct {
			Filter string `json:"filter"`
		}
		if err := decodeJSON(r, &form); err != nil {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid filter payload")
			return
		}
		s.deps.Tasks.SetFilter(taskstate.Filter(form.Filter))
		respondOK(w, map[string]any{
			"filter": string(s.deps.Tasks.Snapshot().Filter),
			"tasks":  s.deps.Tasks.Filtered(),
		})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func respondTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taskstate.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", err.Error())
	case errors.Is(err, taskstate.ErrEmptyTitle):
		respondError(w, http.StatusBadRequest, "EMPTY_TITLE", err.Error())
	default:
		respondError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
	}
}
