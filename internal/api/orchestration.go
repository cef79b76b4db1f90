package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maios-ai/orchestrator/internal/model"
	"github.com/maios-ai/orchestrator/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// executeResponse is the acknowledgement for POST /orchestration/execute. The
// full snapshot is available immediately on the status endpoint.
type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecutionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Intent == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "intent is required")
		return
	}
	// An absent task_type resolves to the default workflow in the catalog.

	exec, err := s.engine.Execute(r.Context(), &req)
	if err != nil {
		s.logger.Error("submit execution", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit execution")
		return
	}

	s.writeJSON(w, http.StatusOK, executeResponse{
		ExecutionID: exec.ExecutionID,
		Status:      exec.Status,
		Message:     exec.Message,
		CreatedAt:   exec.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	exec, err := s.engine.GetStatus(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "execution not found: "+id)
		return
	}
	if err != nil {
		s.logger.Error("get execution", "execution_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !model.ValidStatus(statusFilter) {
		s.writeError(w, http.StatusBadRequest, "unknown status filter: "+statusFilter)
		return
	}

	limit := store.ClampLimit(parseIntQuery(r, "limit", store.DefaultListLimit))

	executions, err := s.engine.ListExecutions(r.Context(), statusFilter, limit)
	if err != nil {
		s.logger.Error("list executions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	if executions == nil {
		executions = []*model.Execution{}
	}
	s.writeJSON(w, http.StatusOK, executions)
}

// cancelResponse is the acknowledgement for a cancellation request. The
// execution reaches the cancelled state asynchronously, at the runner's next
// checkpoint.
type cancelResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

func (s *Server) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	if s.engine.Cancel(id) {
		s.writeJSON(w, http.StatusAccepted, cancelResponse{
			ExecutionID: id,
			Status:      "cancelling",
			Message:     "Cancellation requested",
		})
		return
	}

	// No live runner: either the execution never existed or it already
	// reached a terminal state.
	exec, err := s.engine.GetStatus(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "execution not found: "+id)
		return
	}
	if err != nil {
		s.logger.Error("get execution for cancel", "execution_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	s.writeError(w, http.StatusConflict, "execution already "+exec.Status)
}

func (s *Server) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	exec, err := s.engine.GetStatus(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "execution not found: "+id)
		return
	}
	if err != nil {
		s.logger.Error("get execution for delete", "execution_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	// A live runner still writes to this record; only finished executions can
	// be removed.
	if !model.IsTerminal(exec.Status) {
		s.writeError(w, http.StatusConflict, "execution still "+exec.Status)
		return
	}

	existed, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("delete execution", "execution_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete execution")
		return
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, "execution not found: "+id)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"execution_id": id,
		"message":      "Execution deleted",
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	q := r.URL.Query().Get(key)
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil {
		return defaultVal
	}
	return v
}
