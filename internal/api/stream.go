package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maios-ai/orchestrator/internal/model"
	"github.com/maios-ai/orchestrator/internal/store"
)

func (s *Server) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	exec, err := s.engine.GetStatus(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "execution not found: "+id)
		return
	}
	if err != nil {
		s.logger.Error("get execution for stream", "execution_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Already terminal: send the final snapshot and close.
	if model.IsTerminal(exec.Status) {
		w.WriteHeader(http.StatusOK)
		_ = writeSSESnapshot(w, exec)
		_ = writeSSEEvent(w, "done", exec.Status)
		return
	}

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribing is safe even if the execution finished between the status
	// check above and this call: Subscribe on a closed topic returns a closed
	// channel, so the loop below exits immediately.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	// Initial snapshot so the client does not wait for the next checkpoint.
	if err := writeSSESnapshot(w, exec); err != nil {
		return
	}
	if canFlush {
		flusher.Flush()
	}

	last := exec
	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				// Runner finished; re-read so the done event reflects the
				// terminal state even if the final publish was dropped.
				if final, err := s.engine.GetStatus(r.Context(), id); err == nil {
					last = final
					_ = writeSSESnapshot(w, final)
				}
				_ = writeSSEEvent(w, "done", last.Status)
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if err := writeSSESnapshot(w, snapshot); err != nil {
				return // Client gone.
			}
			if canFlush {
				flusher.Flush()
			}
			last = snapshot
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSESnapshot writes an execution snapshot as a single SSE data event.
func writeSSESnapshot(w http.ResponseWriter, exec *model.Execution) error {
	payload, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
