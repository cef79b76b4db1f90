package api

import (
	"net/http"

	"github.com/maios-ai/orchestrator/internal/catalog"
)

// workflowsResponse is the JSON response for GET /orchestration/workflows.
type workflowsResponse struct {
	Workflows []string `json:"workflows"`
	Default   string   `json:"default"`
	TaskTypes []string `json:"task_types"`
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, workflowsResponse{
		Workflows: s.catalog.Workflows(),
		Default:   catalog.DefaultWorkflow,
		TaskTypes: s.workers.Types(),
	})
}
