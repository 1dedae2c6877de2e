// ABOUTME: JSON and document handlers for workflow execution, history lookup, and pipeline edits.
// ABOUTME: Error bodies use {"detail": "..."} so API clients see one error shape everywhere.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/saicharanallam/sigmachain/report"
	"github.com/saicharanallam/sigmachain/steps"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 10
	maxRequestBody      = 1 << 20
	successMessage      = "Image generated and validated successfully"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse is the body returned by POST /api/generate.
type GenerateResponse struct {
	Success    bool   `json:"success"`
	WorkflowID string `json:"workflow_id"`
	Result     any    `json:"result"`
	Message    string `json:"message"`
}

// AddStepRequest is the body of POST /api/pipeline/steps.
type AddStepRequest struct {
	Name     string `json:"name"`
	Position *int   `json:"position,omitempty"`
}

// PipelineResponse describes the current pipeline and the steps that can be added.
type PipelineResponse struct {
	Steps     []pipeline.StepInfo  `json:"steps"`
	Available []steps.CatalogEntry `json:"available"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleGenerate runs the pipeline synchronously. Failed runs are not HTTP
// errors; the response carries success=false and the whole run.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	ctx := r.Context()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	run := s.engine.Execute(ctx, req.Prompt)
	if run.Status == pipeline.StatusCompleted {
		writeJSON(w, http.StatusOK, GenerateResponse{
			Success:    true,
			WorkflowID: run.ID,
			Result:     run.FinalResult,
			Message:    successMessage,
		})
		return
	}

	msg := run.Error
	if msg == "" {
		msg = "Workflow failed"
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:    false,
		WorkflowID: run.ID,
		Result:     run,
		Message:    msg,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": s.engine.GetHistory(limit)})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleWorkflowReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	page, err := report.HTML(run)
	if err != nil {
		s.logger.Error("render report failed", zap.String("workflow_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleWorkflowExport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	doc, err := report.YAML(run)
	if err != nil {
		s.logger.Error("export run failed", zap.String("workflow_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export workflow")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+run.ID+`.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// lookupRun writes a 404 and returns false when the run is not in history.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*pipeline.WorkflowRun, bool) {
	run, err := s.engine.GetRun(chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Workflow not found")
		return nil, false
	}
	return run, true
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipelineResponse())
}

func (s *Server) pipelineResponse() PipelineResponse {
	resp := PipelineResponse{
		Steps:     s.engine.Steps(),
		Available: []steps.CatalogEntry{},
	}
	if s.cfg.Catalog != nil {
		resp.Available = s.cfg.Catalog.Entries()
	}
	return resp
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req AddStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Step name is required")
		return
	}
	if s.cfg.Catalog == nil {
		writeError(w, http.StatusNotFound, "Unknown step: "+req.Name)
		return
	}

	step, err := s.cfg.Catalog.Build(req.Name)
	if err != nil {
		if errors.Is(err, steps.ErrUnknownStep) {
			writeError(w, http.StatusNotFound, "Unknown step: "+req.Name)
			return
		}
		s.logger.Warn("build step failed", zap.String("step", req.Name), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	opts := append([]pipeline.StepOption(nil), s.cfg.StepOptions...)
	if req.Position != nil {
		opts = append(opts, pipeline.AtPosition(*req.Position))
	}
	if err := s.engine.AddStep(step, opts...); err != nil {
		writeError(w, pipelineErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.pipelineResponse())
}

func (s *Server) handleRemoveStep(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.engine.RemoveStep(name); err != nil {
		writeError(w, pipelineErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.pipelineResponse())
}

// pipelineErrorStatus maps engine mutation errors to HTTP statuses.
func pipelineErrorStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrDuplicateStep), errors.Is(err, pipeline.ErrUnsatisfiedKey):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrInvalidPosition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
