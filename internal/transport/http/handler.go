package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"autoarchitect/internal/entity"
	"autoarchitect/internal/service"
)

type Handler struct {
	jobSvc *service.JobService
}

func NewHandler(jobSvc *service.JobService) *Handler {
	return &Handler{jobSvc: jobSvc}
}

type analyzeDTO struct {
	RepoURL     string `json:"repo_url"`
	GitHubToken string `json:"github_token,omitempty"`
}

type analyzeResp struct {
	JobID string `json:"job_id"`
}

type resultResp struct {
	Summary string `json:"summary"`
	Mermaid string `json:"mermaid"`
}

type jobResp struct {
	JobID     string           `json:"job_id"`
	Status    entity.JobStatus `json:"status"`
	RepoURL   string           `json:"repo_url"`
	Result    *resultResp      `json:"result,omitempty"`
	Error     *string          `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// Analyze godoc
// @Summary Submit a repository for analysis
// @Description Creates a queued analysis job for the repository URL and returns its id. Poll GET /jobs/{job_id} for the outcome.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body analyzeDTO true "repository to analyze (github_token optional)"
// @Success 202 {object} analyzeResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var dto analyzeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.CreateJob(r.Context(), service.CreateJobRequest{
		RepoURL:     dto.RepoURL,
		GitHubToken: dto.GitHubToken,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	writeJSON(w, http.StatusAccepted, analyzeResp{JobID: id.String()})
}

// GetJob godoc
// @Summary Get job status
// @Tags jobs
// @Produce json
// @Param job_id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{job_id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "job_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid job id")
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	resp := jobResp{
		JobID:     j.ID.String(),
		Status:    j.Status,
		RepoURL:   j.Input.RepoURL,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
	if j.Result != nil {
		resp.Result = &resultResp{Summary: j.Result.Summary, Mermaid: j.Result.Mermaid}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetJobResult godoc
// @Summary Get the result of a completed job
// @Tags jobs
// @Produce json
// @Param job_id path string true "job id (uuid)"
// @Success 200 {object} resultResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{job_id}/result [get]
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "job_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid job id")
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if j.Status != entity.StatusCompleted || j.Result == nil {
		writeErr(w, http.StatusConflict, "job not completed")
		return
	}

	writeJSON(w, http.StatusOK, resultResp{Summary: j.Result.Summary, Mermaid: j.Result.Mermaid})
}
