package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codequest/internal/api/middleware"
	"codequest/internal/app/service"
	"codequest/internal/common"
	"codequest/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.createSubmission)
		authed.Get("/me", h.listMySubmissions)
	})
	r.Get("/exercise/{exerciseID}", h.listExerciseSubmissions)
	r.Get("/{submissionID}", h.getSubmission)
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	submission, err := h.submissionService.CreateSubmission(r.Context(), userID, req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}

type paginatedSubmissionsResponse struct {
	Submissions []model.Submission `json:"submissions"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
}

func (h *SubmissionHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	page, pageSize := paginationParams(r)
	subs, total, err := h.submissionService.ListMySubmissions(r.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, paginatedSubmissionsResponse{
		Submissions: subs, Total: total, Page: page, PageSize: pageSize,
	})
}

func (h *SubmissionHandler) listExerciseSubmissions(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	page, pageSize := paginationParams(r)

	subs, total, err := h.submissionService.ListExerciseSubmissions(r.Context(), exerciseID, page, pageSize)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, paginatedSubmissionsResponse{
		Submissions: subs, Total: total, Page: page, PageSize: pageSize,
	})
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	submission, err := h.submissionService.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func paginationParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
