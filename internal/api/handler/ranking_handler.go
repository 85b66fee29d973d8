package handler

import (
	"net/http"
	"strconv"

	"codequest/internal/api/middleware"
	"codequest/internal/app/service"
	"codequest/internal/common"

	"github.com/go-chi/chi/v5"
)

type RankingHandler struct {
	rankingService *service.RankingService
}

func NewRankingHandler(rs *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rs}
}

func (h *RankingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/exercise/{exerciseID}", h.getRanking)
	r.Get("/exercise/{exerciseID}/position/{userID}", h.getPosition)
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/exercise/{exerciseID}/my-position", h.getMyPosition)
	})
}

func (h *RankingHandler) getRanking(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	populateUser, _ := strconv.ParseBool(r.URL.Query().Get("populateUser"))

	ranking, err := h.rankingService.RankingFor(r.Context(), exerciseID, limit, populateUser)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ranking)
}

type positionResponse struct {
	ExerciseID    string `json:"exercise_id"`
	UserID        string `json:"user_id"`
	Position      int    `json:"position"`
	HasSubmission bool   `json:"has_submission"`
}

func (h *RankingHandler) getPosition(w http.ResponseWriter, r *http.Request) {
	h.respondPosition(w, r, chi.URLParam(r, "userID"))
}

func (h *RankingHandler) getMyPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	h.respondPosition(w, r, userID)
}

func (h *RankingHandler) respondPosition(w http.ResponseWriter, r *http.Request, userID string) {
	exerciseID := chi.URLParam(r, "exerciseID")
	position, hasSubmission, err := h.rankingService.PositionOf(r.Context(), exerciseID, userID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, positionResponse{
		ExerciseID:    exerciseID,
		UserID:        userID,
		Position:      position,
		HasSubmission: hasSubmission,
	})
}
