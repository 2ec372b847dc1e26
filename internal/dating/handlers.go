package dating

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-match/internal/auth"
	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
)

const defaultRecommendationCount = 10

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	filters := &FeedFilters{
		Country: q.Get("country"),
		City:    q.Get("city"),
		Gender:  q.Get("gender"),
		Goal:    Goal(q.Get("goal")),
	}
	if v := q.Get("has_photo"); v != "" {
		hasPhoto, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondWithFieldError(w, http.StatusBadRequest, "has_photo", "has_photo must be true or false")
			return
		}
		filters.HasPhoto = &hasPhoto
	}

	var pageSize *int
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithFieldError(w, http.StatusBadRequest, "page_size", "page_size must be an integer")
			return
		}
		pageSize = &n
	}

	page, err := h.service.GetFeed(r.Context(), userID, filters, pageSize, q.Get("cursor"))
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var dto SwipeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		respondWithEngineError(w, r, validationError("RecordSwipe", err))
		return
	}

	result, err := h.service.RecordSwipe(r.Context(), userID, dto.TargetID, dto.Decision)
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Warning != "" {
		status = http.StatusAccepted
	}
	utils.RespondWithJSON(w, status, SwipeResponseDTO{
		SwipeID: result.Swipe.ID,
		Status:  result.Status,
		Matched: result.Matched,
		Warning: result.Warning,
	})
}

func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count := defaultRecommendationCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithFieldError(w, http.StatusBadRequest, "count", "count must be an integer")
			return
		}
		count = n
	}

	recs, err := h.service.GetRecommendations(r.Context(), userID, count)
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, recs)
}

func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	matches, err := h.service.ListMatches(r.Context(), userID)
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	out := make([]MatchSummaryDTO, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchSummaryDTO{
			MatchID:   m.ID,
			PartnerID: m.Partner(userID),
			Score:     m.Score,
			MatchedAt: m.UpdatedAt.Format(time.RFC3339),
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// CheckMatch reports the pair status with another user; the chat consent
// gate only opens for "matched".
func (h *Handler) CheckMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otherID := mux.Vars(r)["userId"]
	m, err := h.service.GetMatch(r.Context(), userID, otherID)
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, MatchStatusDTO{
		UserID:  otherID,
		Status:  m.Status,
		Matched: m.Status == StatusMatched,
		Score:   m.Score,
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, stats)
}

func respondWithEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch KindOf(err) {
	case KindInvalidInput:
		utils.RespondWithFieldError(w, http.StatusBadRequest, FieldOf(err), err.Error())
	case KindNotFound:
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case KindUnavailable, KindConflict:
		w.Header().Set("Retry-After", "1")
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
