package handlers

import (
	"net/http"

	"github.com/25x8/foodvrse/internal/foodvrse/middleware"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/service"
)

type progressResponse struct {
	*models.UserProgress
	TotalCO2SavedKg float64 `json:"total_co2_saved_kg"`
	MoneySaved      string  `json:"money_saved"`
}

func newProgressResponse(p *models.UserProgress) progressResponse {
	return progressResponse{
		UserProgress:    p,
		TotalCO2SavedKg: p.TotalCO2SavedKg(),
		MoneySaved:      service.FormatMoney(p.TotalMoneySaved),
	}
}

// GetProgress returns the caller's impact totals
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	progress, err := h.Progress.GetProgress(r.Context(), userID)
	if err != nil {
		h.serverError(w, "loading progress", err)
		return
	}
	if progress == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, newProgressResponse(progress))
}

// GetFriendsProgress returns the caller's leaderboard
func (h *Handler) GetFriendsProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	rows := make([]models.FriendProgress, 0)
	for row, err := range h.Leaderboard.ListFriendsProgress(r.Context(), userID) {
		if err != nil {
			h.serverError(w, "loading leaderboard", err)
			return
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, rows)
}
