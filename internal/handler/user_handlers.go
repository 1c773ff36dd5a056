package handler

import (
	"net/http"

	"github.com/mtlprog/taskindexer/internal/handler/dto"
)

// handleGetUser retrieves a user with profile and skills.
// @Summary Get user
// @Tags users
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} dto.User
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{address} [get]
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.query.GetUser(r.Context(), r.PathValue("address"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToUser(user))
}

// handleListUserBids lists every bid a user has placed.
// @Summary List bids by bidder
// @Tags users
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} dto.BidsResponse
// @Router /users/{address}/bids [get]
func (h *Handler) handleListUserBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.query.ListBidsByBidder(r.Context(), r.PathValue("address"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.BidsResponse{Bids: dto.ToBids(bids)})
}

// handleGetStats returns aggregate counts over the projection.
// @Summary Get statistics
// @Tags stats
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Router /stats [get]
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Stats(r.Context())
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToStats(stats))
}
