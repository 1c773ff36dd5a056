package handler

import (
	"net/http"

	"github.com/mtlprog/taskindexer/internal/handler/dto"
)

// handleListDisputes lists disputes.
// @Summary List disputes
// @Tags disputes
// @Produce json
// @Param status query string false "Comma-separated statuses: Filed, Resolved, Distributed"
// @Param worker query string false "Worker address"
// @Param creator query string false "Task creator address"
// @Param first query int false "Page size"
// @Param skip query int false "Offset"
// @Param orderDirection query string false "asc or desc"
// @Success 200 {object} dto.DisputesListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /disputes [get]
func (h *Handler) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseDisputeQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	disputes, err := h.query.ListDisputes(r.Context(), q)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.DisputesListResponse{
		Disputes: dto.ToDisputes(disputes),
		First:    q.First,
		Skip:     max(q.Skip, 0),
	})
}

// handleGetDispute retrieves a dispute with the votes of its current round.
// @Summary Get dispute details
// @Tags disputes
// @Produce json
// @Param id path string true "Dispute ID"
// @Success 200 {object} dto.DisputeDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /disputes/{id} [get]
func (h *Handler) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	view, err := h.query.GetDispute(r.Context(), r.PathValue("id"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToDisputeDetail(view))
}

// handleListAdmins lists dispute admins.
// @Summary List admins
// @Tags admins
// @Produce json
// @Param active query bool false "Only admins with an active stake"
// @Success 200 {object} dto.AdminsListResponse
// @Router /admins [get]
func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, err := dto.ParsePage(values)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	admins, err := h.query.ListAdmins(r.Context(), values.Get("active") == "true", page)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.AdminsListResponse{Admins: dto.ToAdmins(admins)})
}

// handleGetAdmin retrieves one admin.
// @Summary Get admin
// @Tags admins
// @Produce json
// @Param address path string true "Admin address"
// @Success 200 {object} dto.Admin
// @Failure 404 {object} dto.ErrorResponse
// @Router /admins/{address} [get]
func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.query.GetAdmin(r.Context(), r.PathValue("address"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAdmin(admin))
}
