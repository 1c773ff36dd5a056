package handler

import (
	"net/http"

	"github.com/mtlprog/taskindexer/internal/handler/dto"
)

// handleListTasks lists tasks across all kinds.
// @Summary List tasks
// @Description List tasks with filters, newest first by default
// @Tags tasks
// @Produce json
// @Param kind query string false "Task kind: bidding, fixed_payment, milestone"
// @Param status query string false "Comma-separated statuses, e.g. Open,InProgress"
// @Param creator query string false "Creator address"
// @Param worker query string false "Worker address"
// @Param first query int false "Page size (default 100, max 1000)"
// @Param skip query int false "Offset"
// @Param orderDirection query string false "asc or desc"
// @Success 200 {object} dto.TasksListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseTaskQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	tasks, err := h.query.ListTasks(r.Context(), q)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.TasksListResponse{
		Tasks: dto.ToTasks(tasks),
		First: q.First,
		Skip:  max(q.Skip, 0),
	})
}

// handleGetTask retrieves one task with its bids or milestones.
// @Summary Get task details
// @Tags tasks
// @Produce json
// @Param kind path string true "Task kind"
// @Param id path string true "On-chain task ID"
// @Success 200 {object} dto.TaskDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{kind}/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	view, err := h.query.GetTask(r.Context(), r.PathValue("kind"), r.PathValue("id"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskDetail(view))
}
