package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/http/middleware"
	"github.com/silicity/silicity-server/internal/http/response"
)

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req domain.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	group, err := h.groupService.Create(r.Context(), user.ID, &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Group created successfully", group)
}

func (h *Handlers) ListOpenGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupService.ListOpen(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "OK", groups)
}

func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.Join(r.Context(), groupID, user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "You joined the group", group)
}

func (h *Handlers) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	if err := h.groupService.Leave(r.Context(), groupID, user.ID); err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "You left the group", nil)
}

// GroupMessages returns the chat history, member-only.
func (h *Handlers) GroupMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	messages, err := h.groupService.Messages(r.Context(), groupID, user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "OK", messages)
}

// GraduateGroup opens a project team up as a public study group.
func (h *Handlers) GraduateGroup(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.Graduate(r.Context(), groupID, user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Team graduated to a public study group", group)
}

func groupIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(w, http.StatusBadRequest, "Invalid group ID")
		return 0, false
	}
	return id, true
}
