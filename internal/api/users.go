package api

import (
	"net/http"

	"github.com/CangTianYi/CS3331/internal/service"
)

// UsersHandler handles account moderation endpoints (admin only).
type UsersHandler struct {
	Admin *service.Admin
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.Users(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(users))
}

// Pending handles GET /api/users/pending.
func (h *UsersHandler) Pending(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.PendingUsers(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(users))
}

// Approve handles POST /api/users/{id}/approve. Approving an account that is
// not pending changes nothing and still succeeds.
func (h *UsersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	changed, err := h.Admin.Approve(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"changed": changed})
}

// Reject handles POST /api/users/{id}/reject.
func (h *UsersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := h.Admin.Reject(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "no pending user with that id")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user rejected"})
}

// Delete handles DELETE /api/users/{id}. Admin accounts cannot be deleted.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := h.Admin.DeleteUser(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "no deletable user with that id")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
