package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/CangTianYi/CS3331/internal/auth"
	"github.com/CangTianYi/CS3331/internal/metrics"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Auth      *service.Auth
	JWTSecret string
	TTL       time.Duration
	Metrics   *metrics.Metrics
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register handles POST /api/auth/register. New accounts start pending.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recordLogin(err)
		writeError(w, r, err)
		return
	}

	ttl := h.TTL
	if ttl == 0 {
		ttl = auth.DefaultTTL
	}
	token, err := auth.GenerateToken(h.JWTSecret, user, ttl)
	if err != nil {
		h.recordLogin(err)
		writeError(w, r, err)
		return
	}

	h.recordLogin(nil)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *AuthHandler) recordLogin(err error) {
	if h.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		h.Metrics.RecordLogin("success")
	case errors.Is(err, model.ErrPendingApproval):
		h.Metrics.RecordLogin("pending")
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrValidation):
		h.Metrics.RecordLogin("invalid")
	default:
		h.Metrics.RecordLogin("error")
	}
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.Auth.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.Auth.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, model.ErrInvalidCredentials) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
