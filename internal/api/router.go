package api

import (
	"net/http"
	"time"

	"github.com/CangTianYi/CS3331/internal/metrics"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Auth      *service.Auth
	Admin     *service.Admin
	Market    *service.Market
	JWTSecret string
	TokenTTL  time.Duration
	Metrics   *metrics.Metrics
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Auth: d.Auth, JWTSecret: d.JWTSecret, TTL: d.TokenTTL, Metrics: d.Metrics}
	usersHandler := &UsersHandler{Admin: d.Admin}
	typesHandler := &TypesHandler{Admin: d.Admin, Market: d.Market}
	itemsHandler := &ItemsHandler{Market: d.Market, Metrics: d.Metrics}

	authMW := AuthMiddleware(d.JWTSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireUser := RequireRole(model.RoleUser)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Item types: read (all roles), write (admin).
	mux.Handle("GET /api/types", authMW(http.HandlerFunc(typesHandler.List)))
	mux.Handle("POST /api/types", authMW(requireAdmin(http.HandlerFunc(typesHandler.Create))))
	mux.Handle("GET /api/types/{id}", authMW(http.HandlerFunc(typesHandler.Get)))
	mux.Handle("PUT /api/types/{id}", authMW(requireAdmin(http.HandlerFunc(typesHandler.Update))))
	mux.Handle("DELETE /api/types/{id}", authMW(requireAdmin(http.HandlerFunc(typesHandler.Delete))))
	mux.Handle("GET /api/types/{id}/cards", authMW(http.HandlerFunc(typesHandler.Cards)))

	// Items: read (all roles), post and delete (user+, deletes owner-scoped).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireUser(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/mine", authMW(http.HandlerFunc(itemsHandler.Mine)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("DELETE /api/items/{id}", authMW(requireUser(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/pending", authMW(requireAdmin(http.HandlerFunc(usersHandler.Pending))))
	mux.Handle("POST /api/users/{id}/approve", authMW(requireAdmin(http.HandlerFunc(usersHandler.Approve))))
	mux.Handle("POST /api/users/{id}/reject", authMW(requireAdmin(http.HandlerFunc(usersHandler.Reject))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	return LoggingMiddleware(mux, d.Metrics)(mux)
}
