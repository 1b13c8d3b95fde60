package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CangTianYi/CS3331/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps an error kind onto a status. Unclassified errors are logged
// and reported as a generic failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch model.KindOf(err) {
	case model.KindValidation:
		jsonError(w, http.StatusBadRequest, err.Error())
	case model.KindUnauthorized:
		jsonError(w, http.StatusUnauthorized, err.Error())
	case model.KindForbidden:
		jsonError(w, http.StatusForbidden, err.Error())
	case model.KindNotFound:
		jsonError(w, http.StatusNotFound, err.Error())
	case model.KindConflict:
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path segment.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
