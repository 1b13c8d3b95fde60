package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/CangTianYi/CS3331/internal/imaging"
	"github.com/CangTianYi/CS3331/internal/metrics"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
)

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	Market  *service.Market
	Metrics *metrics.Metrics
}

// List handles GET /api/items?type_id=&q=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var typeID int64
	if s := r.URL.Query().Get("type_id"); s != "" {
		var err error
		typeID, err = strconv.ParseInt(s, 10, 64)
		if err != nil || typeID <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid type_id")
			return
		}
	}

	items, err := h.Market.Search(r.Context(), typeID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(items))
}

// Mine handles GET /api/items/mine.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.Market.Mine(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(items))
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.Market.Item(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items. The body is either JSON or a multipart form
// whose optional "image" part is the listing photo.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		in     model.NewItem
		upload *service.Upload
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+(1<<20))
		if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
			jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
			return
		}

		var err error
		if in, err = formItem(r); err != nil {
			writeError(w, r, err)
			return
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			upload = &service.Upload{Name: header.Filename, Body: file}
		case !errors.Is(err, http.ErrMissingFile):
			jsonError(w, http.StatusBadRequest, "invalid image part")
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Market.Post(r.Context(), actor(r), in, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordItemOperation("post")
	}
	jsonResponse(w, http.StatusCreated, item)
}

// formItem reads listing fields from a parsed multipart form. custom_values,
// when present, is a JSON object of strings.
func formItem(r *http.Request) (model.NewItem, error) {
	in := model.NewItem{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		Location:     r.FormValue("location"),
		ContactPhone: r.FormValue("contact_phone"),
		ContactEmail: r.FormValue("contact_email"),
	}

	typeID, err := strconv.ParseInt(r.FormValue("type_id"), 10, 64)
	if err != nil {
		return in, fmt.Errorf("%w: invalid type_id", model.ErrValidation)
	}
	in.TypeID = typeID

	if raw := r.FormValue("custom_values"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.CustomValues); err != nil {
			return in, fmt.Errorf("%w: custom_values must be a JSON object", model.ErrValidation)
		}
	}
	return in, nil
}

// Delete handles DELETE /api/items/{id}. Non-admins may only delete their own
// items; anything else reports not found.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := h.Market.Remove(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordItemOperation("remove")
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rc, mimeType, err := h.Market.OpenImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.Copy(w, rc)
}
