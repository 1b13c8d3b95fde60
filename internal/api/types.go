package api

import (
	"net/http"
	"strconv"

	"github.com/CangTianYi/CS3331/internal/layout"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
)

// TypesHandler handles item type endpoints.
type TypesHandler struct {
	Admin  *service.Admin
	Market *service.Market
}

type typeRequest struct {
	Name       string            `json:"name"`
	Attributes []model.Attribute `json:"custom_attributes"`
}

type cardsResponse struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	CardWidth  int            `json:"card_width"`
	CardHeight int            `json:"card_height"`
	Cards      []cardPosition `json:"cards"`
}

type cardPosition struct {
	ItemID int64 `json:"item_id"`
	X      int   `json:"x"`
	Y      int   `json:"y"`
}

// List handles GET /api/types.
func (h *TypesHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.Market.Types(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(types))
}

// Get handles GET /api/types/{id}.
func (h *TypesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	typ, err := h.Market.Type(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, typ)
}

// Create handles POST /api/types.
func (h *TypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	typ, err := h.Admin.CreateType(r.Context(), actor(r), req.Name, req.Attributes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, typ)
}

// Update handles PUT /api/types/{id}.
func (h *TypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req typeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	typ, err := h.Admin.UpdateType(r.Context(), actor(r), id, req.Name, req.Attributes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, typ)
}

// Delete handles DELETE /api/types/{id}. The type's items go with it.
func (h *TypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := h.Admin.DeleteType(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "type not found")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "type deleted"})
}

// Cards handles GET /api/types/{id}/cards?width=N. It lays out the cards of
// the type's items, newest first, in a container N pixels wide.
func (h *TypesHandler) Cards(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width <= 0 {
		jsonError(w, http.StatusBadRequest, "width must be a positive integer")
		return
	}

	if _, err := h.Market.Type(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.Market.Browse(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, height := layout.Cards(width, len(items))
	cards := make([]cardPosition, len(items))
	for i, item := range items {
		cards[i] = cardPosition{ItemID: item.ID, X: points[i].X, Y: points[i].Y}
	}

	jsonResponse(w, http.StatusOK, cardsResponse{
		Width:      width,
		Height:     height,
		CardWidth:  layout.CardWidth,
		CardHeight: layout.CardHeight,
		Cards:      cards,
	})
}
